package relay

import (
	"encoding/json"
	"time"

	"github.com/hpungsan/ideashelf/internal/errors"
)

// Kind tags a relay outcome.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindHostError
	KindTransportError
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindHostError:
		return "host_error"
	case KindTransportError:
		return "transport_error"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// GenericHostError is reported when a host reply does not follow the wire contract.
const GenericHostError = "unexpected response from host"

// Outcome is the single result of relaying one record.
type Outcome struct {
	Kind Kind

	// Response is the host's reply for KindSuccess.
	Response map[string]any

	// Message is the host error or transport reason.
	Message string

	// Timeout is the bound that elapsed, for KindTimeout.
	Timeout time.Duration
}

// OK reports whether the host stored the record.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Err converts a failed outcome into an error; it is nil on success.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindSuccess:
		return nil
	case KindHostError:
		return errors.NewHost(o.Message)
	case KindTransportError:
		return errors.NewTransport(o.Message)
	case KindTimeout:
		return errors.NewTimeout(o.Timeout.Milliseconds())
	}
	return errors.NewInternal(nil)
}

// Success builds a success outcome.
func Success(resp map[string]any) Outcome {
	return Outcome{Kind: KindSuccess, Response: resp}
}

// HostError builds a host-reported failure.
func HostError(msg string) Outcome {
	return Outcome{Kind: KindHostError, Message: msg}
}

// TransportError builds a channel failure.
func TransportError(reason string) Outcome {
	if reason == "" {
		reason = "disconnected"
	}
	return Outcome{Kind: KindTransportError, Message: reason}
}

// TimedOut builds a timeout outcome.
func TimedOut(d time.Duration) Outcome {
	return Outcome{Kind: KindTimeout, Timeout: d}
}

// parseResponse maps a host reply onto an outcome. Only a JSON object with a
// boolean success flag counts; failures must carry a string error.
func parseResponse(msg []byte) Outcome {
	var resp map[string]any
	if err := json.Unmarshal(msg, &resp); err != nil || resp == nil {
		return HostError(GenericHostError)
	}
	ok, isBool := resp["success"].(bool)
	if !isBool {
		return HostError(GenericHostError)
	}
	if ok {
		return Success(resp)
	}
	if text, isString := resp["error"].(string); isString && text != "" {
		return HostError(text)
	}
	return HostError(GenericHostError)
}
