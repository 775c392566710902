// Package relay exchanges one capture record with the host process and
// delivers exactly one outcome per record.
package relay

// Events receives what happens on a channel. Callbacks may run on any
// goroutine and may fire after the relay has already settled.
type Events struct {
	// OnMessage is called for every message the host sends.
	OnMessage func(msg []byte)

	// OnDisconnect is called once when the channel closes. err is nil for an
	// orderly close by the host.
	OnDisconnect func(err error)
}

// Channel is a message-oriented connection to a host, opened per exchange.
type Channel interface {
	// ID identifies this channel in logs; it is never reused.
	ID() string

	// Post sends one message to the host.
	Post(msg []byte) error

	// Close tears the channel down. It is safe to call more than once.
	Close() error
}

// Dialer opens channels to named hosts.
type Dialer interface {
	// Dial opens a fresh channel to host. Errors are synchronous: the host is
	// missing or could not be started.
	Dial(host string, ev Events) (Channel, error)
}
