// Package host is the reference native messaging host: it receives one
// capture per process, stores it, and answers the relay.
package host

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kaptinlin/jsonschema"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/db"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/inbox"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/nativemsg"
)

// Response is the single reply written for each message.
type Response struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(msg string) Response {
	return Response{Success: false, Error: msg}
}

// Host validates and stores captures.
type Host struct {
	db       *sql.DB
	inboxDir string
	schema   *jsonschema.Schema
	now      func() time.Time
	log      logger.Logger
}

// New returns a host writing to inboxDir. database may be nil, in which case
// captures are kept only as inbox files.
func New(database *sql.DB, inboxDir string, log logger.Logger) (*Host, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Host{
		db:       database,
		inboxDir: inboxDir,
		schema:   schema,
		now:      time.Now,
		log:      log,
	}, nil
}

// Serve reads exactly one framed message from r and writes one framed reply to w.
func (h *Host) Serve(r io.Reader, w io.Writer) error {
	resp := h.read(r)
	if !resp.Success && resp.Error != "" {
		h.log.Warn("capture rejected", logger.String("error", resp.Error))
	}
	return nativemsg.WriteJSON(w, resp)
}

func (h *Host) read(r io.Reader) Response {
	msg, err := nativemsg.Read(r, nativemsg.MaxInbound)
	switch {
	case err == nil:
		return h.Handle(msg)
	case stderrors.Is(err, nativemsg.ErrNoMessage), stderrors.Is(err, nativemsg.ErrTooLarge):
		return failure("No message received")
	default:
		return failure(fmt.Sprintf("Read error: %v", err))
	}
}

// Handle processes one message payload.
func (h *Host) Handle(msg []byte) Response {
	var payload any
	if err := json.Unmarshal(msg, &payload); err != nil {
		return failure("Invalid JSON in message")
	}
	if problem := checkPayload(payload); problem != "" {
		return failure(problem)
	}
	if problem := checkSchema(h.schema, msg); problem != "" {
		return failure(problem)
	}

	var rec capture.Record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return failure(fmt.Sprintf("schema validation failed: %v", err))
	}

	if err := inbox.EnsureDir(h.inboxDir); err != nil {
		return failure(fmt.Sprintf("Cannot create inbox directory: %v", stderrors.Unwrap(err)))
	}
	path, err := inbox.Write(h.inboxDir, rec.ID, payload)
	if err != nil {
		return failure(writeMessage(err))
	}

	if err := h.store(&rec); err != nil {
		os.Remove(path)
		return failure(errors.Message(err, "Failed to store capture"))
	}

	h.log.Info("capture stored",
		logger.String("capture_id", rec.ID),
		logger.String("content_type", string(rec.ContentType)),
		logger.String("path", path),
	)
	return Response{Success: true, ID: rec.ID, Path: path}
}

func (h *Host) store(rec *capture.Record) error {
	if h.db == nil {
		return nil
	}
	digest, err := capture.Digest(rec)
	if err != nil {
		return errors.NewInternal(err)
	}
	return db.Insert(h.db, &capture.Stored{
		Record:     *rec,
		Digest:     digest,
		ReceivedAt: h.now().Unix(),
	})
}

func writeMessage(err error) string {
	var sErr *errors.ShelfError
	if stderrors.As(err, &sErr) && sErr.Code != errors.ErrInternal {
		return sErr.Message
	}
	return fmt.Sprintf("Failed to write file: %v", err)
}
