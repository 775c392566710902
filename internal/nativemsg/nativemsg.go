// Package nativemsg implements native messaging framing: each message is a
// 4-byte little-endian length followed by that many bytes of UTF-8 JSON.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
)

// MaxInbound is the largest message a host accepts.
const MaxInbound = 1 << 20

var (
	// ErrNoMessage is returned when the stream ends before a complete frame,
	// or the frame is empty.
	ErrNoMessage = stderrors.New("no message received")

	// ErrTooLarge is returned for frames larger than the reader's limit.
	ErrTooLarge = stderrors.New("message too large")
)

// Read reads one frame and returns its payload. limit caps the frame size;
// zero or negative means MaxInbound.
func Read(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxInbound
	}

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNoMessage
		}
		return nil, err
	}

	n := binary.LittleEndian.Uint32(header[:])
	if n == 0 {
		return nil, ErrNoMessage
	}
	if uint64(n) > uint64(limit) {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, n, limit)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNoMessage
		}
		return nil, err
	}
	return payload, nil
}

// Write writes payload as one frame.
func Write(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	// Header and payload go out in a single write
	frame := make([]byte, 0, len(header)+len(payload))
	frame = append(frame, header[:]...)
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

// WriteJSON marshals v and writes it as one frame.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Write(w, data)
}
