package host

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/db"
	"github.com/hpungsan/ideashelf/internal/nativemsg"
)

func newTestHost(t *testing.T) (*Host, string) {
	t.Helper()
	base := t.TempDir()
	database, err := db.Init(base)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	inboxDir := filepath.Join(base, "inbox")
	h, err := New(database, inboxDir, nil)
	require.NoError(t, err)
	return h, inboxDir
}

func validPayload() map[string]any {
	return map[string]any{
		"id":             "01HZX0000000000000000000AB",
		"captured_at":    "2026-03-01T12:00:00.000Z",
		"source_url":     "https://example.com/a",
		"source_title":   "Example",
		"content_type":   "text_selection",
		"capture_method": "context_menu",
		"content":        "hello world",
		"context":        map[string]any{"preceding_text": "before", "following_text": "after"},
		"user_note":      "",
	}
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandle_StoresCapture(t *testing.T) {
	h, inboxDir := newTestHost(t)

	resp := h.Handle(encode(t, validPayload()))

	require.True(t, resp.Success, "error: %s", resp.Error)
	assert.Equal(t, "01HZX0000000000000000000AB", resp.ID)
	assert.Equal(t, filepath.Join(inboxDir, "01HZX0000000000000000000AB.json"), resp.Path)
	assert.FileExists(t, resp.Path)

	stored, err := db.GetByID(h.db, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", stored.Content)
	assert.Equal(t, "before", stored.Context.PrecedingText)
	assert.NotEmpty(t, stored.Digest)
}

func TestHandle_ValidationMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"bad json", `{nope`, "Invalid JSON in message"},
		{"array", `[1]`, "Payload must be a JSON object"},
		{"string", `"x"`, "Payload must be a JSON object"},
		{"missing fields", `{"id":"a","content":"x"}`, "Missing required fields: captured_at, content_type"},
		{"blank content", `{"id":"a","captured_at":"2026-03-01T12:00:00Z","content_type":"quick_note","content":"   "}`, "Field 'content' must be a non-empty string"},
		{"numeric content", `{"id":"a","captured_at":"2026-03-01T12:00:00Z","content_type":"quick_note","content":5}`, "Field 'content' must be a non-empty string"},
	}
	h, _ := newTestHost(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.Handle([]byte(tt.msg))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.want, resp.Error)
		})
	}
}

func TestHandle_SchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p map[string]any)
	}{
		{"unknown content type", func(p map[string]any) { p["content_type"] = "video" }},
		{"unknown capture method", func(p map[string]any) { p["capture_method"] = "voice" }},
		{"bad timestamp", func(p map[string]any) { p["captured_at"] = "yesterday" }},
		{"context not object", func(p map[string]any) { p["context"] = "x" }},
	}
	h, _ := newTestHost(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			resp := h.Handle(encode(t, p))
			assert.False(t, resp.Success)
			assert.True(t, strings.HasPrefix(resp.Error, "schema validation failed"), resp.Error)
		})
	}
}

func TestHandle_SanitizesID(t *testing.T) {
	h, inboxDir := newTestHost(t)
	p := validPayload()
	p["id"] = "../../evil id"

	resp := h.Handle(encode(t, p))

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, filepath.Join(inboxDir, "evilid.json"), resp.Path)
}

func TestHandle_DuplicateRejected(t *testing.T) {
	h, _ := newTestHost(t)
	msg := encode(t, validPayload())

	require.True(t, h.Handle(msg).Success)
	resp := h.Handle(msg)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "already stored")
}

func TestHandle_WithoutDatabase(t *testing.T) {
	inboxDir := filepath.Join(t.TempDir(), "inbox")
	h, err := New(nil, inboxDir, nil)
	require.NoError(t, err)

	resp := h.Handle(encode(t, validPayload()))
	require.True(t, resp.Success, resp.Error)
	assert.FileExists(t, resp.Path)
}

func TestHandle_AcceptsBuiltRecord(t *testing.T) {
	h, _ := newTestHost(t)
	rec := capture.Build(capture.Input{Content: "typed", ContentType: capture.ContentQuickNote})

	resp := h.Handle(encode(t, rec))
	assert.True(t, resp.Success, resp.Error)
}

func readReply(t *testing.T, out *bytes.Buffer) Response {
	t.Helper()
	msg, err := nativemsg.Read(out, 0)
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(msg, &resp))
	return resp
}

func TestServe(t *testing.T) {
	h, _ := newTestHost(t)

	var in, out bytes.Buffer
	require.NoError(t, nativemsg.Write(&in, encode(t, validPayload())))
	require.NoError(t, h.Serve(&in, &out))

	resp := readReply(t, &out)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Path)
}

func TestServe_NoMessage(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty stdin", nil},
		{"short header", []byte{1, 0}},
		{"zero length", []byte{0, 0, 0, 0}},
		{"truncated body", []byte{10, 0, 0, 0, '{'}},
	}
	h, _ := newTestHost(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, h.Serve(bytes.NewReader(tt.input), &out))
			resp := readReply(t, &out)
			assert.False(t, resp.Success)
			assert.Equal(t, "No message received", resp.Error)
		})
	}
}

func TestServe_Oversized(t *testing.T) {
	h, _ := newTestHost(t)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], nativemsg.MaxInbound+1)

	var out bytes.Buffer
	require.NoError(t, h.Serve(bytes.NewReader(header[:]), &out))
	assert.Equal(t, "No message received", readReply(t, &out).Error)
}

func TestHandle_InboxNotCreatable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	h, err := New(nil, filepath.Join(blocker, "inbox"), nil)
	require.NoError(t, err)

	resp := h.Handle(encode(t, validPayload()))
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Error, "Cannot create inbox directory:"), resp.Error)
}
