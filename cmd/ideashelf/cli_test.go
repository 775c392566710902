package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/db"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/extract"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/notify"
	"github.com/hpungsan/ideashelf/internal/ops"
	"github.com/hpungsan/ideashelf/internal/relay"
	"github.com/hpungsan/ideashelf/internal/tabs"
)

const essayPage = `<html><head><title>Essay</title></head><body>
<p>Some words before the quote and the quoted part and some words after it.</p>
</body></html>`

// fakeRelayer records every record it is handed and answers with outcome,
// or with a success echoing the record id when outcome is zero.
type fakeRelayer struct {
	mu      sync.Mutex
	records []*capture.Record
	outcome *relay.Outcome
}

func (f *fakeRelayer) Send(rec *capture.Record) relay.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	if f.outcome != nil {
		return *f.outcome
	}
	return relay.Success(map[string]any{"success": true, "id": rec.ID})
}

func (f *fakeRelayer) last(t *testing.T) *capture.Record {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		t.Fatal("no record was relayed")
	}
	return f.records[len(f.records)-1]
}

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// testDeps returns deps with a fake relay and notifications captured in notes.
func testDeps(database *sql.DB, r *fakeRelayer, notes *bytes.Buffer) *deps {
	return &deps{
		db:       database,
		cfg:      config.DefaultConfig(),
		log:      logger.NewNop(),
		relay:    r,
		notifier: notify.NewWriterNotifier(notes),
		settings: notify.Static(true),
	}
}

// runCLI runs the app with args and returns what it printed on stdout.
func runCLI(t *testing.T, d *deps, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := newCLIApp(d).Run(append([]string{"ideashelf"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func storeTestCapture(t *testing.T, database *sql.DB, id, content string, at time.Time) {
	t.Helper()
	s := &capture.Stored{
		Record: capture.Record{
			ID:            id,
			CapturedAt:    at.UTC().Truncate(time.Millisecond),
			SourceURL:     "https://example.com/" + id,
			SourceTitle:   "Example " + id,
			ContentType:   capture.ContentTextSelection,
			CaptureMethod: capture.MethodContextMenu,
			Content:       content,
			Context:       capture.Context{PrecedingText: "before", FollowingText: "after"},
		},
		Digest:     "digest-" + id,
		ReceivedAt: at.Unix(),
	}
	if err := db.Insert(database, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "essay.html")
	if err := os.WriteFile(path, []byte(essayPage), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCLINote(t *testing.T) {
	r := &fakeRelayer{}
	var notes bytes.Buffer
	d := testDeps(nil, r, &notes)

	out, err := runCLI(t, d, "note", "--note=later", "--url=https://example.com/a", "Buy", "more", "shelves")
	if err != nil {
		t.Fatalf("note command failed: %v", err)
	}

	var output captureOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	rec := r.last(t)
	if output.ID != rec.ID {
		t.Errorf("output id = %q, want %q", output.ID, rec.ID)
	}
	if output.State != "settled_ok" {
		t.Errorf("state = %q, want settled_ok", output.State)
	}
	if rec.Content != "Buy more shelves" {
		t.Errorf("content = %q", rec.Content)
	}
	if rec.ContentType != capture.ContentQuickNote {
		t.Errorf("content_type = %q, want quick_note", rec.ContentType)
	}
	if rec.CaptureMethod != capture.MethodPopup {
		t.Errorf("capture_method = %q, want popup", rec.CaptureMethod)
	}
	if rec.UserNote != "later" {
		t.Errorf("user_note = %q", rec.UserNote)
	}
	if notes.String() != "Saved: Idea captured to IdeaShelf.\n" {
		t.Errorf("notification = %q", notes.String())
	}
}

func TestCLINote_InvalidMethod(t *testing.T) {
	r := &fakeRelayer{}
	d := testDeps(nil, r, &bytes.Buffer{})

	_, err := runCLI(t, d, "note", "--method=telepathy", "hello")
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	if !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("error = %q, want INVALID_REQUEST", err.Error())
	}
	if len(r.records) != 0 {
		t.Error("nothing should be relayed for an invalid method")
	}
}

func TestCLINote_HostError(t *testing.T) {
	failed := relay.HostError("disk full")
	r := &fakeRelayer{outcome: &failed}
	var notes bytes.Buffer
	d := testDeps(nil, r, &notes)

	_, err := runCLI(t, d, "note", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "[HOST_ERROR] disk full" {
		t.Errorf("error = %q", err.Error())
	}
	if notes.String() != "Error: disk full\n" {
		t.Errorf("notification = %q", notes.String())
	}
}

func TestCLIPage(t *testing.T) {
	path := writePage(t)

	t.Run("selection", func(t *testing.T) {
		r := &fakeRelayer{}
		d := testDeps(nil, r, &bytes.Buffer{})

		_, err := runCLI(t, d, "page", "--select=the quoted part", "--url=https://example.com/essay", path)
		if err != nil {
			t.Fatalf("page command failed: %v", err)
		}

		rec := r.last(t)
		if rec.Content != "the quoted part" {
			t.Errorf("content = %q", rec.Content)
		}
		if rec.ContentType != capture.ContentTextSelection {
			t.Errorf("content_type = %q", rec.ContentType)
		}
		if rec.CaptureMethod != capture.MethodContextMenu {
			t.Errorf("capture_method = %q", rec.CaptureMethod)
		}
		if rec.SourceTitle != "Essay" || rec.SourceURL != "https://example.com/essay" {
			t.Errorf("source = %q %q", rec.SourceTitle, rec.SourceURL)
		}
		if !strings.Contains(rec.Context.PrecedingText, "before the quote") {
			t.Errorf("preceding_text = %q", rec.Context.PrecedingText)
		}
		if !strings.Contains(rec.Context.FollowingText, "words after it") {
			t.Errorf("following_text = %q", rec.Context.FollowingText)
		}
	})

	t.Run("bookmark without selection", func(t *testing.T) {
		r := &fakeRelayer{}
		d := testDeps(nil, r, &bytes.Buffer{})

		_, err := runCLI(t, d, "page", "--shortcut", path)
		if err != nil {
			t.Fatalf("page command failed: %v", err)
		}

		rec := r.last(t)
		if rec.Content != "Bookmarked: Essay" {
			t.Errorf("content = %q", rec.Content)
		}
		if rec.ContentType != capture.ContentBookmark {
			t.Errorf("content_type = %q", rec.ContentType)
		}
		if rec.CaptureMethod != capture.MethodShortcut {
			t.Errorf("capture_method = %q", rec.CaptureMethod)
		}
		if !strings.HasPrefix(rec.SourceURL, "file://") {
			t.Errorf("source_url = %q, want file:// default", rec.SourceURL)
		}
	})

	t.Run("selection not in page", func(t *testing.T) {
		r := &fakeRelayer{}
		d := testDeps(nil, r, &bytes.Buffer{})

		_, err := runCLI(t, d, "page", "--select=not on this page", path)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
			t.Errorf("error = %q", err.Error())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		d := testDeps(nil, &fakeRelayer{}, &bytes.Buffer{})

		_, err := runCLI(t, d, "page", filepath.Join(t.TempDir(), "nope.html"))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCLIList(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	storeTestCapture(t, database, "cap-1", "older", base)
	storeTestCapture(t, database, "cap-2", "newer", base.Add(time.Hour))

	out, err := runCLI(t, testDeps(database, &fakeRelayer{}, &bytes.Buffer{}), "list", "--limit=1")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	var output ops.ListOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(output.Items) != 1 || output.Items[0].ID != "cap-2" {
		t.Errorf("items = %+v, want only cap-2", output.Items)
	}
	if !output.Pagination.HasMore {
		t.Error("expected has_more")
	}
}

func TestCLIFetch(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	storeTestCapture(t, database, "cap-1", "a line worth keeping", time.Now())
	d := testDeps(database, &fakeRelayer{}, &bytes.Buffer{})

	t.Run("by id", func(t *testing.T) {
		out, err := runCLI(t, d, "fetch", "cap-1")
		if err != nil {
			t.Fatalf("fetch command failed: %v", err)
		}
		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
		}
		if output.Content != "a line worth keeping" {
			t.Errorf("content = %q", output.Content)
		}
		if output.Context.PrecedingText != "before" {
			t.Errorf("preceding_text = %q", output.Context.PrecedingText)
		}
	})

	t.Run("no context", func(t *testing.T) {
		out, err := runCLI(t, d, "fetch", "--no-context", "cap-1")
		if err != nil {
			t.Fatalf("fetch command failed: %v", err)
		}
		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Context.PrecedingText != "" {
			t.Errorf("preceding_text = %q, want empty", output.Context.PrecedingText)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := runCLI(t, d, "fetch", "missing")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.HasPrefix(err.Error(), "[NOT_FOUND]") {
			t.Errorf("error = %q", err.Error())
		}
	})
}

func TestCLIShow(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	storeTestCapture(t, database, "cap-1", "Shelves hold *ideas*", time.Now())
	d := testDeps(database, &fakeRelayer{}, &bytes.Buffer{})

	out, err := runCLI(t, d, "show", "cap-1")
	if err != nil {
		t.Fatalf("show command failed: %v", err)
	}
	if !strings.HasPrefix(out, "---\n") {
		t.Errorf("markdown should start with frontmatter, got %q", out)
	}

	out, err = runCLI(t, d, "show", "--format=html", "cap-1")
	if err != nil {
		t.Fatalf("show --format=html failed: %v", err)
	}
	if !strings.Contains(out, "<em>ideas</em>") {
		t.Errorf("html = %q, want emphasis rendered", out)
	}
}

func TestCLIProcess(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	dir := t.TempDir()
	inboxDir := filepath.Join(dir, "inbox")
	outputDir := filepath.Join(dir, "ideas")
	if err := os.MkdirAll(inboxDir, 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	payload := `{"id":"cap-5","captured_at":"2026-03-01T09:00:00.000Z","source_url":"","source_title":"","content_type":"quick_note","capture_method":"popup","content":"Try the inbox","context":{"preceding_text":"","following_text":""},"user_note":""}`
	if err := os.WriteFile(filepath.Join(inboxDir, "cap-5.json"), []byte(payload), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d := testDeps(database, &fakeRelayer{}, &bytes.Buffer{})
	out, err := runCLI(t, d, "process", "--inbox="+inboxDir, "--output="+outputDir, "--status=draft")
	if err != nil {
		t.Fatalf("process command failed: %v", err)
	}

	var output struct {
		Processed int      `json:"processed"`
		Errors    int      `json:"errors"`
		Notes     []string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Processed != 1 || output.Errors != 0 {
		t.Errorf("processed=%d errors=%d, want 1/0", output.Processed, output.Errors)
	}
	if len(output.Notes) != 1 {
		t.Fatalf("notes = %v", output.Notes)
	}
	note, err := os.ReadFile(output.Notes[0])
	if err != nil {
		t.Fatalf("ReadFile note: %v", err)
	}
	if !strings.Contains(string(note), "status: draft") {
		t.Errorf("note should carry the requested status:\n%s", note)
	}
}

func TestCloseTab(t *testing.T) {
	doc, err := extract.ParseString(essayPage, "file:///essay.html")
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	reg := tabs.NewRegistry(nil)
	reg.Attach(pageTab, tabs.NewAgent(doc, 20))

	closeTab(reg, pageTab)

	_, err = reg.QuerySelection(context.Background(), pageTab)
	if !errors.Is(err, errors.ErrNoCollaborator) {
		t.Errorf("expected NO_COLLABORATOR after close, got %v", err)
	}

	// Closing an unknown tab is a no-op.
	closeTab(reg, pageTab)
}
