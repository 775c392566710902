package ops

import (
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/errors"
)

func TestRender_Markdown(t *testing.T) {
	database := setupDB(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertCapture(t, database, "01RENDER", capture.ContentTextSelection, "A thought\nwith detail", at)

	output, err := Render(database, RenderInput{ID: "01RENDER"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if output.Format != FormatMarkdown {
		t.Errorf("Format = %q", output.Format)
	}
	if output.FileName != "260301_a_thought.md" {
		t.Errorf("FileName = %q", output.FileName)
	}
	if !strings.HasPrefix(output.Content, "---\ncaptured: 2026-03-01\n") {
		t.Errorf("Content does not start with frontmatter:\n%s", output.Content)
	}
	if !strings.Contains(output.Content, "# A thought\n") {
		t.Errorf("Content missing heading:\n%s", output.Content)
	}
}

func TestRender_HTML(t *testing.T) {
	database := setupDB(t)
	insertCapture(t, database, "01HTML", capture.ContentQuickNote, "Use <script>alert(1)</script> **bold**", time.Now())

	output, err := Render(database, RenderInput{ID: "01HTML", Format: "HTML"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if output.Format != FormatHTML {
		t.Errorf("Format = %q", output.Format)
	}
	if strings.Contains(output.Content, "<script>") {
		t.Errorf("raw HTML passed through:\n%s", output.Content)
	}
	if !strings.Contains(output.Content, "<strong>bold</strong>") {
		t.Errorf("markdown not rendered:\n%s", output.Content)
	}
	if strings.Contains(output.Content, "captured:") {
		t.Errorf("frontmatter rendered:\n%s", output.Content)
	}
}

func TestRender_InvalidFormat(t *testing.T) {
	_, err := Render(setupDB(t), RenderInput{ID: "x", Format: "pdf"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Render error = %v, want INVALID_REQUEST", err)
	}
}
