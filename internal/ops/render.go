package ops

import (
	"bytes"
	"database/sql"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/inbox"
)

// Render formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderInput contains parameters for the Render operation.
type RenderInput struct {
	ID     string
	Format string // markdown (default) or html
}

// RenderOutput contains the rendered note.
type RenderOutput struct {
	ID       string `json:"id"`
	Format   string `json:"format"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// Render produces the note the inbox processor would write for a capture.
// HTML output renders the note body without its frontmatter; raw HTML in
// captured text is escaped.
func Render(database *sql.DB, input RenderInput) (*RenderOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, errors.NewInvalidRequest("format must be markdown or html")
	}

	fetched, err := Fetch(database, FetchInput{ID: input.ID})
	if err != nil {
		return nil, err
	}

	c := NoteCapture(&fetched.Stored)
	now := time.Now()
	note, err := inbox.Markdown(c, "", now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &RenderOutput{
		ID:       fetched.ID,
		Format:   format,
		FileName: inbox.FileName(c, now),
		Content:  string(note),
	}
	if format == FormatHTML {
		out.Content, err = ToHTML(note)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToHTML converts a generated note to HTML, dropping its frontmatter.
func ToHTML(note []byte) (string, error) {
	body := string(note)
	if _, b, err := inbox.ParseFrontmatter(note); err == nil {
		body = b
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", errors.NewInternal(err)
	}
	return buf.String(), nil
}

// NoteCapture converts a stored capture to the inbox note input.
func NoteCapture(s *capture.Stored) *inbox.Capture {
	return &inbox.Capture{
		ID:          s.ID,
		CapturedAt:  s.CapturedAt.UTC().Format(time.RFC3339Nano),
		SourceURL:   s.SourceURL,
		SourceTitle: s.SourceTitle,
		ContentType: string(s.ContentType),
		Content:     s.Content,
		UserNote:    s.UserNote,
	}
}
