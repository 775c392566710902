package inbox

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Title and summary limits, in characters.
const (
	TitleChars   = 60
	SummaryChars = 100
	SlugChars    = 40
)

// DefaultStatus is the frontmatter status of a new note.
const DefaultStatus = "raw"

// Capture is the subset of an inbox file the processor reads.
type Capture struct {
	ID          string `json:"id"`
	CapturedAt  string `json:"captured_at"`
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
	UserNote    string `json:"user_note"`
}

// Frontmatter is the YAML header of a generated note. Themes and categories
// are left for later classification.
type Frontmatter struct {
	Captured    string   `yaml:"captured"`
	Source      string   `yaml:"source"`
	SourceTitle string   `yaml:"source_title"`
	Type        string   `yaml:"type"`
	Themes      []string `yaml:"themes,flow"`
	Categories  []string `yaml:"categories,flow"`
	Status      string   `yaml:"status"`
	Summary     string   `yaml:"summary"`
}

// MarshalYAML writes captured as a plain YAML date rather than a quoted string.
func (fm Frontmatter) MarshalYAML() (any, error) {
	type plain Frontmatter
	var node yaml.Node
	if err := node.Encode(plain(fm)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "captured" {
			continue
		}
		if v := node.Content[i+1]; v.Value != "" {
			v.Tag = "!!timestamp"
			v.Style = 0
		}
	}
	return &node, nil
}

// truncate cuts s to n characters, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// Title returns the note heading for c.
func Title(c *Capture) string {
	if c.ContentType == "bookmark" {
		if c.SourceTitle == "" {
			return "Bookmark"
		}
		return c.SourceTitle
	}
	line := firstLine(c.Content)
	if line == "" {
		return "Untitled Capture"
	}
	return truncate(line, TitleChars)
}

// Summary flattens the content onto one line and truncates it.
func Summary(content string) string {
	return truncate(strings.ReplaceAll(strings.TrimSpace(content), "\n", " "), SummaryChars)
}

// Slug derives a file-name fragment from the first line of content.
func Slug(content string) string {
	line := []rune(firstLine(content))
	if len(line) > SlugChars {
		line = line[:SlugChars]
	}
	var b strings.Builder
	for _, r := range line {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_"))
	if slug == "" {
		return "capture"
	}
	return slug
}

// capturedTime parses captured_at, falling back to now.
func capturedTime(c *Capture, now time.Time) time.Time {
	t, err := time.Parse(time.RFC3339Nano, c.CapturedAt)
	if err != nil {
		return now
	}
	return t.UTC()
}

// FileName returns the note name YYMMDD_<slug>.md.
func FileName(c *Capture, now time.Time) string {
	return capturedTime(c, now).Format("060102") + "_" + Slug(c.Content) + ".md"
}

// Markdown renders the note for c.
func Markdown(c *Capture, status string, now time.Time) ([]byte, error) {
	if status == "" {
		status = DefaultStatus
	}
	fm := Frontmatter{
		Captured:    capturedTime(c, now).Format(time.DateOnly),
		Source:      c.SourceURL,
		SourceTitle: c.SourceTitle,
		Type:        c.ContentType,
		Themes:      []string{},
		Categories:  []string{},
		Status:      status,
		Summary:     Summary(c.Content),
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n", Title(c))
	buf.WriteString(c.Content)
	buf.WriteString("\n")
	if c.UserNote != "" {
		fmt.Fprintf(&buf, "\n---\n*User note: %s*\n", c.UserNote)
	}
	if c.SourceURL != "" {
		fmt.Fprintf(&buf, "\n*Source: %s*\n", c.SourceURL)
	}
	return buf.Bytes(), nil
}

// ParseFrontmatter splits a generated note into its header and body.
func ParseFrontmatter(note []byte) (*Frontmatter, string, error) {
	rest, ok := bytes.CutPrefix(note, []byte("---\n"))
	if !ok {
		return nil, "", fmt.Errorf("note has no frontmatter")
	}
	header, body, ok := bytes.Cut(rest, []byte("\n---\n"))
	if !ok {
		return nil, "", fmt.Errorf("unterminated frontmatter")
	}
	var fm Frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, "", fmt.Errorf("decode frontmatter: %w", err)
	}
	return &fm, strings.TrimLeft(string(body), "\n"), nil
}
