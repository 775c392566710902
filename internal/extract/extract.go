// Package extract computes the selected text of a document and the bounded
// context around it.
package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hpungsan/ideashelf/internal/capture"
)

// Position is a DOM-style range boundary. For text nodes Offset counts runes;
// for other nodes it is a child index.
type Position struct {
	Node   *html.Node
	Offset int
}

// Selection is a range in a document. Start may come after End for
// selections made backwards.
type Selection struct {
	Start Position
	End   Position
}

// Active reports whether s describes a selection at all.
func (s *Selection) Active() bool {
	return s != nil && s.Start.Node != nil && s.End.Node != nil
}

// Result is the outcome of an extraction. All fields are empty when nothing
// is selected.
type Result struct {
	SelectedText  string `json:"selectedText"`
	PrecedingText string `json:"precedingText"`
	FollowingText string `json:"followingText"`
}

// Extractor extracts selections with a fixed context window.
type Extractor struct {
	window int
}

// New returns an Extractor keeping up to window characters on either side of
// a selection. A non-positive window uses capture.DefaultWindow.
func New(window int) *Extractor {
	if window <= 0 {
		window = capture.DefaultWindow
	}
	return &Extractor{window: window}
}

// Extract returns the selected text and its context. Context is best-effort:
// any failure computing it leaves PrecedingText and FollowingText empty but
// never drops SelectedText.
func (e *Extractor) Extract(sel *Selection) Result {
	if !sel.Active() {
		return Result{}
	}

	text := strings.TrimSpace(selectedText(sel))
	if text == "" {
		return Result{}
	}

	res := Result{SelectedText: text}
	res.PrecedingText, res.FollowingText = e.context(sel, text)
	return res
}

// context computes the window before and after the selection.
func (e *Extractor) context(sel *Selection, text string) (before, after string) {
	defer func() {
		if recover() != nil {
			before, after = "", ""
		}
	}()

	// Both boundaries in one text node: slice around the offsets directly
	if sel.Start.Node == sel.End.Node && sel.Start.Node.Type == html.TextNode {
		full := []rune(sel.Start.Node.Data)
		start := clamp(sel.Start.Offset, 0, len(full))
		end := clamp(sel.End.Offset, 0, len(full))
		if start > end {
			start, end = end, start
		}
		return e.around(full, start, end)
	}

	container := commonAncestor(sel.Start.Node, sel.End.Node)
	if container == nil {
		return "", ""
	}
	full := textContent(container)
	idx := strings.Index(full, text)
	if idx < 0 {
		return "", ""
	}
	start := utf8.RuneCountInString(full[:idx])
	return e.around([]rune(full), start, start+utf8.RuneCountInString(text))
}

// around returns the trimmed window before start and after end.
func (e *Extractor) around(full []rune, start, end int) (string, string) {
	before := string(full[max(0, start-e.window):start])
	after := string(full[end:min(len(full), end+e.window)])
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
