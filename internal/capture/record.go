package capture

import "time"

// ContentType classifies what a capture holds.
type ContentType string

const (
	ContentTextSelection ContentType = "text_selection"
	ContentQuickNote     ContentType = "quick_note"
	ContentBookmark      ContentType = "bookmark"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTextSelection, ContentQuickNote, ContentBookmark:
		return true
	}
	return false
}

// Method records which trigger surface produced a capture.
type Method string

const (
	MethodContextMenu Method = "context_menu"
	MethodPopup       Method = "popup"
	MethodShortcut    Method = "shortcut"
)

// Valid reports whether m is a known capture method.
func (m Method) Valid() bool {
	switch m {
	case MethodContextMenu, MethodPopup, MethodShortcut:
		return true
	}
	return false
}

// Context is the bounded text surrounding a selection.
type Context struct {
	PrecedingText string `json:"preceding_text"`
	FollowingText string `json:"following_text"`
}

// Record is the unit exchanged with the host. It is built once per capture
// and never mutated afterwards.
type Record struct {
	// ID is a ULID, unique per capture within the process
	ID string `json:"id"`

	// CapturedAt is fixed when the record is built
	CapturedAt time.Time `json:"captured_at"`

	SourceURL     string      `json:"source_url"`
	SourceTitle   string      `json:"source_title"`
	ContentType   ContentType `json:"content_type"`
	CaptureMethod Method      `json:"capture_method"`

	// Content is never empty; bookmarks carry a synthesized label
	Content string `json:"content"`

	Context  Context `json:"context"`
	UserNote string  `json:"user_note"`
}

// Summary is the list view of a stored capture.
type Summary struct {
	ID            string      `json:"id"`
	CapturedAt    time.Time   `json:"captured_at"`
	ContentType   ContentType `json:"content_type"`
	CaptureMethod Method      `json:"capture_method"`
	SourceTitle   string      `json:"source_title"`
	SourceURL     string      `json:"source_url"`
	Snippet       string      `json:"snippet"`
	Processed     bool        `json:"processed"`
}

// Stored is a record as persisted by the host.
type Stored struct {
	Record
	Digest      string `json:"digest"`
	ReceivedAt  int64  `json:"received_at"`
	ProcessedAt *int64 `json:"processed_at,omitempty"`
}

// SnippetChars is the length of Summary.Snippet.
const SnippetChars = 80

// ToSummary builds the list view of a stored capture.
func (s *Stored) ToSummary() Summary {
	return Summary{
		ID:            s.ID,
		CapturedAt:    s.CapturedAt,
		ContentType:   s.ContentType,
		CaptureMethod: s.CaptureMethod,
		SourceTitle:   s.SourceTitle,
		SourceURL:     s.SourceURL,
		Snippet:       Snippet(s.Content, SnippetChars),
		Processed:     s.ProcessedAt != nil,
	}
}
