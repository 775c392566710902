package capture

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultWindow is the default context window in characters.
const DefaultWindow = 50

// Input holds the raw inputs of a capture. Every field is optional; the
// builder coerces missing or malformed values rather than rejecting them.
type Input struct {
	Content       string
	ContentType   ContentType
	CaptureMethod Method
	SourceURL     string
	SourceTitle   string
	PrecedingText string
	FollowingText string
	UserNote      string
}

// Builder turns Inputs into Records. The id and timestamp are the only
// non-deterministic parts of a record.
//
// A Builder is safe for concurrent use. Timestamps never go backwards across
// records built by the same Builder, and ids are strictly increasing.
type Builder struct {
	window int
	now    func() time.Time

	mu      sync.Mutex
	entropy io.Reader
	last    time.Time
}

// NewBuilder returns a Builder keeping at most window characters of context
// on each side. A non-positive window uses DefaultWindow.
func NewBuilder(window int) *Builder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Builder{
		window:  window,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Window returns the context window of the builder.
func (b *Builder) Window() int {
	return b.window
}

var defaultBuilder = NewBuilder(DefaultWindow)

// Build builds a record with the process-wide default builder.
func Build(in Input) *Record {
	return defaultBuilder.Build(in)
}

// Build creates a new Record from in. It never fails.
func (b *Builder) Build(in Input) *Record {
	id, capturedAt := b.stamp()

	contentType := in.ContentType
	if !contentType.Valid() {
		contentType = ContentTextSelection
	}
	method := in.CaptureMethod
	if !method.Valid() {
		method = MethodPopup
	}

	return &Record{
		ID:            id,
		CapturedAt:    capturedAt,
		SourceURL:     in.SourceURL,
		SourceTitle:   in.SourceTitle,
		ContentType:   contentType,
		CaptureMethod: method,
		Content:       in.Content,
		Context: Context{
			PrecedingText: strings.TrimSpace(Tail(in.PrecedingText, b.window)),
			FollowingText: strings.TrimSpace(Head(in.FollowingText, b.window)),
		},
		UserNote: in.UserNote,
	}
}

// stamp generates the id and timestamp of a new record.
func (b *Builder) stamp() (string, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC().Truncate(time.Millisecond)
	if now.Before(b.last) {
		now = b.last
	}
	b.last = now

	id, err := ulid.New(ulid.Timestamp(now), b.entropy)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond
		id = ulid.Make()
	}
	return id.String(), now
}
