// Package orchestrator drives one capture attempt from trigger to
// notification: selection query, record build, relay, settle.
package orchestrator

import (
	"context"
	"strings"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/notify"
	"github.com/hpungsan/ideashelf/internal/relay"
	"github.com/hpungsan/ideashelf/internal/tabs"
)

// State is a step of a capture attempt.
type State int

const (
	StateStart State = iota
	StateExtracting
	StateBuilding
	StateRelaying
	StateSettledOK
	StateSettledError
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateExtracting:
		return "extracting"
	case StateBuilding:
		return "building"
	case StateRelaying:
		return "relaying"
	case StateSettledOK:
		return "settled_ok"
	case StateSettledError:
		return "settled_error"
	}
	return "unknown"
}

// BookmarkPrefix starts the content of a capture made without a selection.
const BookmarkPrefix = "Bookmarked: "

// SelectionQuerier asks a document for its current selection.
type SelectionQuerier interface {
	QuerySelection(ctx context.Context, tabID int) (*tabs.SelectionResponse, error)
}

// Relayer hands a record to the host and returns its single outcome.
type Relayer interface {
	Send(rec *capture.Record) relay.Outcome
}

// QuickNote is a note typed by the user.
type QuickNote struct {
	Content       string
	SourceURL     string
	SourceTitle   string
	UserNote      string
	CaptureMethod capture.Method
}

// SelectionCapture is a capture whose content was read by the caller.
type SelectionCapture struct {
	Content       string
	ContentType   capture.ContentType
	SourceURL     string
	SourceTitle   string
	PrecedingText string
	FollowingText string
	UserNote      string
	CaptureMethod capture.Method
}

// Result describes a settled attempt. Record is nil when the attempt ended
// before building.
type Result struct {
	Record  *capture.Record
	Outcome relay.Outcome
	State   State
	Err     error
}

// Orchestrator runs capture attempts. Attempts share no state apart from
// its collaborators and may run concurrently.
type Orchestrator struct {
	tabs     SelectionQuerier
	relay    Relayer
	notifier notify.Notifier
	settings notify.Settings
	builder  *capture.Builder
	log      logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where settle notifications are shown.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithSettings sets the notification preference source.
func WithSettings(s notify.Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// WithBuilder sets the record builder.
func WithBuilder(b *capture.Builder) Option {
	return func(o *Orchestrator) { o.builder = b }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New returns an orchestrator. Notifications are enabled and discarded
// unless options say otherwise.
func New(q SelectionQuerier, r Relayer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tabs:     q,
		relay:    r,
		notifier: notify.Multi{},
		settings: notify.Static(true),
		builder:  capture.NewBuilder(capture.DefaultWindow),
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CaptureFromContextMenu captures the selection of tabID, or a bookmark when
// nothing is selected.
func (o *Orchestrator) CaptureFromContextMenu(ctx context.Context, tabID int, url, title string) Result {
	return o.captureTab(ctx, tabID, url, title, capture.MethodContextMenu)
}

// CaptureFromShortcut is CaptureFromContextMenu for the keyboard shortcut.
func (o *Orchestrator) CaptureFromShortcut(ctx context.Context, tabID int, url, title string) Result {
	return o.captureTab(ctx, tabID, url, title, capture.MethodShortcut)
}

// CaptureQuickNote captures typed content. No document is queried.
func (o *Orchestrator) CaptureQuickNote(ctx context.Context, n QuickNote) Result {
	a := o.begin("quick_note")
	content, ct := withFallback(n.Content, capture.ContentQuickNote, n.SourceTitle, n.SourceURL)

	a.enter(StateBuilding)
	rec := o.builder.Build(capture.Input{
		Content:       content,
		ContentType:   ct,
		CaptureMethod: n.CaptureMethod,
		SourceURL:     n.SourceURL,
		SourceTitle:   n.SourceTitle,
		UserNote:      n.UserNote,
	})
	return o.relayAndSettle(a, rec)
}

// CaptureSelection captures content the caller already extracted.
func (o *Orchestrator) CaptureSelection(ctx context.Context, s SelectionCapture) Result {
	a := o.begin("selection")
	content, ct := withFallback(s.Content, s.ContentType, s.SourceTitle, s.SourceURL)

	a.enter(StateBuilding)
	rec := o.builder.Build(capture.Input{
		Content:       content,
		ContentType:   ct,
		CaptureMethod: s.CaptureMethod,
		SourceURL:     s.SourceURL,
		SourceTitle:   s.SourceTitle,
		PrecedingText: s.PrecedingText,
		FollowingText: s.FollowingText,
		UserNote:      s.UserNote,
	})
	return o.relayAndSettle(a, rec)
}

func (o *Orchestrator) captureTab(ctx context.Context, tabID int, url, title string, method capture.Method) Result {
	a := o.begin(string(method))
	a.log = a.log.With(logger.Int("tab_id", tabID))

	a.enter(StateExtracting)
	sel, err := o.tabs.QuerySelection(ctx, tabID)
	if err != nil {
		return o.settle(a, Result{Err: err})
	}
	if sel.PageURL != "" {
		url = sel.PageURL
	}
	if sel.PageTitle != "" {
		title = sel.PageTitle
	}

	a.enter(StateBuilding)
	in := capture.Input{
		Content:       sel.SelectedText,
		ContentType:   capture.ContentTextSelection,
		CaptureMethod: method,
		SourceURL:     url,
		SourceTitle:   title,
		PrecedingText: sel.PrecedingText,
		FollowingText: sel.FollowingText,
	}
	if strings.TrimSpace(in.Content) == "" {
		in.Content = bookmarkLabel(title, url)
		in.ContentType = capture.ContentBookmark
		in.PrecedingText, in.FollowingText = "", ""
	}
	return o.relayAndSettle(a, o.builder.Build(in))
}

func (o *Orchestrator) relayAndSettle(a *attempt, rec *capture.Record) Result {
	a.log = a.log.With(logger.String("capture_id", rec.ID))
	a.enter(StateRelaying)
	out := o.relay.Send(rec)
	return o.settle(a, Result{Record: rec, Outcome: out, Err: out.Err()})
}

// settle moves the attempt to its terminal state and notifies exactly once.
func (o *Orchestrator) settle(a *attempt, res Result) Result {
	res.State = StateSettledOK
	if res.Err != nil {
		res.State = StateSettledError
	}
	a.enter(res.State)

	title, message := notificationFor(res.Err)
	if res.Err != nil {
		a.log.Warn("capture failed", logger.Error(res.Err))
	}

	enabled, err := o.settings.NotificationsEnabled()
	if err != nil {
		a.log.Warn("read notification preference", logger.Error(err))
		enabled = true
	}
	if !enabled {
		return res
	}
	if err := o.notifier.Notify(title, message); err != nil {
		a.log.Warn("notify", logger.Error(err))
	}
	return res
}

func notificationFor(err error) (title, message string) {
	switch {
	case err == nil:
		return notify.TitleSaved, notify.MsgSaved
	case errors.Is(err, errors.ErrNoCollaborator):
		return notify.TitleFailed, notify.MsgNoCapture
	default:
		return notify.TitleError, errors.Message(err, notify.MsgFallback)
	}
}

// withFallback substitutes the bookmark label for blank typed content.
func withFallback(content string, ct capture.ContentType, title, url string) (string, capture.ContentType) {
	if strings.TrimSpace(content) != "" {
		return content, ct
	}
	return bookmarkLabel(title, url), capture.ContentBookmark
}

func bookmarkLabel(title, url string) string {
	if title != "" {
		return BookmarkPrefix + title
	}
	return BookmarkPrefix + url
}

type attempt struct {
	state State
	log   logger.Logger
}

func (o *Orchestrator) begin(trigger string) *attempt {
	return &attempt{
		state: StateStart,
		log:   o.log.With(logger.String("trigger", trigger)),
	}
}

func (a *attempt) enter(s State) {
	a.log.Debug("capture state",
		logger.String("from", a.state.String()),
		logger.String("to", s.String()),
	)
	a.state = s
}
