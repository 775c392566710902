// Package tabs hosts document collaborators: one agent per open document,
// each running on its own goroutine and answering selection queries sent
// from the capture orchestrator.
package tabs

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/extract"
)

// RequestGetSelection asks an agent for the current selection and its context.
const RequestGetSelection = "get-selection"

// Request is a message sent to a document collaborator.
type Request struct {
	Type string `json:"type"`
}

// SelectionResponse is the reply to a get-selection request.
type SelectionResponse struct {
	SelectedText  string `json:"selectedText"`
	PrecedingText string `json:"precedingText"`
	FollowingText string `json:"followingText"`
	PageURL       string `json:"pageUrl"`
	PageTitle     string `json:"pageTitle"`
}

// errStopped is returned by an agent whose loop has exited.
var errStopped = stderrors.New("agent stopped")

type call struct {
	fn   func()
	err  error
	done chan struct{}
}

// Agent owns one document and its selection. All document access happens on
// the agent's goroutine.
type Agent struct {
	doc       *extract.Document
	extractor *extract.Extractor
	selection *extract.Selection

	calls    chan *call
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewAgent starts an agent for doc with the given context window.
func NewAgent(doc *extract.Document, window int) *Agent {
	a := &Agent{
		doc:       doc,
		extractor: extract.New(window),
		calls:     make(chan *call),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Agent) loop() {
	defer close(a.done)
	for {
		select {
		case c := <-a.calls:
			a.run(c)
		case <-a.quit:
			return
		}
	}
}

func (a *Agent) run(c *call) {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("agent call panicked: %v", r)
		}
	}()
	c.fn()
}

// do runs fn on the agent goroutine and waits for it to finish.
func (a *Agent) do(ctx context.Context, fn func()) error {
	c := &call{fn: fn, done: make(chan struct{})}
	select {
	case a.calls <- c:
	case <-a.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the agent. Pending and future requests fail.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}

// SelectText selects the first occurrence of text in the document body.
// It reports whether the text was found; the selection is cleared otherwise.
func (a *Agent) SelectText(ctx context.Context, text string) (bool, error) {
	var found bool
	err := a.do(ctx, func() {
		a.selection, found = a.doc.Select(text)
	})
	if err != nil {
		// fn may still be running on the agent goroutine.
		return false, err
	}
	return found, nil
}

// Handle answers one request on the agent goroutine.
func (a *Agent) Handle(ctx context.Context, req Request) (*SelectionResponse, error) {
	if req.Type != RequestGetSelection {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown request type %q", req.Type))
	}

	var resp *SelectionResponse
	err := a.do(ctx, func() {
		res := a.extractor.Extract(a.selection)
		resp = &SelectionResponse{
			SelectedText:  res.SelectedText,
			PrecedingText: res.PrecedingText,
			FollowingText: res.FollowingText,
			PageURL:       a.doc.URL,
			PageTitle:     a.doc.Title,
		}
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
