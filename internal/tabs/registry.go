package tabs

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/logger"
)

// Registry routes queries to the agent attached to each tab.
type Registry struct {
	log logger.Logger

	mu     sync.RWMutex
	agents map[int]*Agent
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		log:    log,
		agents: make(map[int]*Agent),
	}
}

// Attach installs a for tabID, replacing any previous agent.
func (r *Registry) Attach(tabID int, a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[tabID] = a
}

// Detach removes and returns the agent for tabID, if any. The agent is not stopped.
func (r *Registry) Detach(tabID int) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.agents[tabID]
	delete(r.agents, tabID)
	return a
}

// Query sends req to the agent of tabID and waits for its single reply.
// A tab without a live agent fails immediately with NO_COLLABORATOR.
func (r *Registry) Query(ctx context.Context, tabID int, req Request) (*SelectionResponse, error) {
	r.mu.RLock()
	a := r.agents[tabID]
	r.mu.RUnlock()

	target := fmt.Sprintf("tab %d", tabID)
	if a == nil {
		return nil, errors.NewNoCollaborator(target)
	}

	resp, err := a.Handle(ctx, req)
	if stderrors.Is(err, errStopped) {
		r.log.Debug("agent stopped before answering", logger.Int("tab_id", tabID))
		return nil, errors.NewNoCollaborator(target)
	}
	return resp, err
}

// QuerySelection asks the agent of tabID for its current selection.
func (r *Registry) QuerySelection(ctx context.Context, tabID int) (*SelectionResponse, error) {
	return r.Query(ctx, tabID, Request{Type: RequestGetSelection})
}
