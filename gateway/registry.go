package gateway

import (
	"context"
	"sync"
)

// Registry hands out one session facade per user, created lazily on
// first use. Sessions live for the process lifetime; quota tiers are
// re-resolved only when a new session is built.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Gateway
}

// NewRegistry creates an empty session registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: map[string]*Gateway{},
	}
}

// Session returns the user's facade, creating it on the given page if
// it does not exist yet.
func (r *Registry) Session(ctx context.Context, userID, page string) *Gateway {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.sessions[userID]; ok {
		return g
	}

	g := New(ctx, userID, page, r.deps)
	r.sessions[userID] = g
	return g
}

// SuggestedQueries returns the canned prompts for a page without
// needing a session.
func (r *Registry) SuggestedQueries(page string) []string {
	return r.deps.Assembler.SuggestedQueries(page)
}

// Peek returns the user's facade if one exists.
func (r *Registry) Peek(userID string) (*Gateway, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.sessions[userID]
	return g, ok
}
