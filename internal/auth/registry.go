package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Registry holds one hydrator per live session so the {user, loading}
// snapshot survives across requests. Hydrators are created lazily: after a
// server restart the first /auth/session call for a token re-runs the
// restore path.
type Registry struct {
	profiles ProfileSource
	opts     Options
	logger   *zap.Logger

	mu        sync.Mutex
	hydrators map[string]*Hydrator
}

// NewRegistry creates an empty hydrator registry.
func NewRegistry(profiles ProfileSource, opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		profiles:  profiles,
		opts:      opts,
		logger:    logger,
		hydrators: make(map[string]*Hydrator),
	}
}

// Obtain returns the hydrator for a session, creating and starting one
// from the given source when absent.
func (g *Registry) Obtain(sessionID string, src SessionSource) *Hydrator {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.hydrators[sessionID]; ok {
		return h
	}
	h := NewHydrator(src, g.profiles, g.opts, g.logger)
	h.Start(context.Background())
	g.hydrators[sessionID] = h
	return h
}

// Get returns the hydrator for a session, or nil.
func (g *Registry) Get(sessionID string) *Hydrator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hydrators[sessionID]
}

// Rekey moves a hydrator under a new session ID after a token refresh.
func (g *Registry) Rekey(oldID, newID string) *Hydrator {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.hydrators[oldID]
	if !ok {
		return nil
	}
	delete(g.hydrators, oldID)
	g.hydrators[newID] = h
	return h
}

// Remove stops and drops the hydrator for a session.
func (g *Registry) Remove(sessionID string) {
	g.mu.Lock()
	h := g.hydrators[sessionID]
	delete(g.hydrators, sessionID)
	g.mu.Unlock()
	if h != nil {
		h.Stop()
	}
}

// Close stops every live hydrator. Called on server shutdown.
func (g *Registry) Close() {
	g.mu.Lock()
	hydrators := g.hydrators
	g.hydrators = make(map[string]*Hydrator)
	g.mu.Unlock()
	for _, h := range hydrators {
		h.Stop()
	}
}

// SessionSourceFunc adapts a closure to the SessionSource interface.
type SessionSourceFunc func(ctx context.Context) (*Session, error)

// Current implements SessionSource.
func (f SessionSourceFunc) Current(ctx context.Context) (*Session, error) {
	return f(ctx)
}
