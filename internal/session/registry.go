// Package session keeps the store and cart flow of every active shopper session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Session is the state a shopper keeps between requests.
type Session struct {
	ID    string
	Store *store.Store
	Cart  *cart.Flow
}

// Registry maps session ids onto sessions. Idle sessions expire after the
// configured TTL and the least recently used ones are evicted past Size.
type Registry struct {
	base         context.Context
	backend      store.Backend
	publisher    messaging.Publisher
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

func NewRegistry(base context.Context, cfg config.SessionConfig, backend store.Backend, publisher messaging.Publisher, fetchTimeout time.Duration, logger *slog.Logger) *Registry {
	r := &Registry{
		base:         base,
		backend:      backend,
		publisher:    publisher,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "session"),
	}
	r.sessions = expirable.NewLRU[string, *Session](cfg.Size, r.onEvict, cfg.TTL)
	return r
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions.Get(id); ok {
		return s
	}
	st := store.New(r.base, r.backend, r.fetchTimeout, r.logger)
	s := &Session{
		ID:    id,
		Store: st,
		Cart:  cart.NewFlow(st, r.publisher, r.logger),
	}
	r.sessions.Add(id, s)
	r.logger.Debug("Session created", "session_id", id)
	return s
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) onEvict(id string, _ *Session) {
	r.logger.Debug("Session evicted", "session_id", id)
}
