// Package page mounts a page's resources on the store for the duration of one request.
package page

import (
	"context"
	"time"

	"github.com/abgdnv/storefront/internal/resource"
	"github.com/abgdnv/storefront/internal/store"
)

// Controller is the page-level consumer of a set of resources.
type Controller struct {
	store *store.Store
	sub   *store.Subscription
}

// Mount subscribes to names, starts a fetch for each one that is idle or failed,
// and waits until every fetch settles, the wait budget elapses or ctx ends.
// Resources that are still loading afterwards render as placeholders.
func Mount(ctx context.Context, s *store.Store, wait time.Duration, names ...resource.Name) *Controller {
	c := &Controller{store: s, sub: s.Subscribe(names...)}

	snap := s.Snapshot()
	pending := make([]<-chan struct{}, 0, len(names))
	for _, n := range names {
		// Loading resources hand back the in-flight channel without a new request.
		switch snap.Status(n) {
		case resource.Idle, resource.Failed, resource.Loading:
			pending = append(pending, s.Fetch(n))
		}
	}
	await(ctx, wait, pending)
	return c
}

// Refresh refetches names whatever their status and waits like Mount.
func (c *Controller) Refresh(ctx context.Context, wait time.Duration, names ...resource.Name) {
	pending := make([]<-chan struct{}, 0, len(names))
	for _, n := range names {
		pending = append(pending, c.store.Fetch(n))
	}
	await(ctx, wait, pending)
}

// Snapshot returns the state to render.
func (c *Controller) Snapshot() store.Snapshot {
	return c.store.Snapshot()
}

// Unmount releases the page's subscription. Responses still in flight that no
// other page watches are discarded.
func (c *Controller) Unmount() {
	c.sub.Close()
}

func await(ctx context.Context, wait time.Duration, pending []<-chan struct{}) {
	if wait <= 0 || len(pending) == 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for _, done := range pending {
		select {
		case <-done:
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}
