// Package store holds the per-session data-fetch store: one loading/error/data
// triple per resource, fed by the backend and changed only through reducers.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storefront/internal/catalog"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/resource"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Backend is the subset of the backend client the store needs.
type Backend interface {
	List(ctx context.Context, path string, userID string) (json.RawMessage, error)
	AddCartLine(ctx context.Context, userID string, productID string, delta int) (json.RawMessage, error)
	UpdateCartLine(ctx context.Context, userID string, lineID string, delta int) (json.RawMessage, error)
	DeleteCartLine(ctx context.Context, userID string, lineID string) error
}

const (
	outcomeLoaded    = "loaded"
	outcomeFailed    = "failed"
	outcomeDiscarded = "discarded"
)

// Snapshot is a consistent copy of every resource, taken under the store lock.
type Snapshot struct {
	UserID      string
	Headlines   resource.State[catalog.Headline]
	Banners     resource.State[catalog.Banner]
	Collections resource.State[catalog.Collection]
	Products    resource.State[catalog.Product]
	Reels       resource.State[catalog.Reel]
	CartItems   resource.State[catalog.CartLine]
}

// Status returns the status of the named resource.
func (s Snapshot) Status(name resource.Name) resource.Status {
	switch name {
	case resource.Headlines:
		return s.Headlines.Status
	case resource.Banners:
		return s.Banners.Status
	case resource.Collections:
		return s.Collections.Status
	case resource.Products:
		return s.Products.Status
	case resource.Reels:
		return s.Reels.Status
	case resource.CartItems:
		return s.CartItems.Status
	}
	return resource.Idle
}

// Store is the data-fetch store of one shopper session. It is safe for concurrent use.
type Store struct {
	base    context.Context
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
	fetches metric.Int64Counter

	mu       sync.Mutex
	userID   string
	watchers map[resource.Name]int
	pending  map[catalog.ID]bool

	headlines   *slot[catalog.Headline]
	banners     *slot[catalog.Banner]
	collections *slot[catalog.Collection]
	products    *slot[catalog.Product]
	reels       *slot[catalog.Reel]
	cart        *slot[catalog.CartLine]
	slots       map[resource.Name]fetchSlot
}

// New creates a store. Fetches run on base with the given timeout so that a
// finished page request does not cancel a fetch another consumer shares.
func New(base context.Context, backend Backend, timeout time.Duration, logger *slog.Logger) *Store {
	fetches, err := otel.Meter("github.com/abgdnv/storefront/internal/store").Int64Counter(
		"storefront_resource_fetches",
		metric.WithDescription("Settled resource fetches by resource and outcome"),
	)
	if err != nil {
		logger.Error("Failed to create fetch counter", "error", err)
	}

	s := &Store{
		base:        base,
		backend:     backend,
		timeout:     timeout,
		logger:      logger.With("component", "store"),
		fetches:     fetches,
		watchers:    make(map[resource.Name]int),
		pending:     make(map[catalog.ID]bool),
		headlines:   newSlot("headlines", catalog.DecodeHeadlines),
		banners:     newSlot("banners", catalog.DecodeBanners),
		collections: newSlot("collections", catalog.DecodeCollections),
		products:    newSlot("products", catalog.DecodeProducts),
		reels:       newSlot("reels", catalog.DecodeReels),
		cart:        newSlot("cart", catalog.DecodeCartLines),
	}
	s.slots = map[resource.Name]fetchSlot{
		resource.Headlines:   s.headlines,
		resource.Banners:     s.banners,
		resource.Collections: s.collections,
		resource.Products:    s.products,
		resource.Reels:       s.reels,
		resource.CartItems:   s.cart,
	}
	return s
}

// Subscription marks its resources as watched until Close is called.
type Subscription struct {
	store *Store
	names []resource.Name
	once  sync.Once
}

// Subscribe registers a consumer of the named resources.
func (s *Store) Subscribe(names ...resource.Name) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.watchers[n]++
	}
	return &Subscription{store: s, names: names}
}

// Close unregisters the consumer. Fetches it was waiting on that no one else
// watches are discarded when they settle. Close is idempotent.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()
		for _, n := range sub.names {
			if sub.store.watchers[n] > 0 {
				sub.store.watchers[n]--
			}
		}
	})
}

// Fetch starts loading the named resource unless a fetch is already in flight,
// in which case the in-flight completion channel is returned and no request is
// made. The channel is closed once the outcome has been reduced into the store.
// Failures are recorded on the resource, never returned.
func (s *Store) Fetch(name resource.Name) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[name]
	if !ok {
		s.logger.Warn("Fetch of unknown resource", "resource", name, "error", storeerrors.ErrUnknownResource)
		return closedChan()
	}
	if name == resource.CartItems && s.userID == "" {
		return closedChan()
	}
	if f := sl.inFlight(); f != nil {
		return f.done
	}

	f := &flight{
		done:    make(chan struct{}),
		watched: s.watchers[name] > 0,
	}
	if name == resource.CartItems {
		f.userID = s.userID
	}
	sl.start(f)
	go s.run(name, sl, f)
	return f.done
}

func (s *Store) run(name resource.Name, sl fetchSlot, f *flight) {
	defer close(f.done)

	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()
	raw, err := s.backend.List(ctx, sl.path(), f.userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := outcomeLoaded
	switch {
	case sl.inFlight() != f,
		name == resource.CartItems && f.userID != s.userID,
		f.watched && s.watchers[name] == 0:
		sl.discard(f)
		outcome = outcomeDiscarded
	case err != nil:
		sl.fail(err)
		outcome = outcomeFailed
	default:
		if derr := sl.succeed(raw); derr != nil {
			sl.fail(derr)
			err = derr
			outcome = outcomeFailed
		}
	}

	if err != nil && outcome == outcomeFailed {
		s.logger.WarnContext(ctx, "Resource fetch failed", "resource", name, "error", err)
	} else {
		s.logger.DebugContext(ctx, "Resource fetch settled", "resource", name, "outcome", outcome)
	}
	if s.fetches != nil {
		s.fetches.Add(s.base, 1, metric.WithAttributes(
			attribute.String("resource", string(name)),
			attribute.String("outcome", outcome),
		))
	}
}

// SetUser switches the shopper identity. A change resets the cart to idle and
// causes in-flight cart responses for the previous identity to be discarded.
func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == userID {
		return
	}
	s.userID = userID
	s.cart.reset()
	clear(s.pending)
}

// UserID returns the current shopper identity, empty for guests.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Snapshot copies every resource state for rendering.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		UserID:      s.userID,
		Headlines:   s.headlines.state,
		Banners:     s.banners.state,
		Collections: s.collections.state,
		Products:    s.products.state,
		Reels:       s.reels.state,
		CartItems:   s.cart.state,
	}
}

// MutateCartQuantity changes a line's quantity by delta. A result below 1 is
// rejected without a request, as is a second change while one is outstanding
// for the same line. Server and network failures are recorded on the cart and
// also returned so the caller can surface them. An echo listing the whole cart
// causes a refetch.
func (s *Store) MutateCartQuantity(ctx context.Context, lineID string, delta int) error {
	s.mu.Lock()
	userID := s.userID
	if userID == "" {
		s.mu.Unlock()
		return storeerrors.ErrNotIdentified
	}
	line, found := findLine(s.cart.state.Items, catalog.ID(lineID))
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", storeerrors.ErrCartLineNotFound, lineID)
	}
	if delta == 0 {
		s.mu.Unlock()
		return nil
	}
	newQty := line.Quantity + delta
	if newQty < 1 {
		s.mu.Unlock()
		return storeerrors.ErrQuantityBelowMinimum
	}
	if s.pending[line.ID] {
		s.mu.Unlock()
		return storeerrors.ErrCartLineBusy
	}
	s.pending[line.ID] = true
	s.mu.Unlock()

	raw, err := s.backend.UpdateCartLine(ctx, userID, lineID, delta)

	s.mu.Lock()
	if s.userID != userID {
		s.mu.Unlock()
		return nil
	}
	delete(s.pending, line.ID)

	if err != nil {
		s.cart.state = CartMutationFailed(s.cart.state, err)
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Cart quantity update failed", "line_id", lineID, "error", err)
		return err
	}
	echo, err := catalog.DecodeCartEcho(raw)
	if err != nil {
		s.cart.state = CartMutationFailed(s.cart.state, err)
		s.mu.Unlock()
		return err
	}
	if echo.Listing {
		s.mu.Unlock()
		s.awaitCart(ctx)
		return nil
	}
	confirmed := line
	confirmed.Quantity = newQty
	if echo.Line != nil {
		confirmed = mergeLine(confirmed, *echo.Line, echo.QuantityKnown)
	}
	s.cart.state = LineUpserted(s.cart.state, confirmed)
	s.mu.Unlock()
	return nil
}

// RemoveCartLine deletes a line. On failure the line is kept and the error recorded.
func (s *Store) RemoveCartLine(ctx context.Context, lineID string) error {
	s.mu.Lock()
	userID := s.userID
	if userID == "" {
		s.mu.Unlock()
		return storeerrors.ErrNotIdentified
	}
	if _, found := findLine(s.cart.state.Items, catalog.ID(lineID)); !found {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", storeerrors.ErrCartLineNotFound, lineID)
	}
	if s.pending[catalog.ID(lineID)] {
		s.mu.Unlock()
		return storeerrors.ErrCartLineBusy
	}
	s.pending[catalog.ID(lineID)] = true
	s.mu.Unlock()

	err := s.backend.DeleteCartLine(ctx, userID, lineID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != userID {
		return nil
	}
	delete(s.pending, catalog.ID(lineID))

	if err != nil {
		s.cart.state = CartMutationFailed(s.cart.state, err)
		s.logger.WarnContext(ctx, "Cart line removal failed", "line_id", lineID, "error", err)
		return err
	}
	s.cart.state = LineRemoved(s.cart.state, catalog.ID(lineID))
	return nil
}

// AddToCart adds one unit of a product. The line the backend returns is upserted;
// when it returns no single line the cart is refetched.
func (s *Store) AddToCart(ctx context.Context, productID string) error {
	userID := s.UserID()
	if userID == "" {
		return storeerrors.ErrNotIdentified
	}

	raw, err := s.backend.AddCartLine(ctx, userID, productID, 1)

	s.mu.Lock()
	if s.userID != userID {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.cart.state = CartMutationFailed(s.cart.state, err)
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Add to cart failed", "product_id", productID, "error", err)
		return err
	}
	echo, err := catalog.DecodeCartEcho(raw)
	if err != nil {
		s.cart.state = CartMutationFailed(s.cart.state, err)
		s.mu.Unlock()
		return err
	}
	if echo.Line != nil {
		line := *echo.Line
		if existing, found := findLine(s.cart.state.Items, line.ID); found {
			held := existing
			held.Quantity = existing.Quantity + 1
			line = mergeLine(held, line, echo.QuantityKnown)
		}
		s.cart.state = LineUpserted(s.cart.state, line)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.awaitCart(ctx)
	return nil
}

// awaitCart refetches the cart and waits for it to settle or for ctx to end.
func (s *Store) awaitCart(ctx context.Context) {
	select {
	case <-s.Fetch(resource.CartItems):
	case <-ctx.Done():
	}
}

func findLine(lines []catalog.CartLine, id catalog.ID) (catalog.CartLine, bool) {
	for _, l := range lines {
		if l.ID == id {
			return l, true
		}
	}
	return catalog.CartLine{}, false
}

// mergeLine overlays the fields the backend echoed onto the line we already hold.
// The held quantity stands unless the echo carried one.
func mergeLine(base, echoed catalog.CartLine, quantityKnown bool) catalog.CartLine {
	out := base
	out.ID = echoed.ID
	if quantityKnown {
		out.Quantity = echoed.Quantity
	}
	if echoed.ProductID != "" {
		out.ProductID = echoed.ProductID
	}
	if echoed.Name != "" {
		out.Name = echoed.Name
	}
	if echoed.Image != "" {
		out.Image = echoed.Image
	}
	if echoed.UnitPrice != 0 {
		out.UnitPrice = echoed.UnitPrice
	}
	if echoed.OriginalPrice != 0 {
		out.OriginalPrice = echoed.OriginalPrice
	}
	return out
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
