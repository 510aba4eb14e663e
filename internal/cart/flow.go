// Package cart drives the cart and checkout flow of one shopper session on top of the store.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/resource"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// State is the position of a session in the cart flow.
type State int

const (
	Guest State = iota
	Empty
	Populated
	Submitting
)

func (s State) String() string {
	switch s {
	case Guest:
		return "guest"
	case Empty:
		return "empty"
	case Populated:
		return "populated"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Flow is the cart state machine of one session.
// Guest, Empty and Populated are derived from the store; Submitting is held here.
type Flow struct {
	store     *store.Store
	publisher messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	checkoutID string
}

func NewFlow(s *store.Store, publisher messaging.Publisher, logger *slog.Logger) *Flow {
	return &Flow{
		store:     s,
		publisher: publisher,
		logger:    logger.With("component", "cart"),
		now:       time.Now,
	}
}

// State reports the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state()
}

// CheckoutID is the id of the checkout being submitted, empty outside Submitting.
func (f *Flow) CheckoutID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkoutID
}

func (f *Flow) state() State {
	snap := f.store.Snapshot()
	switch {
	case snap.UserID == "":
		return Guest
	case f.checkoutID != "":
		return Submitting
	case len(snap.CartItems.Items) == 0:
		return Empty
	default:
		return Populated
	}
}

// Identify confirms the shopper identity and loads their cart. An empty userID signs out.
// A checkout being submitted by the same shopper is kept.
func (f *Flow) Identify(ctx context.Context, userID string) State {
	f.mu.Lock()
	if f.store.UserID() != userID {
		f.checkoutID = ""
		f.store.SetUser(userID)
	}
	f.mu.Unlock()

	if userID != "" {
		status := f.store.Snapshot().CartItems.Status
		if status == resource.Idle || status == resource.Failed {
			select {
			case <-f.store.Fetch(resource.CartItems):
			case <-ctx.Done():
			}
		}
	}
	return f.State()
}

// SignOut returns the session to Guest from any state.
func (f *Flow) SignOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkoutID = ""
	f.store.SetUser("")
}

// ChangeQuantity adjusts a line by delta.
func (f *Flow) ChangeQuantity(ctx context.Context, lineID string, delta int) error {
	if err := f.checkEditable(); err != nil {
		return err
	}
	return f.store.MutateCartQuantity(ctx, lineID, delta)
}

// RemoveLine deletes a line. Removing the last line moves the flow to Empty.
func (f *Flow) RemoveLine(ctx context.Context, lineID string) error {
	if err := f.checkEditable(); err != nil {
		return err
	}
	return f.store.RemoveCartLine(ctx, lineID)
}

// Add puts one unit of a product into the cart.
func (f *Flow) Add(ctx context.Context, productID string) error {
	if err := f.checkEditable(); err != nil {
		return err
	}
	return f.store.AddToCart(ctx, productID)
}

func (f *Flow) checkEditable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state() {
	case Guest:
		return storeerrors.ErrNotIdentified
	case Submitting:
		return storeerrors.ErrCheckoutInProgress
	}
	return nil
}

// BeginCheckout hands the cart to the payment collaborator and moves to Submitting.
// The cart is left untouched until the checkout is confirmed or cancelled.
// If the hand-off cannot be published the flow stays Populated.
func (f *Flow) BeginCheckout(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state() {
	case Guest:
		return "", storeerrors.ErrNotIdentified
	case Submitting:
		return "", storeerrors.ErrCheckoutInProgress
	case Empty:
		return "", storeerrors.ErrCartEmpty
	}

	snap := f.store.Snapshot()
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.CheckoutRequestedEvent{
		Carrier:     carrier,
		CheckoutID:  uuid.NewString(),
		UserID:      snap.UserID,
		Lines:       make([]events.CheckoutLine, 0, len(snap.CartItems.Items)),
		RequestedAt: f.now().UTC(),
	}
	for _, l := range snap.CartItems.Items {
		event.Lines = append(event.Lines, events.CheckoutLine{
			LineID:    l.ID.String(),
			ProductID: l.ProductID.String(),
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
		event.Subtotal += l.LineTotal()
	}

	if err := f.publisher.Publish(ctx, event); err != nil {
		f.logger.ErrorContext(ctx, "Failed to publish CheckoutRequestedEvent", "error", err)
		return "", fmt.Errorf("failed to submit checkout: %w", err)
	}
	f.checkoutID = event.CheckoutID
	f.logger.InfoContext(ctx, "Checkout submitted", "checkout_id", event.CheckoutID, "lines", len(event.Lines))
	return event.CheckoutID, nil
}

// ConfirmCheckout completes a submitted checkout. Identity and cart are cleared.
func (f *Flow) ConfirmCheckout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state() != Submitting {
		return storeerrors.ErrNotSubmitting
	}
	f.logger.InfoContext(ctx, "Checkout confirmed", "checkout_id", f.checkoutID)
	f.checkoutID = ""
	f.store.SetUser("")
	return nil
}

// CancelCheckout abandons a submitted checkout and returns to the preserved cart.
func (f *Flow) CancelCheckout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state() != Submitting {
		return storeerrors.ErrNotSubmitting
	}
	f.logger.InfoContext(ctx, "Checkout cancelled", "checkout_id", f.checkoutID)
	f.checkoutID = ""
	return nil
}
