package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cartBackend struct {
	mu    sync.Mutex
	cart  string
	calls int
}

func (b *cartBackend) List(ctx context.Context, path string, userID string) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return json.RawMessage(b.cart), nil
}

func (b *cartBackend) AddCartLine(ctx context.Context, userID string, productID string, delta int) (json.RawMessage, error) {
	return json.RawMessage(`{"id":"l9","product_id":"` + productID + `","quantity":1}`), nil
}

func (b *cartBackend) UpdateCartLine(ctx context.Context, userID string, lineID string, delta int) (json.RawMessage, error) {
	return nil, nil
}

func (b *cartBackend) DeleteCartLine(ctx context.Context, userID string, lineID string) error {
	return nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestFlow(cart string, pub messaging.Publisher) *Flow {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(context.Background(), &cartBackend{cart: cart}, time.Second, logger)
	return NewFlow(s, pub, logger)
}

const twoLines = `[{"id":"l1","product_id":"p1","name":"Gel","quantity":2,"selling_price":100},{"id":"l2","product_id":"p2","name":"Kit","quantity":1,"selling_price":50}]`

func TestFlow_Identify(t *testing.T) {
	testCases := []struct {
		name string
		cart string
		want State
	}{
		{name: "lines make the cart populated", cart: twoLines, want: Populated},
		{name: "no lines make the cart empty", cart: `[]`, want: Empty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFlow(tc.cart, &MockPublisher{})
			assert.Equal(t, Guest, f.State())

			assert.Equal(t, tc.want, f.Identify(context.Background(), "u1"))
		})
	}
}

func TestFlow_GuestCannotEditCart(t *testing.T) {
	f := newTestFlow(twoLines, &MockPublisher{})

	assert.ErrorIs(t, f.Add(context.Background(), "p1"), storeerrors.ErrNotIdentified)
	assert.ErrorIs(t, f.ChangeQuantity(context.Background(), "l1", 1), storeerrors.ErrNotIdentified)
	_, err := f.BeginCheckout(context.Background())
	assert.ErrorIs(t, err, storeerrors.ErrNotIdentified)
}

func TestFlow_RemovingLastLineEmptiesCart(t *testing.T) {
	f := newTestFlow(`[{"id":"l1","quantity":1}]`, &MockPublisher{})
	require.Equal(t, Populated, f.Identify(context.Background(), "u1"))

	require.NoError(t, f.RemoveLine(context.Background(), "l1"))

	assert.Equal(t, Empty, f.State())
}

func TestFlow_AddToEmptyCartPopulates(t *testing.T) {
	f := newTestFlow(`[]`, &MockPublisher{})
	require.Equal(t, Empty, f.Identify(context.Background(), "u1"))

	require.NoError(t, f.Add(context.Background(), "p3"))

	assert.Equal(t, Populated, f.State())
}

func TestFlow_CheckoutOfEmptyCart(t *testing.T) {
	f := newTestFlow(`[]`, &MockPublisher{})
	f.Identify(context.Background(), "u1")

	_, err := f.BeginCheckout(context.Background())

	assert.ErrorIs(t, err, storeerrors.ErrCartEmpty)
}

func TestFlow_CheckoutConfirm(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.CheckoutRequestedEvent) bool {
		return e.UserID == "u1" && len(e.Lines) == 2 && e.Subtotal == 250 && e.Lines[0].LineID == "l1"
	})).Return(nil).Once()
	f := newTestFlow(twoLines, pub)
	f.Identify(context.Background(), "u1")

	id, err := f.BeginCheckout(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, Submitting, f.State())
	assert.Equal(t, id, f.CheckoutID())
	assert.ErrorIs(t, f.ChangeQuantity(context.Background(), "l1", 1), storeerrors.ErrCheckoutInProgress)
	assert.ErrorIs(t, f.RemoveLine(context.Background(), "l1"), storeerrors.ErrCheckoutInProgress)
	_, err = f.BeginCheckout(context.Background())
	assert.ErrorIs(t, err, storeerrors.ErrCheckoutInProgress)

	require.NoError(t, f.ConfirmCheckout(context.Background()))

	assert.Equal(t, Guest, f.State())
	assert.Empty(t, f.CheckoutID())
	pub.AssertExpectations(t)
}

func TestFlow_CheckoutCancelKeepsCart(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	f := newTestFlow(twoLines, pub)
	f.Identify(context.Background(), "u1")
	_, err := f.BeginCheckout(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.CancelCheckout(context.Background()))

	assert.Equal(t, Populated, f.State())
	assert.ErrorIs(t, f.CancelCheckout(context.Background()), storeerrors.ErrNotSubmitting)
	assert.ErrorIs(t, f.ConfirmCheckout(context.Background()), storeerrors.ErrNotSubmitting)
}

func TestFlow_PublishFailureStaysPopulated(t *testing.T) {
	boom := errors.New("nats down")
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(boom).Once()
	f := newTestFlow(twoLines, pub)
	f.Identify(context.Background(), "u1")

	_, err := f.BeginCheckout(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Populated, f.State())
}

func TestFlow_SignOut(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	f := newTestFlow(twoLines, pub)
	f.Identify(context.Background(), "u1")
	_, err := f.BeginCheckout(context.Background())
	require.NoError(t, err)

	f.SignOut()

	assert.Equal(t, Guest, f.State())
	assert.Empty(t, f.CheckoutID())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "guest", Guest.String())
	assert.Equal(t, "submitting", Submitting.String())
}
