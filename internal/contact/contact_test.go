package contact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestService(t *testing.T, pub messaging.Publisher) *Service {
	t.Helper()
	s, err := NewService(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

var validForm = Form{Name: "Asha", Email: "asha@example.com", Phone: "+91 98765 43210", Message: "Do you ship to Pune?"}

func TestService_Validate(t *testing.T) {
	testCases := []struct {
		name       string
		form       Form
		wantFields []string
	}{
		{name: "valid", form: validForm},
		{name: "valid without phone", form: Form{Name: "A", Email: "a@b.co", Message: "Hello there!"}},
		{name: "everything missing", form: Form{}, wantFields: []string{"name", "email", "message"}},
		{name: "bad email", form: Form{Name: "A", Email: "nope", Message: "Hello there!"}, wantFields: []string{"email"}},
		{name: "bad phone", form: Form{Name: "A", Email: "a@b.co", Phone: "12", Message: "Hello there!"}, wantFields: []string{"phone"}},
		{name: "short message", form: Form{Name: "A", Email: "a@b.co", Message: "hi"}, wantFields: []string{"message"}},
	}

	s := newTestService(t, &MockPublisher{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(tc.form)

			if len(tc.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, storeerrors.ErrValidationFailure)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Len(t, vErr.Fields, len(tc.wantFields))
			for _, f := range tc.wantFields {
				assert.Contains(t, vErr.Fields, f)
			}
		})
	}
}

func TestService_SubmitPublishes(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.ContactSubmittedEvent) bool {
		return e.Name == "Asha" && e.Email == "asha@example.com" && e.MessageID != ""
	})).Return(nil).Once()
	s := newTestService(t, pub)

	form := validForm
	form.Name = "  Asha "
	id, err := s.Submit(context.Background(), form)

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	pub.AssertExpectations(t)
}

func TestService_SubmitInvalidIsNotPublished(t *testing.T) {
	pub := &MockPublisher{}
	s := newTestService(t, pub)

	_, err := s.Submit(context.Background(), Form{Name: "A"})

	assert.ErrorIs(t, err, storeerrors.ErrValidationFailure)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_SubmitPublishFailure(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats down")).Once()
	s := newTestService(t, pub)

	_, err := s.Submit(context.Background(), validForm)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, storeerrors.ErrValidationFailure)
}
