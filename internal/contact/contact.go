// Package contact validates contact-page messages and hands them to the notification service.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"time"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Form is a contact-page submission.
type Form struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email,max=254"`
	Phone   string `form:"phone" validate:"omitempty,phone"`
	Message string `form:"message" validate:"required,min=10,max=2000"`
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		Message: strings.TrimSpace(f.Message),
	}
}

// ValidationError lists the problems with a form, keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %d invalid field(s)", storeerrors.ErrValidationFailure, len(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return storeerrors.ErrValidationFailure
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 -]{8,16}[0-9]$`)

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// Service validates forms and publishes accepted ones.
type Service struct {
	validate  *validator.Validate
	publisher messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(publisher messaging.Publisher, logger *slog.Logger) (*Service, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	if err := v.RegisterValidation("phone", validatePhone); err != nil {
		return nil, fmt.Errorf("failed to register phone validator: %w", err)
	}
	return &Service{
		validate:  v,
		publisher: publisher,
		logger:    logger.With("component", "contact"),
		now:       time.Now,
	}, nil
}

// Validate checks form and returns a *ValidationError describing every invalid field.
func (s *Service) Validate(form Form) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate contact form: %w", err)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = describe(fieldErr)
	}
	return &ValidationError{Fields: fields}
}

// Submit validates form and publishes it. Invalid forms are never published.
func (s *Service) Submit(ctx context.Context, form Form) (string, error) {
	form = form.Normalize()
	if err := s.Validate(form); err != nil {
		s.logger.InfoContext(ctx, "Contact form rejected", "error", err)
		return "", err
	}

	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.ContactSubmittedEvent{
		Carrier:     carrier,
		MessageID:   uuid.NewString(),
		Name:        form.Name,
		Email:       form.Email,
		Phone:       form.Phone,
		Message:     form.Message,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ContactSubmittedEvent", "error", err)
		return "", fmt.Errorf("failed to send contact message: %w", err)
	}
	s.logger.InfoContext(ctx, "Contact message sent", "message_id", event.MessageID)
	return event.MessageID, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "phone":
		return "Enter a valid phone number."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	default:
		return "failed on rule: " + fe.Tag()
	}
}
