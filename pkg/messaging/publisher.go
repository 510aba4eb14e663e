package messaging

import (
	"context"
)

const (
	// CheckoutRequestedSubject hands a submitted cart to the payment collaborator.
	CheckoutRequestedSubject = "storefront.checkout.requested"
	// ContactSubmittedSubject carries contact-page messages to the notification service.
	ContactSubmittedSubject = "storefront.contact.submitted"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
