package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
)

type ContactSubmittedEvent struct {
	Carrier     map[string]string `json:"carrier,omitempty"`
	MessageID   string            `json:"message_id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Message     string            `json:"message"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

func (e ContactSubmittedEvent) Subject() string {
	return messaging.ContactSubmittedSubject
}

func (e ContactSubmittedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
