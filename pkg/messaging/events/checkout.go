package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
)

// CheckoutLine is one cart line as seen at submission time.
type CheckoutLine struct {
	LineID    string  `json:"line_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CheckoutRequestedEvent struct {
	Carrier     map[string]string `json:"carrier,omitempty"`
	CheckoutID  string            `json:"checkout_id"`
	UserID      string            `json:"user_id"`
	Lines       []CheckoutLine    `json:"lines"`
	Subtotal    float64           `json:"subtotal"`
	RequestedAt time.Time         `json:"requested_at"`
}

func (e CheckoutRequestedEvent) Subject() string {
	return messaging.CheckoutRequestedSubject
}

func (e CheckoutRequestedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
