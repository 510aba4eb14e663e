package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

type NatsPublisher struct {
	js      jetstream.JetStream
	timeout time.Duration
}

// NewNatsPublisher creates a publisher. Each publish waits at most timeout for the stream ack;
// a zero timeout leaves the caller's deadline in charge.
func NewNatsPublisher(js jetstream.JetStream, timeout time.Duration) *NatsPublisher {
	return &NatsPublisher{js: js, timeout: timeout}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if _, err = p.js.Publish(ctx, event.Subject(), data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", event.Subject(), err)
	}
	return nil
}
