package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NewClient connects to NATS. Drain on shutdown is bounded by cfg.DrainTimeout.
func NewClient(cfg config.NATSConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Url,
		nats.Timeout(cfg.Timeout),
		nats.DrainTimeout(cfg.DrainTimeout),
		nats.Name("storefront"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewJetStreamContext(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nil
}

// StreamConfig describes the stream capturing checkout and contact events.
func StreamConfig(cfg config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{messaging.CheckoutRequestedSubject, messaging.ContactSubmittedSubject},
		MaxAge:   cfg.MaxAge,
	}
}

// EnsureStream creates the storefront stream if it does not exist yet.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg config.NATSConfig) error {
	_, err := js.CreateStream(ctx, StreamConfig(cfg))
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}
	return nil
}
