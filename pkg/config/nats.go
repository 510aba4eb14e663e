package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// NATSConfig configures the JetStream connection checkout and contact events are published on.
type NATSConfig struct {
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	// Stream is created on startup if missing and captures every storefront subject.
	Stream string `koanf:"stream"`
	// MaxAge bounds how long events wait for the payment and notification consumers.
	MaxAge time.Duration `koanf:"maxage"`
	// PublishTimeout bounds one publish including the stream acknowledgement.
	PublishTimeout time.Duration `koanf:"publishtimeout"`
	// DrainTimeout bounds flushing buffered events on shutdown.
	DrainTimeout time.Duration `koanf:"draintimeout"`
}

const (
	defaultNATSStream         = "STOREFRONT"
	defaultNATSMaxAge         = 72 * time.Hour
	defaultNATSPublishTimeout = 2 * time.Second
	defaultNATSDrainTimeout   = 5 * time.Second
)

// String returns a string representation of the NATS configuration.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  nats.url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  nats.timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  nats.stream: %s (maxage %s)\n", c.Stream, c.MaxAge))
	b.WriteString(fmt.Sprintf("  nats.publishtimeout: %s\n", c.PublishTimeout))
	b.WriteString(fmt.Sprintf("  nats.draintimeout: %s\n", c.DrainTimeout))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	if c.Stream == "" {
		log.Println("Using default value for nats stream")
		c.Stream = defaultNATSStream
	}
	if c.MaxAge <= 0 {
		log.Println("Using default value for nats maxage")
		c.MaxAge = defaultNATSMaxAge
	}
	if c.PublishTimeout <= 0 {
		log.Println("Using default value for nats publishtimeout")
		c.PublishTimeout = defaultNATSPublishTimeout
	}
	if c.DrainTimeout <= 0 {
		log.Println("Using default value for nats draintimeout")
		c.DrainTimeout = defaultNATSDrainTimeout
	}
	return nil
}
