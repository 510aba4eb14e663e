package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BackendConfig points the storefront at the REST backend that owns catalog and cart data.
type BackendConfig struct {
	URL            string               `koanf:"url"`
	Timeout        time.Duration        `koanf:"timeout"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// String returns a string representation of the backend configuration.
func (c *BackendConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Backend ---\n")
	b.WriteString(fmt.Sprintf("  backend.url: %s\n", c.URL))
	b.WriteString(fmt.Sprintf("  backend.timeout: %s\n", c.Timeout))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

func (c *BackendConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("backend URL is not configured")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid backend URL '%s': %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend URL scheme must be http or https, got: %s", u.Scheme)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be greater than 0")
	}
	return c.CircuitBreaker.Validate()
}
