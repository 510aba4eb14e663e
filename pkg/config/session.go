package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

type SessionConfig struct {
	Size       int           `koanf:"size"`
	TTL        time.Duration `koanf:"ttl"`
	CookieName string        `koanf:"cookiename"`
	Secure     bool          `koanf:"secure"`
}

const defaultSessionCookieName = "sf_session"

// String returns a string representation of the session configuration.
func (c *SessionConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Session ---\n")
	b.WriteString(fmt.Sprintf("  size: %d\n", c.Size))
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	b.WriteString(fmt.Sprintf("  cookiename: %s\n", c.CookieName))
	b.WriteString(fmt.Sprintf("  secure: %t\n", c.Secure))
	return b.String()
}

func (c *SessionConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("session size must be greater than 0")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("session ttl must be greater than 0")
	}
	if c.CookieName == "" {
		log.Println("Using default value for session cookiename")
		c.CookieName = defaultSessionCookieName
	}
	return nil
}
