package config

import (
	"fmt"
	"net"
	"strings"
)

// PProfConfig runs net/http/pprof on its own listener, away from the storefront routes.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// String returns a string representation of the pprof configuration.
func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.addr: %s\n", c.Addr))
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid pprof address '%s': %w", c.Addr, err)
	}
	return nil
}
