package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// ShutdownConfig bounds each shutdown step: the HTTP server, pprof and the telemetry flush.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

const (
	defaultShutdownTimeout = 10 * time.Second
	maxShutdownTimeout     = 2 * time.Minute
)

// String returns a string representation of the ShutdownConfig.
func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		log.Println("Using default value for shutdown timeout")
		c.Timeout = defaultShutdownTimeout
	}
	if c.Timeout > maxShutdownTimeout {
		return fmt.Errorf("shutdown timeout must not exceed %s, got: %s", maxShutdownTimeout, c.Timeout)
	}
	return nil
}
