package config

import (
	"fmt"
	"strings"
	"time"
)

// RenderConfig bounds how long a page waits for its resources before rendering skeletons.
type RenderConfig struct {
	Wait time.Duration `koanf:"wait"`
}

// String returns a string representation of the render configuration.
func (c *RenderConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Render ---\n")
	b.WriteString(fmt.Sprintf("  wait: %s\n", c.Wait))
	return b.String()
}

func (c *RenderConfig) Validate() error {
	if c.Wait < 0 {
		return fmt.Errorf("render wait must not be negative")
	}
	return nil
}
