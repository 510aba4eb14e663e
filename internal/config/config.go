// Package config holds the storefront service configuration.
package config

import (
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	IdP        config.IdP             `koanf:"idp"`
	NATS       config.NATSConfig      `koanf:"nats"`
	Backend    config.BackendConfig   `koanf:"backend"`
	Session    config.SessionConfig   `koanf:"session"`
	Render     config.RenderConfig    `koanf:"render"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Backend.String())
	b.WriteString(c.Session.String())
	b.WriteString(c.Render.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.IdP.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Log,
		&c.PProf,
		&c.Telemetry,
		&c.Shutdown,
		&c.IdP,
		&c.NATS,
		&c.Backend,
		&c.Session,
		&c.Render,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
