package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// TelemetryConfig covers trace export and the Prometheus /metrics endpoint.
type TelemetryConfig struct {
	Traces  TracesConfig  `koanf:"traces"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type TracesConfig struct {
	OtlpHttp OtlpHttpConfig `koanf:"otlphttp"`
	// SampleRatio is the share of root traces kept. Page requests are frequent, so production runs below 1.
	SampleRatio float64 `koanf:"sampleratio"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

// MetricsConfig controls whether store fetch counters are served at /metrics.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

const defaultTraceSampleRatio = 1.0

// String returns a string representation of the TelemetryConfig.
func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telemetry ---\n")
	b.WriteString(fmt.Sprintf("  traces.otlphttp.endpoint: %s\n", c.Traces.OtlpHttp.Endpoint))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.insecure: %v\n", c.Traces.OtlpHttp.Insecure))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.timeout: %v\n", c.Traces.OtlpHttp.Timeout))
	b.WriteString(fmt.Sprintf("  traces.sampleratio: %.2f\n", c.Traces.SampleRatio))
	b.WriteString(fmt.Sprintf("  metrics.enabled: %t\n", c.Metrics.Enabled))
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if c.Traces.OtlpHttp.Endpoint == "" {
		return fmt.Errorf("OTel endpoint is not configured")
	}
	if c.Traces.OtlpHttp.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	if c.Traces.SampleRatio < 0 || c.Traces.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be between 0 and 1, got: %v", c.Traces.SampleRatio)
	}
	if c.Traces.SampleRatio == 0 {
		log.Println("Using default value for traces sampleratio")
		c.Traces.SampleRatio = defaultTraceSampleRatio
	}
	return nil
}
