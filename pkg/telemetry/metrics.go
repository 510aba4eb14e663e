package telemetry

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics owns the meter provider and the Prometheus registry it exports to.
type Metrics struct {
	Provider *sdkmetric.MeterProvider
	registry *prom.Registry
}

// NewMetrics creates a meter provider backed by a Prometheus exporter and installs it globally,
// so otel.Meter(...) calls anywhere in the process report to /metrics.
func NewMetrics(serviceName string) (*Metrics, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(serviceResource(serviceName)),
	)
	otel.SetMeterProvider(provider)
	return &Metrics{Provider: provider, registry: registry}, nil
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
