// Package app wires the storefront's components into an HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/contact"
	storefrontmw "github.com/abgdnv/storefront/internal/middleware"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/internal/view"
	"github.com/abgdnv/storefront/pkg/auth"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"

	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Sessions *session.Registry
	Renderer *view.Renderer
	Contact  *contact.Service
	Verifier auth.Verifier
	Checks   []rest.HealthCheck
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Config  *config.Config
	Logger  *slog.Logger
}

// SetupDependencies builds the per-process components. base bounds the lifetime of
// every store fetch and should be cancelled on shutdown.
func SetupDependencies(base context.Context, cfg *config.Config, backend store.Backend, publisher messaging.Publisher,
	verifier auth.Verifier, checks []rest.HealthCheck, metrics http.Handler, logger *slog.Logger) (*Dependencies, error) {

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	contactService, err := contact.NewService(publisher, logger)
	if err != nil {
		return nil, err
	}
	sessions := session.NewRegistry(base, cfg.Session, backend, publisher, cfg.Backend.Timeout, logger)

	return &Dependencies{
		Sessions: sessions,
		Renderer: renderer,
		Contact:  contactService,
		Verifier: verifier,
		Checks:   checks,
		Metrics:  metrics,
		Config:   cfg,
		Logger:   logger,
	}, nil
}

// SetupHttpHandler initializes the router with every storefront route and middleware.
// Used by tests to exercise the whole request path.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Sessions, deps.Renderer, deps.Contact, deps.Checks, rest.Options{
		RenderWait:    deps.Config.Render.Wait,
		SecureCookies: deps.Config.Session.Secure,
	}, deps.Logger)
	handler.RegisterRoutes(mux,
		storefrontmw.Session(deps.Config.Session),
		storefrontmw.Identify(deps.Verifier, deps.Logger),
	)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies) *http.Server {
	mux := SetupHttpHandler(deps)
	return server.NewHTTPServer(server.FromConfig(deps.Config.HTTPServer), mux)
}
