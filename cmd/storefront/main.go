package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/backend"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/auth"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	storenats "github.com/abgdnv/storefront/pkg/nats"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application, starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	// create tracer provider
	tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		logger.Error("error creating tracer provider", slog.Any("error", err))
		return err
	}
	metrics, err := telemetry.NewMetrics(serviceName)
	if err != nil {
		return err
	}

	// connect to NATS; checkout and contact events leave the storefront through JetStream
	nc, err := storenats.NewClient(cfg.NATS)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := storenats.NewJetStreamContext(nc)
	if err != nil {
		nc.Close()
		return err
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := storenats.EnsureStream(startupCtx, js, cfg.NATS); err != nil {
		nc.Close()
		return err
	}
	publisher := storenats.NewNatsPublisher(js, cfg.NATS.PublishTimeout)

	verifier, err := auth.NewJWTVerifier(startupCtx, cfg.IdP)
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JWT verifier: %w", err)
	}

	backendClient := backend.NewClient(cfg.Backend, logger)
	checks := []rest.HealthCheck{
		{Name: "backend", Check: backendClient.Check},
		{Name: "nats", Check: func(context.Context) error {
			if status := nc.Status(); status != nats.CONNECTED {
				return fmt.Errorf("nats connection is %s", status)
			}
			return nil
		}},
	}

	// store fetches outlive requests but not the process
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = metrics.Handler()
	}
	deps, err := app.SetupDependencies(baseCtx, cfg, backendClient, publisher, verifier, checks, metricsHandler, logger)
	if err != nil {
		nc.Close()
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	httpServer := app.SetupHttpServer(deps)
	g.Go(func() error {
		logger.Info("Storefront started", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("storefront failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown the storefront, then stop in-flight store fetches
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down storefront...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		defer cancelBase()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	pprofServer := &http.Server{
		Addr:              cfg.PProf.Addr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	// drain NATS so buffered events are flushed
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Draining NATS connection")
		if err := nc.Drain(); err != nil {
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
		return nil
	})

	// gracefully shutdown tracer and meter providers
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down telemetry providers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %v", err)
		}
		if err := metrics.Provider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
