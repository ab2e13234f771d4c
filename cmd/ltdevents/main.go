// Command ltdevents bridges documentation control-plane webhooks onto a
// message broker topic. Startup order matters: schemas are registered with
// the registry before the HTTP server accepts any traffic.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ltdevents/internal/bridge"
	"ltdevents/internal/config"
	"ltdevents/internal/logging"
	"ltdevents/internal/schemaregistry"
	"ltdevents/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Profile, cfg.LogLevel)
	log.Info("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	metrics := bridge.NewMetrics(prometheus.DefaultRegisterer)
	meta := bridge.AppMetadata{Name: cfg.Name, Version: cfg.Version}

	var handler *bridge.Handler
	if cfg.RegistryURL == "" {
		log.Info("schema registry is not configured, skipping schema registration and publication")
		handler = bridge.NewHandler(log, nil, nil, metrics, meta)
	} else {
		manager, err := schemaregistry.NewManager(
			schemaregistry.NewConfluentRegistry(cfg.RegistryURL),
			cfg.SchemaSuffix,
			cfg.SchemaCompatibility,
			log,
		)
		if err != nil {
			return err
		}
		// Serving with an incomplete schema set would corrupt downstream
		// consumers, so registration failure aborts startup.
		if err := manager.RegisterAll(); err != nil {
			return fmt.Errorf("schema registration failed: %w", err)
		}
		log.Info("finished registering schemas")

		wmPublisher, err := transport.NewPublisher(cfg, logging.Watermill(log))
		if err != nil {
			return fmt.Errorf("failed to build %s publisher: %w", cfg.PubSubSystem, err)
		}
		defer wmPublisher.Close()

		publisher, err := bridge.NewPublisher(wmPublisher, cfg.Topic)
		if err != nil {
			return err
		}
		handler = bridge.NewHandler(log, manager, publisher, metrics, meta)
	}

	router := handler.Router()
	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
