// Package app wires configuration, storage and the HTTP server together.
package app

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

	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/database"
	"github.com/emilythestrangee/qa-forum/backend/internal/memstore"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
	"github.com/emilythestrangee/qa-forum/backend/internal/server"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

const shutdownTimeout = 10 * time.Second

// backend is an opened voting store together with its health probe.
type backend struct {
	store  voting.Store
	health server.HealthChecker
	close  func() error
}

func openBackend(cfg *config.Config) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store := memstore.New()
		store.SeedDemo()
		slog.Warn("using in-memory store, data is lost on exit")
		return &backend{store: store, health: store, close: func() error { return nil }}, nil
	default:
		db, err := database.Open(cfg.DSN(), database.ParseLogLevel(cfg.DBLogLevel))
		if err != nil {
			return nil, err
		}
		return &backend{store: database.NewStore(db.DB()), health: db, close: db.Close}, nil
	}
}

// Serve runs the HTTP API until ctx is cancelled or a shutdown signal arrives.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Configuration loaded",
		slog.String("env", cfg.AppEnv),
		slog.String("port", cfg.Port),
		slog.String("store_driver", cfg.StoreDriver),
		slog.Duration("request_timeout", cfg.RequestTimeout))

	be, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Error("store close error", slog.String("error", err.Error()))
		}
	}()

	reg := metrics.NewRegistry()
	coordinator := voting.NewCoordinator(be.store,
		voting.WithMetrics(metrics.NewVoteMetrics(reg)),
		voting.WithLogger(logger),
	)

	httpServer := server.NewServer(cfg, server.Deps{
		Coordinator: coordinator,
		Health:      be.health,
		Registry:    reg,
		Logger:      logger,
	})

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// Migrate creates or updates the Postgres schema.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s, got %q", config.DriverPostgres, cfg.StoreDriver)
	}
	db, err := database.Open(cfg.DSN(), database.ParseLogLevel(cfg.DBLogLevel))
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	return db.Migrate(ctx)
}
