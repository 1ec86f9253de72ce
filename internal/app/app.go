// Package app provides the top-level application lifecycle management for
// the comment service. It wires together all dependencies (stores, caches,
// blob storage, services, and notifications) and runs the HTTP server, the
// WebSocket hub, the enrichment workers, and the export pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forecastlabs/commentd/internal/config"
	"github.com/forecastlabs/commentd/internal/pipeline"
	"github.com/forecastlabs/commentd/internal/server"
	"github.com/forecastlabs/commentd/internal/server/handler"
	"github.com/forecastlabs/commentd/internal/server/ws"
	"github.com/forecastlabs/commentd/internal/service"
	"github.com/forecastlabs/commentd/internal/worker"
)

// shutdownTimeout bounds the graceful HTTP shutdown after the run context
// is cancelled.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// application goroutines, and blocks until the context is cancelled. On
// return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Build services.
	attribution := service.NewAttributionService(deps.CommentStore, deps.BetStore, a.logger)

	var notifier service.CommentNotifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}

	commentSvc := service.NewCommentService(
		deps.CommentStore,
		deps.BetStore,
		deps.UserStore,
		deps.MarketStore,
		deps.MarketCache,
		deps.Ledger,
		deps.AuditStore,
		deps.SignalBus,
		notifier,
		attribution,
		a.logger,
	)
	sessionSvc := service.NewSessionService(deps.UserStore, deps.SessionStore, a.logger)

	// Background workers and the WebSocket hub.
	enricher := worker.NewEnricher(a.cfg.Enricher.Workers, a.logger)
	hub := ws.NewHub(deps.SignalBus, a.logger)

	// HTTP server.
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Comments: handler.NewCommentHandler(commentSvc, enricher, a.logger),
		Sessions: handler.NewSessionHandler(sessionSvc, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, sessionSvc, deps.RateLimiter, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return enricher.Run(ctx)
	})

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})

	// Export pipeline.
	if a.cfg.Export.Enabled && deps.BlobWriter != nil {
		exporter := pipeline.NewExporter(
			deps.CommentStore,
			deps.BlobWriter,
			a.cfg.Export.Interval.Duration,
			a.cfg.Export.Prefix,
			a.logger,
		)
		g.Go(func() error {
			return exporter.RunInterval(ctx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
