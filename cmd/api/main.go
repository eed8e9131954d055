package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/cve-advisor/internal/application/contexts"
	"github.com/bryanwahyu/cve-advisor/internal/bootstrap"
	"github.com/bryanwahyu/cve-advisor/internal/config"
	"github.com/bryanwahyu/cve-advisor/internal/infra/httpserver"
	"github.com/bryanwahyu/cve-advisor/internal/middleware"
)

// runDrainTimeout bounds how long shutdown waits for queued report runs.
const runDrainTimeout = 60 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "advisor-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	logger := bootstrap.Logger(cfg, "api")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctxSvc := contexts.NewService(ctx, store.Persister, logger)
	metrics := middleware.NewMetrics()

	deps := bootstrap.PipelineDeps{Contexts: ctxSvc, History: store.History, Observer: metrics}
	archive, err := bootstrap.Archive(ctx, cfg, logger.Named("archive"))
	if err != nil {
		return fmt.Errorf("minio init error: %w", err)
	}
	if archive != nil {
		deps.Archive = archive
	}

	// context routes work without the pipeline; /mcp/run answers 503
	pipeline, err := bootstrap.Pipeline(ctx, cfg, deps, logger)
	if err != nil {
		logger.Warn("report pipeline disabled", zap.Error(err))
	}

	checks := map[string]middleware.HealthChecker{}
	if store.DB != nil {
		checks["database"] = &middleware.DatabaseHealthChecker{DB: store.DB}
	}

	handler := httpserver.NewRouter(ctxSvc, pipeline, httpserver.Options{
		Logger:       logger.Named("http"),
		Metrics:      metrics,
		RateLimiter:  middleware.NewRateLimiter(ctx, cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
		APIKeys:      cfg.Server.APIKeys,
		CORSOrigins:  cfg.Server.CORSOrigins,
		HealthChecks: checks,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", addr), zap.String("context_store", cfg.ContextStore.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		// no new runs can be queued now; let running reports finish
		if pipeline != nil {
			drainCtx, cancelDrain := context.WithTimeout(context.Background(), runDrainTimeout)
			defer cancelDrain()
			if werr := pipeline.Wait(drainCtx); werr != nil {
				logger.Warn("report runs still in flight at exit", zap.Error(werr))
			} else {
				logger.Info("report runs drained")
			}
		}
		return err
	})
	return g.Wait()
}
