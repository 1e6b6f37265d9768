// Package main is the entrypoint for the PixelFlow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/pixelflow/internal/api"
	"github.com/kiranshivaraju/pixelflow/internal/api/handler"
	mw "github.com/kiranshivaraju/pixelflow/internal/api/middleware"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/internal/cache"
	"github.com/kiranshivaraju/pixelflow/internal/catalog"
	"github.com/kiranshivaraju/pixelflow/internal/config"
	"github.com/kiranshivaraju/pixelflow/internal/export"
	"github.com/kiranshivaraju/pixelflow/internal/review"
	"github.com/kiranshivaraju/pixelflow/internal/session"
	"github.com/kiranshivaraju/pixelflow/internal/simulator"
	"github.com/kiranshivaraju/pixelflow/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.SetDefault(newLogger("production"))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newLogger returns a text logger for development and JSON everywhere else.
func newLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "development" {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Server.Env))
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"store", cfg.Store.Driver,
		"sessions", cfg.Session.Driver,
		"classifier", cfg.Classifier.Kind,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the job store
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Open the session cache
	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// 4. Create the classifier and background workers
	classifier, err := simulator.NewClassifier(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	slog.Info("classifier initialized", "classifier", classifier.Name())

	simScheduler := simulator.NewScheduler()
	defer simScheduler.Stop()
	exportScheduler := simulator.NewScheduler()
	defer exportScheduler.Stop()

	sim := simulator.New(st, simScheduler, classifier, cfg.Simulation)
	reviews := review.NewService(st, sim, cfg.Upload, cfg.Simulation.UploadDelay)
	exports := export.NewService(st, exportScheduler, cfg.Simulation.ExportDelay)
	sessions := session.NewHolder(c, cfg.Session.Secret, cfg.Session.TTL, catalog.DemoUser)

	// 5. Resume unfinished work and seed demo data into an empty store
	if err := restoreState(ctx, st, reviews, cfg.Server.SeedDemoJobs); err != nil {
		return err
	}

	// 6. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(sessions),
		RateLimit: mw.NewRateLimit(c, cfg.Server.RateLimitPerMin),

		HealthHandler: healthHandler(st, c),
		LoginHandler:  handler.NewLoginHandler(sessions),
		LogoutHandler: handler.NewLogoutHandler(sessions),
		MeHandler:     handler.NewMeHandler(),

		PresetsHandler:   handler.NewPresetsHandler(),
		DashboardHandler: handler.NewDashboardHandler(reviews),

		ListJobsHandler:  handler.NewListJobsHandler(reviews),
		CreateJobHandler: handler.NewCreateJobHandler(reviews, cfg.Upload),
		GetJobHandler:    handler.NewGetJobHandler(reviews),

		GetItemHandler:  handler.NewGetItemHandler(reviews),
		DecisionHandler: handler.NewDecisionHandler(reviews),
		RerunHandler:    handler.NewRerunHandler(reviews),
		FeedbackHandler: handler.NewFeedbackHandler(reviews),

		ExportStateHandler:    handler.NewExportStateHandler(exports),
		RequestExportHandler:  handler.NewRequestExportHandler(exports),
		DownloadExportHandler: handler.NewDownloadExportHandler(exports),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully",
		"pending_tasks", simScheduler.Len()+exportScheduler.Len())
	return nil
}

// openStore returns the configured job store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.Driver != "postgres" {
		slog.Info("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	return store.NewPostgresStore(pool), pool.Close, nil
}

// openCache returns the configured session cache and a function releasing it.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.Session.Driver != "redis" {
		slog.Info("using in-memory session cache")
		return cache.NewMemoryCache(), func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	return redisCache, func() { redisCache.Close() }, nil
}

// restoreState reschedules whatever a previous run left processing, then
// optionally seeds the demo history.
func restoreState(ctx context.Context, st store.Store, reviews *review.Service, seed bool) error {
	if err := reviews.Resume(ctx); err != nil {
		return fmt.Errorf("resume unfinished work: %w", err)
	}
	if !seed {
		return nil
	}
	if err := seedDemoJobs(ctx, st, reviews); err != nil {
		return fmt.Errorf("seed demo jobs: %w", err)
	}
	return nil
}

// seedDemoJobs loads the demo history unless the store already holds jobs.
func seedDemoJobs(ctx context.Context, st store.Store, reviews *review.Service) error {
	existing, err := st.ListJobs(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Info("store not empty, skipping demo seed", "jobs", len(existing))
		return nil
	}

	now := time.Now().UTC()
	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x9e3779b97f4a7c15))
	jobs := catalog.SeedJobs(now, rng)
	if err := reviews.Seed(ctx, jobs); err != nil {
		return err
	}
	slog.Info("demo jobs seeded", "jobs", len(jobs))
	return nil
}

// healthHandler checks store and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"store": "ok",
			"cache": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["store"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["store"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
