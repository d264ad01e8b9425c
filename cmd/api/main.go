// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the chapter asset HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the relational store (PostgreSQL + migrations, or embedded SQLite).
//  4. Connect to Redis when configured (buffered view counting).
//  5. Prepare asset and scratch storage.
//  6. Wire the chapter and ingestion domains.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/chapterhub/internal/api"
	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/core/ingest"
	"github.com/taibuivan/chapterhub/internal/platform/assetfs"
	"github.com/taibuivan/chapterhub/internal/platform/config"
	"github.com/taibuivan/chapterhub/internal/platform/constants"
	"github.com/taibuivan/chapterhub/internal/platform/migration"
	pgstore "github.com/taibuivan/chapterhub/internal/platform/postgres"
	redisstore "github.com/taibuivan/chapterhub/internal/platform/redis"
	"github.com/taibuivan/chapterhub/internal/platform/scratch"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
	"github.com/taibuivan/chapterhub/internal/platform/sqlite"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("page_numbering", cfg.PageNumbering),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Relational Store ───────────────────────────────────────────────
	repository, health, closeStore := openStore(startupCtx, cfg, log)
	defer closeStore()

	// ── 4. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chapterMetrics := chapter.MustNewMetrics(registry)
	ingestMetrics := ingest.MustNewMetrics(registry)

	// Background workers stop when the server shuts down.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	// ── 5. View Counting ──────────────────────────────────────────────────
	var views chapter.ViewCounter = chapter.NewDirectViewCounter(repository)
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()

		buffered := chapter.NewRedisViewCounter(rdb, repository, log)
		views = buffered
		health.CheckCache = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }

		workers.Add(1)
		go func() {
			defer workers.Done()
			buffered.Run(workerCtx, cfg.ViewFlushInterval)
		}()
	}

	// ── 6. Asset & Scratch Storage ────────────────────────────────────────
	assets, err := assetfs.New(cfg.StorageRoot, cfg.AssetURLPrefix, constants.AssetKindManga)
	must(log, err, "prepare asset storage")

	receiver, err := scratch.NewReceiver(cfg.ScratchDir, constants.UploadFieldImages, scratch.Limits{
		MaxFiles:     cfg.MaxBatchFiles,
		MaxFileBytes: cfg.MaxFileBytes,
	})
	must(log, err, "prepare scratch storage")

	reaper := ingest.NewReaper(cfg.ReaperAttempts, cfg.ReaperBaseDelay, ingestMetrics)

	// A previous process may have died mid-batch; nothing can own these files now.
	found, leftover, err := reaper.SweepDir(startupCtx, receiver.Dir())
	must(log, err, "reclaim scratch storage")
	if found > 0 {
		log.Info("stale_scratch_reclaimed",
			slog.Int("found", found),
			slog.Int("leftover", len(leftover)),
		)
	}

	// ── 7. Token Verification ─────────────────────────────────────────────
	verifier, err := sec.NewTokenVerifier(cfg.JWTPubKeyPath, cfg.JWTIssuer)
	must(log, err, "load token verification key")

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	chapterService := chapter.NewService(repository, assets, views, chapterMetrics)

	// The decoder gate is process-wide and never reconfigured after startup.
	gate := ingest.NewDecoderGate(constants.DecoderSlots)
	codec := ingest.Codec{
		MaxDimension: cfg.ImageMaxDimension,
		Quality:      cfg.ImageQuality,
		MaxPixels:    cfg.ImageMaxPixels,
	}

	pipeline := ingest.NewPipeline(
		chapterService,
		ingest.NewNormalizer(codec, gate, assets, ingestMetrics),
		ingest.NewRegistrar(repository, assets, cfg.PageNumbering),
		reaper,
		cfg.IngestItemDelay,
		ingestMetrics,
	)

	liveness, readiness := api.NewHealthHandlers(*health, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Assets:      assets.Handler(),
		AssetPrefix: assets.Prefix(),
		Chapter:     chapter.NewHandler(chapterService),
		Ingest:      ingest.NewHandler(receiver, pipeline),
	}

	server := api.NewServer(workerCtx, cfg, log, verifier, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	// Upload handlers outlive a timed-out Shutdown; wait so every batch sweeps its scratch files.
	pipeline.Drain()

	// Let detached view increments land, then stop the flush worker (it flushes once more).
	chapterService.Drain()
	stopWorkers()
	workers.Wait()

	if shutdownErr != nil {
		log.Error("shutdown_error", slog.Any("error", shutdownErr))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the process JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// openStore selects the relational backend from the DATABASE_URL scheme.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (chapter.Repository, *api.HealthDependencies, func()) {
	if cfg.UsesSQLite() {
		db, err := sqlite.Open(ctx, cfg.SQLitePath(), log)
		must(log, err, "open sqlite")

		health := &api.HealthDependencies{
			DatabaseName:  "sqlite",
			CheckDatabase: func(ctx context.Context) error { return db.PingContext(ctx) },
		}
		return chapter.NewSQLiteRepository(db), health, closer(log, "sqlite", db)
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	health := &api.HealthDependencies{
		DatabaseName:  "postgres",
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
	}
	return chapter.NewPostgresRepository(pool), health, func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}
}

func closer(log *slog.Logger, name string, db *sql.DB) func() {
	return func() {
		log.Info("closing_store", slog.String("store", name))
		if err := db.Close(); err != nil {
			log.Error("store_close_error", slog.String("store", name), slog.Any("error", err))
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
