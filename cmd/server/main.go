package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/config"
	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/handlers"
	"github.com/openhoops/match-predictor/internal/logic"
	"github.com/openhoops/match-predictor/internal/predictor"
	"github.com/openhoops/match-predictor/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(cfg, logger); err != nil {
		sugar.Fatalw("Server exited with error", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres holds the historical game logs
	if err := datasource.MigratePostgres(cfg.PostgresURL); err != nil {
		return err
	}
	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	checks := map[string]handlers.CheckFunc{
		"postgres": pg.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	// The audit trail is optional
	var (
		audit      logic.AuditQueue
		auditStats logic.AuditStatsService
		depth      handlers.QueueDepther
		pool       *worker.Pool
	)
	if cfg.ClickHouseURL != "" {
		chOpts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			return fmt.Errorf("invalid clickhouse url: %w", err)
		}
		ch, err := clickhouse.Open(chOpts)
		if err != nil {
			return fmt.Errorf("failed to open clickhouse: %w", err)
		}
		defer ch.Close()
		if err := worker.EnsureSchema(ctx, ch); err != nil {
			return fmt.Errorf("failed to create audit table: %w", err)
		}
		checks["clickhouse"] = ch.Ping

		pool = worker.NewPool(worker.PoolConfig{
			WorkerCount:   cfg.WorkerCount,
			QueueSize:     cfg.QueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			ClickHouse:    ch,
			Logger:        logger,
		})
		pool.Start(context.Background())
		audit, depth = pool, pool
		auditStats = logic.NewAuditStatsService(ch, logger)
	} else {
		sugar.Warn("CLICKHOUSE_URL not set, prediction audit disabled")
	}

	store := datasource.NewPgStore(pg)
	cache := datasource.NewCache(rdb, cfg.CacheTTL)
	games := datasource.NewCachedReader(
		datasource.NewSource(store, cfg.SourceRetries, cfg.SourceBackoff, logger),
		cache,
		logger,
	)

	pred := predictor.New(features.CanonicalSchema, logger)
	if err := pred.LoadFrom(cfg.ModelPath); err != nil {
		sugar.Warnw("No model loaded at startup, predictions unavailable until one is installed",
			"path", cfg.ModelPath, "error", err)
	}
	if cfg.WatchModel {
		w := artifact.NewWatcher(cfg.ModelPath, features.CanonicalSchema, func(a *artifact.Artifact) {
			if err := pred.Swap(a); err != nil {
				sugar.Errorw("Rejected reloaded artifact", "version", a.Version, "error", err)
			}
		}, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				sugar.Errorw("Artifact watcher stopped", "error", err)
			}
		}()
	}

	svc := logic.NewPredictionService(logic.PredictionConfig{
		Predictor: pred,
		Games:     games,
		Writer:    store,
		Cache:     cache,
		Audit:     audit,
		ModelPath: cfg.ModelPath,
		Season:    cfg.DefaultSeason,
		Logger:    logger,
	})

	h := handlers.New(handlers.Config{
		Prediction:     svc,
		AuditStats:     auditStats,
		AuditQueue:     depth,
		Checks:         checks,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      float64(cfg.RateLimitPerSecond),
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	sugar.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Graceful shutdown failed", "error", err)
	}
	if pool != nil {
		pool.Stop()
	}
	sugar.Info("Server stopped")
	return nil
}
