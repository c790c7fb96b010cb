package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shrimbly/willienotwilly/internal/app"
	"github.com/shrimbly/willienotwilly/internal/config"
	"github.com/shrimbly/willienotwilly/internal/domain"
	"github.com/shrimbly/willienotwilly/internal/logging"
	"github.com/shrimbly/willienotwilly/internal/metrics"
	"github.com/shrimbly/willienotwilly/internal/postgres"
	"github.com/shrimbly/willienotwilly/internal/redis"
	"github.com/shrimbly/willienotwilly/internal/retry"
	"github.com/shrimbly/willienotwilly/internal/server"
)

const connectTimeout = 30 * time.Second

var connectRetryPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Connection attempt failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := retry.Do(ctx, connectRetryPolicy, retry.Always, func() (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry := metrics.NewRegistry()
	voteMetrics := metrics.NewVoteMetrics(registry)

	var healthChecks []server.HealthCheck

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool = setupDB(cfg)
		defer pool.Close()
		healthChecks = append(healthChecks, server.HealthCheck{
			Name:  "postgres",
			Check: pool.Ping,
		})
	} else {
		slog.Warn("DATABASE_URL not set, vote and subscribe endpoints will answer 503")
	}

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		client, err := retry.Do(ctx, connectRetryPolicy, retry.Always, func() (*goredis.Client, error) {
			return redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(registry), redis.NewCircuitBreakerHook())
		})
		cancel()
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		redisClient = client
		defer func() { _ = redisClient.Close() }()
		healthChecks = append(healthChecks, server.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	// The service only exists when persistence is configured; the server
	// answers 503 for the write paths otherwise.
	var appSvc *app.Service
	if pool != nil {
		policy := domain.RateLimitPolicy{
			Window:   cfg.VoteRateWindow,
			MaxVotes: cfg.VoteRateMaxVotes,
		}

		var cache domain.StatsCache
		if redisClient != nil {
			cache = redis.NewStatsCache(redisClient, cfg.StatsCacheTTL)
		}

		appSvc = app.NewService(
			postgres.NewVoteRepo(pool),
			postgres.NewSubscriberRepo(pool),
			cache,
			policy,
			clock,
			voteMetrics,
		)
	}

	// Pass nil explicitly to avoid a typed-nil interface inside the server.
	var srv *server.Server
	if appSvc != nil {
		srv = server.NewServer(cfg, appSvc, voteMetrics, registry, healthChecks)
	} else {
		srv = server.NewServer(cfg, nil, voteMetrics, registry, healthChecks)
	}

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}
