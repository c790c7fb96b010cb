// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds all runtime settings. DatabaseURL and RedisURL are optional:
// when absent the API stays up but vote and subscribe endpoints answer 503,
// matching the behavior of the original widget when its backing store was not
// configured.
type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	VoteRateWindow   time.Duration `env:"VOTE_RATE_WINDOW" default:"5m"`
	VoteRateMaxVotes int           `env:"VOTE_RATE_MAX_VOTES" default:"14"`

	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" default:"30s"`

	// RequestRatePerSecond and RequestBurst feed the per-IP request limiter in
	// front of the API group. This is a coarse flood guard, separate from the
	// per-subject vote limit.
	RequestRatePerSecond float64 `env:"REQUEST_RATE_PER_SECOND" default:"10"`
	RequestBurst         int     `env:"REQUEST_BURST" default:"20"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs with production error
// redaction.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	if cfg.VoteRateWindow <= 0 {
		return fmt.Errorf("VOTE_RATE_WINDOW must be positive, got %s", cfg.VoteRateWindow)
	}
	if cfg.VoteRateMaxVotes <= 0 {
		return fmt.Errorf("VOTE_RATE_MAX_VOTES must be positive, got %d", cfg.VoteRateMaxVotes)
	}
	if cfg.StatsCacheTTL < 0 {
		return fmt.Errorf("STATS_CACHE_TTL must not be negative, got %s", cfg.StatsCacheTTL)
	}
	if cfg.RequestRatePerSecond <= 0 {
		return fmt.Errorf("REQUEST_RATE_PER_SECOND must be positive, got %f", cfg.RequestRatePerSecond)
	}
	if cfg.RequestBurst <= 0 {
		return fmt.Errorf("REQUEST_BURST must be positive, got %d", cfg.RequestBurst)
	}
	return nil
}
