package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shrimbly/willienotwilly/internal/config"
	"github.com/shrimbly/willienotwilly/internal/domain"
	"github.com/shrimbly/willienotwilly/internal/metrics"
)

// voteService is the slice of the application layer the handlers need.
type voteService interface {
	Policy() domain.RateLimitPolicy
	SubmitVote(ctx context.Context, subject domain.Subject, rawValue float64, voterIP string) (domain.Vote, error)
	Stats(ctx context.Context, subject domain.Subject) (domain.VoteStats, error)
	StatsAll(ctx context.Context) (map[domain.Subject]domain.VoteStats, error)
	Subscribe(ctx context.Context, email string) error
}

// HealthCheck is one named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	// app is nil when the persistence backend is not configured; the vote and
	// subscribe handlers then answer 503 before any other processing.
	app voteService

	voteMetrics  *metrics.VoteMetrics
	registry     *prometheus.Registry
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app voteService, voteMetrics *metrics.VoteMetrics, registry *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		voteMetrics:  voteMetrics,
		registry:     registry,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
