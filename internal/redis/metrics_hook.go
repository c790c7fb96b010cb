package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

// MetricsHook implements redis.Hook to collect metrics on all Redis operations.
type MetricsHook struct {
	opsTotal         *prometheus.CounterVec
	opDuration       *prometheus.HistogramVec
	connectionErrors prometheus.Counter
}

var _ goredis.Hook = (*MetricsHook)(nil)

// NewMetricsHook creates and registers Redis operation metrics on the given registry.
func NewMetricsHook(reg prometheus.Registerer) *MetricsHook {
	h := &MetricsHook{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rockbench",
			Name:      "redis_ops_total",
			Help:      "Total Redis operations, by command and status.",
		}, []string{"operation", "status"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rockbench",
			Name:      "redis_op_duration_seconds",
			Help:      "Duration of Redis operations in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"operation"}),
		connectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rockbench",
			Name:      "redis_connection_errors_total",
			Help:      "Total Redis connection establishment failures.",
		}),
	}
	reg.MustRegister(h.opsTotal, h.opDuration, h.connectionErrors)
	return h
}

// DialHook is called when establishing a new Redis connection.
func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.connectionErrors.Inc()
		}
		return conn, err
	}
}

// ProcessHook is called for every Redis command execution.
func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start).Seconds()

		operation := cmd.Name()
		status := "success"
		if err != nil && !errors.Is(err, goredis.Nil) {
			status = "error"
		}

		h.opsTotal.WithLabelValues(operation, status).Inc()
		h.opDuration.WithLabelValues(operation).Observe(duration)

		return err
	}
}

// ProcessPipelineHook is called for pipelined Redis commands.
func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}

		h.opsTotal.WithLabelValues("pipeline", status).Inc()
		h.opDuration.WithLabelValues("pipeline").Observe(duration)

		return err
	}
}
