package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient installs the command and pool metrics hook on client.
// Only the first call in a process has any effect.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(otel.Meter(meterName), client.PoolStats)
		if err != nil {
			logger.Warn("redis observability instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis observability instrumentation enabled")
	})
}

type redisMetricsHook struct {
	commands metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRedisMetricsHook(meter metric.Meter, poolStats func() *redis.PoolStats) (*redisMetricsHook, error) {
	commands, err := meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands issued by the service"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("redis.command.errors",
		metric.WithDescription("Redis commands that returned an error other than redis.Nil"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds"))
	if err != nil {
		return nil, err
	}
	inUse, err := meter.Int64ObservableGauge("redis.pool.connections",
		metric.WithDescription("Redis pool connections by state"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := poolStats()
		if stats == nil {
			return nil
		}
		o.ObserveInt64(inUse, int64(stats.IdleConns), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(inUse, int64(stats.TotalConns-stats.IdleConns), metric.WithAttributes(attribute.String("state", "used")))
		return nil
	}, inUse)
	if err != nil {
		return nil, err
	}
	return &redisMetricsHook{commands: commands, failures: failures, latency: latency}, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		name := redisCommandName(cmd)
		h.latency.Record(ctx, time.Since(start).Seconds(), redisAttrs(name, err))
		h.count(ctx, name, err)
		return err
	}
}

// Pipelines record one latency sample but count every queued command.
func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.latency.Record(ctx, time.Since(start).Seconds(), redisAttrs("pipeline", err))
		for _, cmd := range cmds {
			h.count(ctx, redisCommandName(cmd), cmd.Err())
		}
		return err
	}
}

func (h *redisMetricsHook) count(ctx context.Context, command string, err error) {
	h.commands.Add(ctx, 1, redisAttrs(command, err))
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	h.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("error_type", classifyRedisError(err)),
	))
}

func redisAttrs(command string, err error) metric.MeasurementOption {
	status := "success"
	switch {
	case errors.Is(err, redis.Nil):
		status = "miss"
	case err != nil:
		status = "error"
	}
	return metric.WithAttributes(attribute.String("command", command), attribute.String("status", status))
}

// redisCommandName folds script invocations into one label so the limiter's
// EVALSHA/EVAL fallback does not split the series.
func redisCommandName(cmd redis.Cmder) string {
	name := strings.ToLower(cmd.Name())
	if strings.HasPrefix(name, "eval") {
		return "script"
	}
	return name
}

var redisErrorMarkers = []struct{ marker, kind string }{
	{"timeout", "timeout"},
	{"connection", "connection"},
	{"refused", "connection"},
	{"noscript", "noscript"},
}

func classifyRedisError(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	for _, m := range redisErrorMarkers {
		if strings.Contains(msg, m.marker) {
			return m.kind
		}
	}
	return "other"
}
