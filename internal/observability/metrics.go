package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "event-credential-service"

type AppMetrics struct {
	issuanceOpCounter          metric.Int64Counter
	issuanceOpDuration         metric.Float64Histogram
	issuancePersistCounter     metric.Int64Counter
	issuanceBatchSize          metric.Float64Histogram
	documentRenderDuration     metric.Float64Histogram
	documentRenderPages        metric.Float64Histogram
	documentArchiveCounter     metric.Int64Counter
	verificationCounter        metric.Int64Counter
	verificationSessionCounter metric.Int64Counter
	scancodeDecodeCounter      metric.Int64Counter
	repositoryOpsCounter       metric.Int64Counter
	listCacheCounter           metric.Int64Counter
	idempotencyCounter         metric.Int64Counter
	idempotencyCleanupCounter  metric.Int64Counter
	idempotencyCleanupDeleted  metric.Float64Histogram
	rateLimitDecisionCounter   metric.Int64Counter
	rateLimitRetryAfter        metric.Float64Histogram
	httpMiddlewareValidation   metric.Int64Counter
	operatorTokenCounter       metric.Int64Counter
	confirmationTicketCounter  metric.Int64Counter
	healthCheckResultCounter   metric.Int64Counter
	healthCheckDuration        metric.Float64Histogram
	databaseStartupCounter     metric.Int64Counter
	databaseStartupDuration    metric.Float64Histogram
	toolCommandRuns            metric.Int64Counter
	toolCommandDuration        metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, res *resource.Resource, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "document.render.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	var err error
	counter := func(name string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name)
		return c
	}
	hist := func(name, unit, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		opts := []metric.Float64HistogramOption{}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		if desc != "" {
			opts = append(opts, metric.WithDescription(desc))
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name, opts...)
		return h
	}

	m.issuanceOpCounter = counter("issuance.operation.events")
	m.issuanceOpDuration = hist("issuance.operation.duration", "s", "Duration of issuance service operations in seconds")
	m.issuancePersistCounter = counter("issuance.persist.results")
	m.issuanceBatchSize = hist("issuance.batch.size", "", "Requested credential count per batch")
	m.documentRenderDuration = hist("document.render.duration", "s", "Duration of document renders in seconds")
	m.documentRenderPages = hist("document.render.pages", "", "Pages produced per rendered document")
	m.documentArchiveCounter = counter("document.archive.events")
	m.verificationCounter = counter("verification.outcomes")
	m.verificationSessionCounter = counter("verification.session.events")
	m.scancodeDecodeCounter = counter("scancode.decode.events")
	m.repositoryOpsCounter = counter("repository.operations")
	m.listCacheCounter = counter("repository.list_cache.events")
	m.idempotencyCounter = counter("http.idempotency.events")
	m.idempotencyCleanupCounter = counter("idempotency.cleanup.runs")
	m.idempotencyCleanupDeleted = hist("idempotency.cleanup.deleted_rows", "", "Expired idempotency rows removed per cleanup run")
	m.rateLimitDecisionCounter = counter("http.rate_limit.decisions")
	m.rateLimitRetryAfter = hist("http.rate_limit.retry_after", "s", "Retry-after duration in seconds for throttled requests")
	m.httpMiddlewareValidation = counter("http.middleware.validation.events")
	m.operatorTokenCounter = counter("security.operator_token.validation.events")
	m.confirmationTicketCounter = counter("security.confirmation_ticket.events")
	m.healthCheckResultCounter = counter("health.check.results")
	m.healthCheckDuration = hist("health.check.duration", "s", "Duration of health dependency checks in seconds")
	m.databaseStartupCounter = counter("database.startup.events")
	m.databaseStartupDuration = hist("database.startup.duration", "s", "Duration of database startup phases in seconds")
	m.toolCommandRuns = counter("tool.command.runs")
	m.toolCommandDuration = hist("tool.command.duration", "s", "Duration of CLI tool commands in seconds")
	if err != nil {
		return nil, err
	}
	return m, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	return m
}

func RecordIssuanceOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.issuanceOpCounter.Add(ctx, 1, attrs)
	m.issuanceOpDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordIssuancePersistResult(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.issuancePersistCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordIssuanceBatchSize(ctx context.Context, size int) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.issuanceBatchSize.Record(ctx, float64(size))
}

func RecordDocumentRender(ctx context.Context, outcome string, pages int, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.documentRenderDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	if pages > 0 {
		m.documentRenderPages.Record(ctx, float64(pages))
	}
}

func RecordDocumentArchiveEvent(ctx context.Context, backend, operation, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.documentArchiveCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordVerificationOutcome(ctx context.Context, channel, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.verificationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}

func RecordVerificationSessionEvent(ctx context.Context, action, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.verificationSessionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordScancodeDecode(ctx context.Context, decoder, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.scancodeDecodeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decoder", decoder),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordListCacheEvent(ctx context.Context, namespace, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listCacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("outcome", outcome),
	))
}

func RecordIdempotencyEvent(ctx context.Context, scope, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.idempotencyCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}

func RecordIdempotencyCleanupRun(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.idempotencyCleanupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordIdempotencyCleanupDeletedRows(ctx context.Context, deleted int64) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.idempotencyCleanupDeleted.Record(ctx, float64(deleted))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope string, retryAfter time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.httpMiddlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordOperatorTokenValidation(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.operatorTokenCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordConfirmationTicketEvent(ctx context.Context, action, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.confirmationTicketCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func RecordToolCommandDuration(ctx context.Context, tool, command, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}
