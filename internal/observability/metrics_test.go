package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

func recordEveryHelper(ctx context.Context) {
	RecordIssuanceOperation(ctx, "issue", "success", 10*time.Millisecond)
	RecordIssuancePersistResult(ctx, "failure")
	RecordIssuanceBatchSize(ctx, 6)
	RecordDocumentRender(ctx, "success", 2, 20*time.Millisecond)
	RecordDocumentArchiveEvent(ctx, "minio", "put", "success")
	RecordVerificationOutcome(ctx, "scan", "success")
	RecordVerificationSessionEvent(ctx, "create", "success")
	RecordScancodeDecode(ctx, "qr", "decoded")
	RecordRepositoryOperation(ctx, "credential", "mark_validated", "success")
	RecordListCacheEvent(ctx, "credentials", "hit")
	RecordIdempotencyEvent(ctx, "batches.create", "new")
	RecordIdempotencyCleanupRun(ctx, "success")
	RecordIdempotencyCleanupDeletedRows(ctx, 3)
	RecordRateLimitDecision(ctx, "verify", "allow", "distributed")
	RecordRateLimitRetryAfter(ctx, "verify", time.Second)
	RecordMiddlewareValidationEvent(ctx, "idempotency", "pass")
	RecordOperatorTokenValidation(ctx, "ok")
	RecordConfirmationTicketEvent(ctx, "redeem", "count_mismatch")
	RecordHealthCheckResult(ctx, "db", "ready")
	RecordHealthCheckDuration(ctx, "db", 5*time.Millisecond)
	RecordDatabaseStartupEvent(ctx, "connect", "success")
	RecordDatabaseStartupDuration(ctx, "migrate", 15*time.Millisecond)
	RecordToolCommandRun(ctx, "issuer", "issue", "success")
	RecordToolCommandDuration(ctx, "issuer", "issue", "success", 30*time.Millisecond)
}

func TestRecordMetricHelpersNoPanicWhenUninitialized(t *testing.T) {
	metricsMu.Lock()
	appMetrics = nil
	metricsMu.Unlock()

	recordEveryHelper(context.Background())
}

func TestRecordMetricHelpersEmitExpectedLabelCardinality(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := newAppMetrics(provider.Meter("observability-test"))
	if err != nil {
		t.Fatalf("create app metrics: %v", err)
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	defer func() {
		metricsMu.Lock()
		appMetrics = nil
		metricsMu.Unlock()
	}()

	recordEveryHelper(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	expected := map[string]int{
		"issuance.operation.events":                 2,
		"issuance.operation.duration":               2,
		"issuance.persist.results":                  1,
		"issuance.batch.size":                       0,
		"document.render.duration":                  1,
		"document.render.pages":                     0,
		"document.archive.events":                   3,
		"verification.outcomes":                     2,
		"verification.session.events":               2,
		"scancode.decode.events":                    2,
		"repository.operations":                     3,
		"repository.list_cache.events":              2,
		"http.idempotency.events":                   2,
		"idempotency.cleanup.runs":                  1,
		"idempotency.cleanup.deleted_rows":          0,
		"http.rate_limit.decisions":                 3,
		"http.rate_limit.retry_after":               1,
		"http.middleware.validation.events":         2,
		"security.operator_token.validation.events": 1,
		"security.confirmation_ticket.events":       2,
		"health.check.results":                      2,
		"health.check.duration":                     1,
		"database.startup.events":                   2,
		"database.startup.duration":                 1,
		"tool.command.runs":                         3,
		"tool.command.duration":                     3,
	}

	observed := collectLabelCardinality(t, rm)
	for metricName, want := range expected {
		got, ok := observed[metricName]
		if !ok {
			t.Fatalf("missing metric datapoint for %s", metricName)
		}
		if got != want {
			t.Fatalf("metric %s label cardinality mismatch: got=%d want=%d", metricName, got, want)
		}
	}
}

func TestInitMetricsDisabledReturnsProvider(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{OTELMetricsEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mp, err := InitMetrics(ctx, cfg, resource.Empty(), logger)
	if err != nil {
		t.Fatalf("init metrics disabled: %v", err)
	}
	if mp == nil {
		t.Fatal("expected non-nil meter provider")
	}
	_ = mp.Shutdown(ctx)
}

func collectLabelCardinality(t *testing.T, rm metricdata.ResourceMetrics) map[string]int {
	t.Helper()
	out := map[string]int{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Sum[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			}
		}
	}
	return out
}
