package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sandeepkv93/event-credential-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Root spans with these prefixes are always sampled.
var alwaysSampledSpans = []string{"issuance.", "document."}

// batchFirstSampler keeps issuance and render root spans and ratio-samples
// the rest, verification included.
type batchFirstSampler struct {
	ratio sdktrace.Sampler
}

func newBatchFirstSampler(ratio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(batchFirstSampler{ratio: sdktrace.TraceIDRatioBased(ratio)})
}

func (s batchFirstSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, prefix := range alwaysSampledSpans {
		if strings.HasPrefix(p.Name, prefix) {
			return sdktrace.AlwaysSample().ShouldSample(p)
		}
	}
	return s.ratio.ShouldSample(p)
}

func (s batchFirstSampler) Description() string {
	return "BatchFirst{" + s.ratio.Description() + "}"
}

// InitTracing installs the W3C propagators and a provider even when export is
// off, so issuance and verification spans remain valid no-ops.
func InitTracing(ctx context.Context, cfg *config.Config, res *resource.Resource, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTELTracingEnabled {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
		if cfg.OTELExporterOTLPInsecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		providerOpts = append(providerOpts,
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(newBatchFirstSampler(cfg.OTELTraceSamplingRatio)),
		)
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	if cfg.OTELTracingEnabled {
		logger.Info("otel tracing initialized", "endpoint", cfg.OTELExporterOTLPEndpoint, "sampling_ratio", cfg.OTELTraceSamplingRatio)
	} else {
		logger.Info("otel tracing disabled")
	}
	return tp, nil
}
