package telemetry

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Config names the service in exported spans.
type Config struct {
	ServiceName string
	Environment string
	Version     string
}

var (
	initOnce sync.Once
	shutdown = func(context.Context) error { return nil }
)

// Init installs the global tracer provider when OTEL_ENABLED is set.
// Without it the otel no-op provider stays in place. The returned function
// flushes pending spans and is safe to call when tracing is disabled.
func Init(ctx context.Context, cfg Config) func(context.Context) error {
	initOnce.Do(func() {
		if !Enabled() {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "cropgraph"
		}

		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
				attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			),
		)
		if err != nil {
			logger.Warn("[Telemetry] Resource init failed (continuing)", "err", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(SampleRatio()))),
			sdktrace.WithResource(res),
		}
		exporter, err := buildExporter(ctx)
		if err != nil {
			logger.Warn("[Telemetry] Exporter init failed (continuing)", "err", err)
		}
		if exporter != nil {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		shutdown = tp.Shutdown

		logger.Info("[Telemetry] Tracing initialized", "service", serviceName, "endpoint", endpoint())
	})
	return shutdown
}

// Enabled reports whether OTEL_ENABLED is set to a true value.
func Enabled() bool {
	return util.GetEnvBool("OTEL_ENABLED", false)
}

// SampleRatio reads OTEL_SAMPLER_RATIO, clamped to [0,1], default 0.1.
func SampleRatio() float64 {
	v := util.GetEnv("OTEL_SAMPLER_RATIO")
	if v == "" {
		return 0.1
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0.1
	}
	return min(max(f, 0), 1)
}

func endpoint() string {
	return util.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// parseHeaders reads "k1=v1,k2=v2". Malformed pairs are ignored.
func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	headers := map[string]string{}
	for part := range strings.SplitSeq(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func buildExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if ep := endpoint(); ep != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(ep)}
		if util.GetEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false) {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if headers := parseHeaders(util.GetEnv("OTEL_EXPORTER_OTLP_HEADERS")); headers != nil {
			opts = append(opts, otlptracehttp.WithHeaders(headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	logger.Warn("[Telemetry] No OTLP endpoint configured, writing spans to stdout")
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
