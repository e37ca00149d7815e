package tracing

import (
	"fmt"

	"github.com/harrybrwn/scout/cmd"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Provider creates a tracer provider for the configured exporter and makes
// it the global provider. It returns nil when tracing is not configured.
func Provider(cfg *cmd.TracerConfig, res *resource.Resource) (*tracesdk.TracerProvider, error) {
	var exporter tracesdk.SpanExporter
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "jaeger":
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
			jaeger.WithEndpoint(cfg.Endpoint),
		))
		if err != nil {
			return nil, err
		}
		exporter = exp
	case "zipkin":
		exp, err := zipkin.New(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("tracing type %q not recognized", cfg.Type)
	}
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Resource describes one run of the finder so that every span from a run
// can be grouped by its session id.
func Resource(name, session string, conf *cmd.Config) *resource.Resource {
	version := cmd.GetVersionInfo()
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(version.Version),
		semconv.ServiceInstanceIDKey.String(session),
		semconv.TelemetrySDKLanguageGo,
		attribute.String("scout.session", session),
		attribute.String("scout.cache", conf.Cache.Type),
		attribute.Int("scout.workers", conf.Workers),
		attribute.StringSlice("scout.index_urls", conf.IndexURLs()),
		attribute.Bool("scout.mirrors", conf.UseMirrors),
	)
}
