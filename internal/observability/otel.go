// Package observability wires OpenTelemetry tracing for the archive: the
// HTTP layer (otelgin), the storage engine (gorm plugin) and ArchiveService
// spans all report to the provider installed here.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-chat-archive/internal/config"
)

// StdoutEndpoint selects the pretty-printing stdout exporter instead of OTLP.
const StdoutEndpoint = "stdout"

// Seams for tests.
var (
	stdoutWriter io.Writer = os.Stderr

	newOTLPExporterFn = func(ctx context.Context, opts ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	}

	newStdoutExporterFn = func(w io.Writer) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	}

	newServiceResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(version),
				attribute.String("archive.store", "sqlite"),
			),
		)
	}
)

// buildExporter picks the span exporter for cfg.Endpoint.
func buildExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Endpoint), StdoutEndpoint) {
		return newStdoutExporterFn(stdoutWriter)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	return newOTLPExporterFn(ctx, opts...)
}

// SetupOTel installs the global tracer provider and propagator and returns
// its shutdown function. When tracing is disabled it installs nothing and
// returns a no-op shutdown. Globals are left untouched on error.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := buildExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := newServiceResourceFn(ctx, cfg.ServiceName, version)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
