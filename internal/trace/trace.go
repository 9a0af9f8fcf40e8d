package trace

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "bybit-ticker-bot"
	ServiceVersion = "1.0.0"
)

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
	outputs        []io.Closer
)

// Config selects which signals are exported and where they are written.
// Output takes the same values as LOG_OUTPUT: stdout, stderr or a file path.
type Config struct {
	TracingEnabled bool
	MetricsEnabled bool
	Output         string
	PrettyPrint    bool
}

// LoadConfigFromEnv reads LOG_TRACING_ENABLED, LOG_METRICS_ENABLED,
// LOG_TELEMETRY_OUTPUT and LOG_FORMAT.
func LoadConfigFromEnv() Config {
	return Config{
		TracingEnabled: getEnv("LOG_TRACING_ENABLED", "false") == "true",
		MetricsEnabled: getEnv("LOG_METRICS_ENABLED", "false") == "true",
		Output:         getEnv("LOG_TELEMETRY_OUTPUT", "stderr"),
		PrettyPrint:    getEnv("LOG_FORMAT", "text") != "json",
	}
}

// Init installs the span and metric exporters selected by the environment.
// Both are off by default; stdout also carries the console menu.
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

func InitWithConfig(cfg Config) error {
	enabled = false
	if !cfg.TracingEnabled && !cfg.MetricsEnabled {
		return nil
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	if cfg.TracingEnabled {
		opts := []stdouttrace.Option{stdouttrace.WithWriter(out)}
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return err
		}
		tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		tracer = otel.Tracer(ServiceName)
		enabled = true
	}

	if cfg.MetricsEnabled {
		if err := initMetrics(out, res, cfg.PrettyPrint); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown flushes and stops the tracer and meter providers, then closes a
// file output if one was opened.
func Shutdown(ctx context.Context) error {
	var errs []error
	if tracerProvider != nil {
		errs = append(errs, tracerProvider.Shutdown(ctx))
	}
	if meterProvider != nil {
		errs = append(errs, meterProvider.Shutdown(ctx))
	}
	for _, c := range outputs {
		errs = append(errs, c.Close())
	}
	outputs = nil
	return errors.Join(errs...)
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, f)
		return f, nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
