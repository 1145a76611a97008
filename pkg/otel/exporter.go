package otel

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createExporter noop 类型返回 nil，provider 不挂 span processor
func createExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterTypeNoop:
		return nil, nil
	case ExporterTypeStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	case ExporterTypeOTLPHTTP, "":
	default:
		return nil, errors.Wrapf(ErrUnsupportedExporter, "%q", cfg.ExporterType)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.BatchExport.ExportTimeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.BatchExport.ExportTimeout))
	}

	exp, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create otlp http exporter"), ErrExporterFailed)
	}
	return exp, nil
}
