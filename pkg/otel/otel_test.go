package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{"disabled skips checks", &Config{}, nil},
		{"missing service", &Config{Enabled: true}, ErrInvalidServiceName},
		{"bad ratio", &Config{Enabled: true, ServiceName: "s", Sampler: SamplerConfig{Type: SamplerTypeRatio, Ratio: 2}}, ErrInvalidSamplerRatio},
		{"grpc exporter", &Config{Enabled: true, ServiceName: "s", ExporterType: "otlp-grpc"}, ErrUnsupportedExporter},
		{"stdout", &Config{Enabled: true, ServiceName: "s", ExporterType: ExporterTypeStdout}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDisabledProvider(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())

	_, span := p.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Close(), ErrProviderClosed)
}

func TestNoopExporterProvider(t *testing.T) {
	p, err := New(&Config{Enabled: true, ServiceName: "partysheet-test", ExporterType: ExporterTypeNoop})
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPropagatorInstalled(t *testing.T) {
	_, err := New(nil)
	require.NoError(t, err)

	carrier := MapCarrier{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}
	ctx := GetTextMapPropagator().Extract(context.Background(), carrier)

	out := MapCarrier{}
	GetTextMapPropagator().Inject(ctx, out)
	assert.Equal(t, carrier["traceparent"], out["traceparent"])
}
