package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
)

func env(vars map[string]string) Option {
	return WithGetenv(func(k string) string { return vars[k] })
}

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{name: "stdout", opts: []Option{WithWriter(&bytes.Buffer{})}},
		{name: "none"},
		{name: ""},
		{name: "otlp", opts: []Option{env(map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://localhost:4317"})}},
		{name: "otlp", opts: []Option{env(nil)}, wantErr: ErrEndpointNotConfigured},
		{name: "jaeger", opts: []Option{env(nil)}, wantErr: ErrEndpointNotConfigured},
		{name: "zipkin", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), tt.name, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewTracingExporter(%q) error = %v, want %v", tt.name, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracingExporter(%q) error = %v", tt.name, err)
			}
			if exp == nil {
				t.Fatal("expected non-nil exporter")
			}
			_ = exp.Shutdown(context.Background())
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{name: "stdout", opts: []Option{WithWriter(&bytes.Buffer{})}},
		{name: "none"},
		{name: "prometheus", opts: []Option{WithRegisterer(promclient.NewRegistry())}},
		{name: "otlp", opts: []Option{env(map[string]string{"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT": "http://localhost:4317"})}},
		{name: "otlp", opts: []Option{env(nil)}, wantErr: ErrEndpointNotConfigured},
		{name: "badvalue", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewMetricsReader(context.Background(), tt.name, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewMetricsReader(%q) error = %v, want %v", tt.name, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMetricsReader(%q) error = %v", tt.name, err)
			}
			if reader == nil {
				t.Fatal("expected non-nil reader")
			}
		})
	}
}
