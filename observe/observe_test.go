package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/toolgate/observe/exporters"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg: Config{
				ServiceName: "toolgate",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
				Logging:     LoggingConfig{Enabled: true, Level: "info"},
			},
		},
		{
			name:    "missing service name",
			cfg:     Config{Version: "1.0.0"},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "unknown tracing exporter",
			cfg:     Config{ServiceName: "toolgate", Tracing: TracingConfig{Enabled: true, Exporter: "unknown"}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "disabled tracing ignores exporter",
			cfg:     Config{ServiceName: "toolgate", Tracing: TracingConfig{Exporter: "unknown"}},
			wantErr: nil,
		},
		{
			name:    "unknown metrics exporter",
			cfg:     Config{ServiceName: "toolgate", Metrics: MetricsConfig{Enabled: true, Exporter: "badvalue"}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "sample pct above range",
			cfg:     Config{ServiceName: "toolgate", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "sample pct negative",
			cfg:     Config{ServiceName: "toolgate", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: -0.1}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "unknown log level",
			cfg:     Config{ServiceName: "toolgate", Logging: LoggingConfig{Enabled: true, Level: "verbose"}},
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewObserver_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "toolgate"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("expected non-nil noop primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no shutdown error, got: %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	var logs, traces bytes.Buffer
	cfg := Config{
		ServiceName: "toolgate",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Writer: &logs},
		Exporters:   []exporters.Option{exporters.WithWriter(&traces)},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	_, span := obs.Tracer().Start(context.Background(), "probe")
	span.End()
	obs.Logger().Info(context.Background(), "hello")

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no shutdown error, got: %v", err)
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"hello"`)) {
		t.Errorf("expected log line in writer, got: %s", logs.String())
	}
	if !bytes.Contains(traces.Bytes(), []byte(`"probe"`)) {
		t.Errorf("expected exported span, got: %s", traces.String())
	}
}

func TestNewObserver_InvalidConfigReturnsError(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("expected ErrMissingServiceName, got: %v", err)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("expected ErrNilObserver, got: %v", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "toolgate"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil || mw == nil {
		t.Fatalf("expected middleware, got: %v, %v", mw, err)
	}
}
