package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid minimal",
			cfg:  Config{ServiceName: "pageops"},
		},
		{
			name: "invalid tracing exporter",
			cfg: Config{
				ServiceName: "pageops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "zipkin"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "pageops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "invalid metrics exporter",
			cfg: Config{
				ServiceName: "pageops",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "invalid log level",
			cfg: Config{
				ServiceName: "pageops",
				Logging:     LoggingConfig{Enabled: true, Level: "trace"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "all enabled valid",
			cfg: Config{
				ServiceName: "pageops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
				Logging:     LoggingConfig{Enabled: true, Level: "debug"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpMetaSpanName(t *testing.T) {
	meta := OpMeta{Component: "router", Name: "get"}
	if got := meta.SpanName(); got != "pageops.router.get" {
		t.Errorf("SpanName() = %q, want %q", got, "pageops.router.get")
	}
}

func TestNewObserverDisabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "pageops"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("disabled observer must still return usable components")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "dropped debug")
	logger.Info(context.Background(), "dropped info")
	logger.Warn(context.Background(), "kept warn")
	logger.Error(context.Background(), "kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level entries leaked: %s", out)
	}
	if !strings.Contains(out, "kept warn") || !strings.Contains(out, "kept error") {
		t.Errorf("at-level entries missing: %s", out)
	}
}

func TestLoggerRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "invoking",
		Field{Key: "args", Value: map[string]any{"query": "secret stuff"}},
		Field{Key: "tool", Value: "search"},
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["args"] != "[REDACTED]" {
		t.Errorf("args = %v, want [REDACTED]", entry["args"])
	}
	if entry["tool"] != "search" {
		t.Errorf("tool = %v, want search", entry["tool"])
	}
}

func TestLoggerWithOp(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	scoped := base.(ExtendedLogger).WithOp(OpMeta{Component: "toolkit", Name: "invoke"})

	scoped.Info(context.Background(), "done")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["op.component"] != "toolkit" || entry["op.name"] != "invoke" {
		t.Errorf("op attrs missing from entry: %v", entry)
	}
}

func TestMiddlewareWrap(t *testing.T) {
	mw := NopMiddleware()
	meta := OpMeta{Component: "router", Name: "get"}

	called := false
	fn := mw.Wrap(func(ctx context.Context, m OpMeta, input any) (any, error) {
		called = true
		if m != meta {
			t.Errorf("meta = %v, want %v", m, meta)
		}
		return "ok", nil
	})

	got, err := fn(context.Background(), meta, nil)
	if err != nil {
		t.Fatalf("wrapped fn error = %v", err)
	}
	if !called || got != "ok" {
		t.Errorf("called = %v, got = %v", called, got)
	}
}

func TestMiddlewareWrapPropagatesError(t *testing.T) {
	mw := NopMiddleware()
	wantErr := errors.New("boom")

	fn := mw.Wrap(func(ctx context.Context, m OpMeta, input any) (any, error) {
		time.Sleep(time.Millisecond)
		return nil, wantErr
	})

	_, err := fn(context.Background(), OpMeta{Component: "tool", Name: "search"}, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
