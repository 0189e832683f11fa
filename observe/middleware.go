package observe

import (
	"context"
	"time"
)

// OpFunc is the signature for observed operations.
// This is the standard function signature that Middleware wraps.
type OpFunc func(ctx context.Context, meta OpMeta, input any) (any, error)

// Middleware wraps operations with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe OpFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
//   - Ownership: Input/output values are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware whose components all discard their input.
func NopMiddleware() *Middleware {
	return NewMiddleware(NewNopTracer(), NewNopMetrics(), NopLogger())
}

// Wrap wraps an OpFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn OpFunc) OpFunc {
	return func(ctx context.Context, meta OpMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		result, err := fn(ctx, meta, input)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordOp(ctx, meta, duration, err)

		opLogger := m.logger
		if ext, ok := m.logger.(ExtendedLogger); ok {
			opLogger = ext.WithOp(meta)
		}
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "operation failed", fields...)
		} else {
			opLogger.Info(ctx, "operation completed", fields...)
		}

		return result, err
	}
}

// Metrics exposes the middleware's metrics recorder for callers that need to
// record cache outcomes outside a wrapped operation.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger exposes the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	tracer := NewTracer(obs.Tracer())

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
