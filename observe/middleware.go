package observe

import (
	"context"
	"errors"
	"time"
)

// ExecuteFunc is the signature of a tool body wrapped by Middleware.
type ExecuteFunc func(ctx context.Context, tool ToolMeta, input any) (any, error)

// kinded is implemented by error envelopes that carry a taxonomy kind.
type kinded interface {
	KindName() string
}

// Middleware wraps tool execution with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
//   - Ownership: input/output values are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics and logging. Input is
// never logged.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool ToolMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, tool)
		start := time.Now()

		result, err := fn(ctx, tool, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, tool, duration, err)

		toolLogger := m.logger.WithTool(tool)
		fields := []Field{
			{Key: "duration_ms", Value: duration.Milliseconds()},
		}
		if err != nil {
			var k kinded
			if errors.As(err, &k) {
				fields = append(fields, Field{Key: "error_kind", Value: k.KindName()})
			}
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			toolLogger.Warn(ctx, "tool returned error", fields...)
		} else {
			toolLogger.Info(ctx, "tool completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
