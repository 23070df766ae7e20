package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics records execution metrics for tools.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a tool execution with duration and error status.
	RecordExecution(ctx context.Context, meta ToolMeta, duration time.Duration, err error)
}

// FetchMetrics records upstream fetch pipeline metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type FetchMetrics interface {
	// RecordFetch records one logical fetch. Outcome is "ok" or an error
	// kind such as network_error.
	RecordFetch(ctx context.Context, service, outcome string, duration time.Duration)

	// RecordCacheLookup records a cache hit or miss.
	RecordCacheLookup(ctx context.Context, hit bool)

	// RecordRetry records one retry of a failed attempt.
	RecordRetry(ctx context.Context, service string)

	// RecordBreakerTransition records a circuit state change.
	RecordBreakerTransition(ctx context.Context, service, from, to string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates tool execution instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"tool.exec.total",
		metric.WithDescription("Total number of tool executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"tool.exec.errors",
		metric.WithDescription("Total number of tool executions that returned an error envelope"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"tool.exec.duration_ms",
		metric.WithDescription("Tool execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, meta ToolMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.id", meta.ToolID()),
		attribute.String("tool.name", meta.Name),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("tool.namespace", meta.Namespace))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

type fetchMetrics struct {
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
	cacheLookup metric.Int64Counter
	retries     metric.Int64Counter
	transitions metric.Int64Counter
}

// NewFetchMetrics creates fetch pipeline instruments on the given meter.
func NewFetchMetrics(meter metric.Meter) (FetchMetrics, error) {
	requests, err := meter.Int64Counter(
		"upstream.fetch.total",
		metric.WithDescription("Logical upstream fetches by service and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"upstream.fetch.duration_ms",
		metric.WithDescription("Upstream fetch duration including retries, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookup, err := meter.Int64Counter(
		"upstream.cache.lookups",
		metric.WithDescription("Response cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"upstream.fetch.retries",
		metric.WithDescription("Retried upstream attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"upstream.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &fetchMetrics{
		requests:    requests,
		duration:    duration,
		cacheLookup: cacheLookup,
		retries:     retries,
		transitions: transitions,
	}, nil
}

func (m *fetchMetrics) RecordFetch(ctx context.Context, service, outcome string, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *fetchMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *fetchMetrics) RecordRetry(ctx context.Context, service string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

func (m *fetchMetrics) RecordBreakerTransition(ctx context.Context, service, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// NopFetchMetrics returns FetchMetrics backed by a no-op meter.
func NopFetchMetrics() FetchMetrics {
	m, _ := NewFetchMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// NopMetrics returns Metrics backed by a no-op meter.
func NopMetrics() Metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}
