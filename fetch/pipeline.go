package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/observe"
	"github.com/jonwraymond/realestate/resilience"
	"github.com/jonwraymond/realestate/toolerr"
)

const (
	formatXML  = "xml"
	formatJSON = "json"
)

// Pipeline performs upstream GETs through cache, circuit breaker and
// retry, in that order. Errors are returned as envelopes and never cached.
//
// Concurrent misses for the same URL share one upstream load. The load
// outlives any single caller's context and is bounded by the pipeline
// timeout; it is abandoned only when every waiting caller has gone.
//
// A Pipeline is safe for concurrent use. Build one per process and share
// it between tool handlers.
type Pipeline struct {
	client        *http.Client
	cache         cache.Cache
	breakers      *resilience.BreakerGroup
	breakerConfig resilience.CircuitBreakerConfig
	retryConfig   resilience.RetryConfig
	throttle      *resilience.ThrottleGroup
	timeout       time.Duration
	slowThreshold time.Duration
	userAgent     string

	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.FetchMetrics
	now     func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// result travels through singleflight; the error slot is never used.
type result struct {
	body []byte
	env  *toolerr.Envelope
}

// flight is the context shared by every caller waiting on one key. It is
// detached from the caller that started it and cancelled once the last
// waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a Pipeline. Without options it uses a 300s/100-entry memory
// cache, 5-failure/30s breakers, 3 attempts with 1s/2s backoff and a 30s
// ceiling per fetch.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		timeout:       DefaultTimeout,
		slowThreshold: DefaultSlowThreshold,
		userAgent:     DefaultUserAgent,
		logger:        observe.NopLogger(),
		tracer:        observe.NopTracer(),
		metrics:       observe.NopFetchMetrics(),
		now:           time.Now,
		flights:       make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		p.client = NewClient(DefaultConnectTimeout, DefaultReadTimeout)
	}
	if p.cache == nil {
		p.cache = cache.NewMemoryCache(cache.DefaultPolicy())
	}
	if p.retryConfig.RetryIf == nil {
		p.retryConfig.RetryIf = toolerr.IsTransient
	}
	p.breakers = resilience.NewBreakerGroup(p.breakerConfig, p.onBreakerChange)

	return p
}

// FetchXML returns the raw XML body of url. Exactly one of the return
// values is non-zero.
func (p *Pipeline) FetchXML(ctx context.Context, url string) (string, *toolerr.Envelope) {
	body, env := p.fetch(ctx, url, nil, formatXML)
	if env != nil {
		return "", env
	}
	return string(body), nil
}

// FetchJSON returns the decoded JSON body of url. Headers are sent with
// the request but are not part of the cache key.
func (p *Pipeline) FetchJSON(ctx context.Context, url string, headers map[string]string) (any, *toolerr.Envelope) {
	body, env := p.fetch(ctx, url, headers, formatJSON)
	if env != nil {
		return nil, env
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, toolerr.Classify(&toolerr.DecodeError{Format: formatJSON, Err: err})
	}
	return v, nil
}

// Forget drops the cached body of url. Callers use it when a body that
// transported fine turns out to carry an in-band error answer.
func (p *Pipeline) Forget(ctx context.Context, url string) {
	_ = p.cache.Delete(ctx, cache.RequestKey(url))
}

// CacheStats reports response cache counters.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// BreakerStates reports the breaker of every service seen so far.
func (p *Pipeline) BreakerStates() map[string]resilience.CircuitBreakerMetrics {
	return p.breakers.Snapshot()
}

func (p *Pipeline) fetch(ctx context.Context, url string, headers map[string]string, format string) ([]byte, *toolerr.Envelope) {
	key := cache.RequestKey(url)

	if body, ok := p.cache.Get(ctx, key); ok {
		p.metrics.RecordCacheLookup(ctx, true)
		p.logger.Debug(ctx, "cache hit", observe.F("url", observe.RedactURL(url)))
		return body, nil
	}
	p.metrics.RecordCacheLookup(ctx, false)
	p.logger.Debug(ctx, "cache miss", observe.F("url", observe.RedactURL(url)))

	f := p.join(ctx, key)
	defer p.leave(key, f)

	ch := p.group.DoChan(key, func() (any, error) {
		body, env := p.load(f.ctx, url, key, headers, format)
		return result{body: body, env: env}, nil
	})
	select {
	case res := <-ch:
		r := res.Val.(result)
		if res.Shared {
			p.logger.Debug(ctx, "coalesced with in-flight request", observe.F("url", observe.RedactURL(url)))
		}
		return r.body, r.env
	case <-ctx.Done():
		p.logger.Debug(ctx, "caller stopped waiting", observe.F("url", observe.RedactURL(url)))
		return nil, toolerr.Classify(ctx.Err())
	}
}

// join registers the caller as a waiter on key, starting a new flight
// when none is in progress.
func (p *Pipeline) join(ctx context.Context, key string) *flight {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		p.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops the caller from f. The last waiter out cancels the flight
// and detaches it from the singleflight group, so a later caller starts a
// fresh load instead of joining one being torn down.
func (p *Pipeline) leave(key string, f *flight) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if p.flights[key] == f {
		delete(p.flights, key)
		p.group.Forget(key)
	}
}

func (p *Pipeline) load(ctx context.Context, url, key string, headers map[string]string, format string) ([]byte, *toolerr.Envelope) {
	service := ServiceFor(url)
	start := p.now()

	ctx, span := p.tracer.StartFetchSpan(ctx, service, format)
	log := p.logger.With(
		observe.F("request_id", uuid.NewString()[:8]),
		observe.F("service", service),
	)

	body, env := p.attempt(ctx, log, url, key, headers, format, service)

	elapsed := p.now().Sub(start)
	if elapsed > p.slowThreshold {
		log.Warn(ctx, "connection quality degraded",
			observe.F("duration_ms", elapsed.Milliseconds()),
			observe.F("threshold_ms", p.slowThreshold.Milliseconds()),
		)
	}

	outcome := "ok"
	var spanErr error
	if env != nil {
		outcome = env.KindName()
		spanErr = env
	}
	p.metrics.RecordFetch(ctx, service, outcome, elapsed)
	p.tracer.EndSpan(span, spanErr)

	return body, env
}

func (p *Pipeline) attempt(ctx context.Context, log observe.Logger, url, key string, headers map[string]string, format, service string) ([]byte, *toolerr.Envelope) {
	release, err := p.throttle.Acquire(ctx, service)
	if err != nil {
		log.Warn(ctx, "upstream throttled", observe.F("error", err))
		return nil, toolerr.Classify(err)
	}
	defer release()

	breaker := p.breakers.Get(service)
	if err := breaker.Allow(); err != nil {
		retryAfter := breaker.RetryAfter()
		log.Warn(ctx, "circuit open, failing fast",
			observe.F("retry_after_ms", retryAfter.Milliseconds()),
		)
		return nil, toolerr.CircuitOpen(service, retryAfter)
	}

	log.Info(ctx, "upstream request start", observe.F("url", observe.RedactURL(url)))
	started := p.now()

	body, err := p.retrying(ctx, log, url, headers, service)
	if err == nil {
		err = validateBody(body, format)
		if err != nil {
			// The upstream answered; only the payload is bad.
			breaker.RecordSuccess()
			log.Warn(ctx, "upstream returned an undecodable body",
				observe.F("format", format),
				observe.F("error", err),
			)
			return nil, toolerr.Classify(err)
		}
	}
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, resilience.ErrTimeout) {
			// Every waiter left; the upstream was not at fault.
			breaker.Release()
			log.Info(ctx, "upstream request abandoned", observe.F("error", err))
			return nil, toolerr.Classify(err)
		}
		breaker.RecordFailure()
		return nil, toolerr.Classify(err)
	}

	breaker.RecordSuccess()
	if err := p.cache.Set(ctx, key, body); err != nil {
		log.Warn(ctx, "response not cached", observe.F("error", err))
	}
	log.Info(ctx, "upstream request success",
		observe.F("duration_ms", p.now().Sub(started).Milliseconds()),
		observe.F("bytes", len(body)),
	)
	return body, nil
}

// retrying runs the transport call under the retry policy and the overall
// ceiling.
func (p *Pipeline) retrying(ctx context.Context, log observe.Logger, url string, headers map[string]string, service string) ([]byte, error) {
	cfg := p.retryConfig
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		p.metrics.RecordRetry(ctx, service)
		log.Info(ctx, "retrying upstream request",
			observe.F("attempt", attempt),
			observe.F("delay_ms", delay.Milliseconds()),
			observe.F("error", err),
		)
	}
	retry := resilience.NewRetry(cfg)

	var (
		body     []byte
		attempts int
	)
	err := resilience.ExecuteWithTimeout(ctx, p.timeout, func(ctx context.Context) error {
		return retry.Execute(ctx, func(ctx context.Context) error {
			attempts++
			b, err := p.do(ctx, url, headers)
			if err != nil {
				return err
			}
			body = b
			return nil
		})
	})
	if err == nil {
		return body, nil
	}

	if cfg.RetryIf(err) || errors.Is(err, resilience.ErrTimeout) {
		log.Error(ctx, "upstream retries exhausted",
			observe.F("attempts", attempts),
			observe.F("error", err),
		)
	} else {
		log.Warn(ctx, "upstream request failed",
			observe.F("attempts", attempts),
			observe.F("error", err),
		)
	}
	return nil, err
}

func (p *Pipeline) do(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &toolerr.StatusError{StatusCode: resp.StatusCode, URL: observe.RedactURL(url)}
	}

	return io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodyBytes))
}

func validateBody(body []byte, format string) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return toolerr.ErrEmptyBody
	}
	if format == formatJSON && !json.Valid(body) {
		var v any
		return &toolerr.DecodeError{Format: formatJSON, Err: json.Unmarshal(body, &v)}
	}
	return nil
}

func (p *Pipeline) onBreakerChange(service string, from, to resilience.State) {
	ctx := context.Background()
	p.metrics.RecordBreakerTransition(ctx, service, from.String(), to.String())

	fields := []observe.Field{
		observe.F("service", service),
		observe.F("from", from.String()),
		observe.F("to", to.String()),
	}
	if to == resilience.StateOpen {
		p.logger.Warn(ctx, "circuit breaker opened", fields...)
		return
	}
	p.logger.Info(ctx, "circuit breaker state changed", fields...)
}
