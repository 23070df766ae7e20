package fetch

import (
	"net/http"
	"time"

	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/observe"
	"github.com/jonwraymond/realestate/resilience"
)

// Pipeline defaults.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultSlowThreshold = 10 * time.Second
	DefaultMaxBodyBytes  = 16 << 20
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.client = c
		}
	}
}

// WithCache sets the response cache.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.cache = c
		}
	}
}

// WithBreakerConfig sets the config shared by every per-service breaker.
// OnStateChange is owned by the pipeline and is ignored.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(p *Pipeline) {
		p.breakerConfig = cfg
	}
}

// WithRetry sets the retry policy. RetryIf defaults to toolerr.IsTransient
// and OnRetry is owned by the pipeline.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Pipeline) {
		p.retryConfig = cfg
	}
}

// WithTimeout sets the wall-clock ceiling for one fetch, retries included.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithSlowThreshold sets the duration above which a completed fetch is
// logged as degraded.
func WithSlowThreshold(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.slowThreshold = d
		}
	}
}

// WithThrottle enables per-service pacing and concurrency caps.
func WithThrottle(cfg resilience.ThrottleConfig) Option {
	return func(p *Pipeline) {
		p.throttle = resilience.NewThrottleGroup(cfg)
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer sets the tracer for fetch spans.
func WithTracer(t observe.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the fetch metrics recorder.
func WithMetrics(m observe.FetchMetrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock sets the time source used to measure fetch duration.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithUserAgent sets the User-Agent header of upstream requests.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}
