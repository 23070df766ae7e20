package resilience

import (
	"context"
	"sync"
)

// ThrottleConfig enables per-service pacing and concurrency caps.
// A zero value disables both.
type ThrottleConfig struct {
	// RatePerSecond paces requests per service. Zero disables pacing.
	RatePerSecond float64

	// MaxConcurrent caps in-flight requests per service. Zero disables
	// the cap.
	MaxConcurrent int

	// RateLimiter and Bulkhead carry the wait bounds. Their Rate and
	// MaxConcurrent fields are overridden by the values above.
	RateLimiter RateLimiterConfig
	Bulkhead    BulkheadConfig
}

// Enabled reports whether any limit is configured.
func (c ThrottleConfig) Enabled() bool {
	return c.RatePerSecond > 0 || c.MaxConcurrent > 0
}

// ThrottleGroup keeps a RateLimiter and Bulkhead per service.
type ThrottleGroup struct {
	config ThrottleConfig

	mu       sync.Mutex
	limiters map[string]*RateLimiter
	bulks    map[string]*Bulkhead
}

// NewThrottleGroup creates a group with the given limits.
func NewThrottleGroup(config ThrottleConfig) *ThrottleGroup {
	return &ThrottleGroup{
		config:   config,
		limiters: make(map[string]*RateLimiter),
		bulks:    make(map[string]*Bulkhead),
	}
}

// Acquire waits for the service's rate and concurrency limits. The
// returned release func must be called once the request finishes.
func (g *ThrottleGroup) Acquire(ctx context.Context, service string) (release func(), err error) {
	release = func() {}
	if g == nil || !g.config.Enabled() {
		return release, nil
	}

	rl, bh := g.get(service)
	if rl != nil {
		if err := rl.Wait(ctx); err != nil {
			return release, err
		}
	}
	if bh != nil {
		if err := bh.Acquire(ctx); err != nil {
			return release, err
		}
		release = bh.Release
	}
	return release, nil
}

func (g *ThrottleGroup) get(service string) (*RateLimiter, *Bulkhead) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rl, ok := g.limiters[service]
	if !ok && g.config.RatePerSecond > 0 {
		cfg := g.config.RateLimiter
		cfg.Rate = g.config.RatePerSecond
		rl = NewRateLimiter(cfg)
		g.limiters[service] = rl
	}
	bh, ok := g.bulks[service]
	if !ok && g.config.MaxConcurrent > 0 {
		cfg := g.config.Bulkhead
		cfg.MaxConcurrent = g.config.MaxConcurrent
		bh = NewBulkhead(cfg)
		g.bulks[service] = bh
	}
	return rl, bh
}
