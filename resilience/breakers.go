package resilience

import (
	"sort"
	"sync"
)

// BreakerGroup holds one CircuitBreaker per upstream service, created on
// first use. All breakers share the group's configuration so that a failing
// service never trips the breaker of an unrelated one.
type BreakerGroup struct {
	config        CircuitBreakerConfig
	onStateChange func(service string, from, to State)

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerGroup creates a group. The config's own OnStateChange is
// ignored; use onStateChange to observe transitions with the service name.
func NewBreakerGroup(config CircuitBreakerConfig, onStateChange func(service string, from, to State)) *BreakerGroup {
	config.OnStateChange = nil
	return &BreakerGroup{
		config:        config,
		onStateChange: onStateChange,
		breakers:      make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for service, creating it if needed.
func (g *BreakerGroup) Get(service string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[service]; ok {
		return cb
	}

	cfg := g.config
	if g.onStateChange != nil {
		cfg.OnStateChange = func(from, to State) {
			g.onStateChange(service, from, to)
		}
	}
	cb := NewCircuitBreaker(cfg)
	g.breakers[service] = cb
	return cb
}

// Services lists known services in sorted order.
func (g *BreakerGroup) Services() []string {
	g.mu.Lock()
	names := make([]string, 0, len(g.breakers))
	for name := range g.breakers {
		names = append(names, name)
	}
	g.mu.Unlock()

	sort.Strings(names)
	return names
}

// Snapshot returns metrics for every breaker created so far.
func (g *BreakerGroup) Snapshot() map[string]CircuitBreakerMetrics {
	g.mu.Lock()
	breakers := make(map[string]*CircuitBreaker, len(g.breakers))
	for name, cb := range g.breakers {
		breakers[name] = cb
	}
	g.mu.Unlock()

	out := make(map[string]CircuitBreakerMetrics, len(breakers))
	for name, cb := range breakers {
		out[name] = cb.Metrics()
	}
	return out
}
