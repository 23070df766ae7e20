package health

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/resilience"
)

// BreakerChecker reports degraded while any upstream circuit is open or
// probing. The server itself stays usable, so it is never unhealthy.
func BreakerChecker(states func() map[string]resilience.CircuitBreakerMetrics) Checker {
	return NewCheckerFunc("upstreams", func(ctx context.Context) Result {
		snapshot := states()
		details := make(map[string]any, len(snapshot))
		var tripped []string
		for service, m := range snapshot {
			details[service] = map[string]any{
				"state":                m.State.String(),
				"consecutive_failures": m.ConsecutiveFailures,
				"trial_eligible":       m.TrialEligible,
			}
			if m.State != resilience.StateClosed {
				tripped = append(tripped, service)
			}
		}

		if len(tripped) == 0 {
			return Healthy(fmt.Sprintf("%d upstream circuits closed", len(snapshot))).WithDetails(details)
		}
		sort.Strings(tripped)
		r := Degraded("circuit open for " + strings.Join(tripped, ", ")).WithDetails(details)
		r.Error = ErrCircuitOpen
		return r
	})
}

// CacheChecker reports response cache counters. It is always healthy.
func CacheChecker(stats func() cache.Stats) Checker {
	return NewCheckerFunc("cache", func(ctx context.Context) Result {
		s := stats()
		return Healthy(fmt.Sprintf("%d entries cached", s.Size)).WithDetails(map[string]any{
			"hits":     s.Hits,
			"misses":   s.Misses,
			"hit_rate": s.HitRate,
			"size":     s.Size,
		})
	})
}

// CredentialsChecker reports degraded when an API family has no key.
// Tools of that family answer with config_error until one is set.
func CredentialsChecker(configured map[string]bool) Checker {
	return NewCheckerFunc("credentials", func(ctx context.Context) Result {
		details := make(map[string]any, len(configured))
		var missing []string
		for family, ok := range configured {
			details[family] = ok
			if !ok {
				missing = append(missing, family)
			}
		}
		if len(missing) == 0 {
			return Healthy("all API keys configured").WithDetails(details)
		}
		sort.Strings(missing)
		return Degraded("missing API key for " + strings.Join(missing, ", ")).WithDetails(details)
	})
}
