// Package resilience provides the failure-isolation building blocks used
// around upstream API calls.
//
// # Patterns
//
//   - CircuitBreaker: counts consecutive failures and fails fast while a
//     service is down, letting one trial request through after the
//     recovery timeout. BreakerGroup keeps one breaker per service.
//
//   - Retry: retries transient failures with exponential backoff
//     (1s, 2s, 4s ... capped at MaxDelay).
//
//   - Timeout: bounds the total time of an operation including retries.
//
//   - RateLimiter and Bulkhead: optional per-service pacing and
//     concurrency caps, grouped by ThrottleGroup.
//
// # Usage
//
// The patterns are composed explicitly by the caller:
//
//	breakers := resilience.NewBreakerGroup(resilience.CircuitBreakerConfig{}, nil)
//	retry := resilience.NewRetry(resilience.RetryConfig{RetryIf: isTransient})
//	ceiling := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: 30 * time.Second})
//
//	cb := breakers.Get("molit")
//	if err := cb.Allow(); err != nil {
//	    return err // fail fast
//	}
//	err := ceiling.Execute(ctx, func(ctx context.Context) error {
//	    return retry.Execute(ctx, callUpstream)
//	})
//	cb.Record(err)
package resilience
