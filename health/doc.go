// Package health reports the state of the server for HTTP deployments.
//
// Checkers cover the upstream circuit breakers, the response cache and the
// configured API credentials. An Aggregator runs them together and Mount
// exposes the results on a chi router:
//
//	agg := health.NewAggregator(0)
//	agg.Register(health.BreakerChecker(pipeline.BreakerStates))
//	agg.Register(health.CacheChecker(pipeline.CacheStats))
//	health.Mount(router, agg)
//
// /healthz is a liveness check, /readyz a readiness check and /health the
// detailed JSON report.
package health
