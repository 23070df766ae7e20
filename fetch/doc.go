// Package fetch is the resilient upstream call path shared by every tool.
//
// A fetch runs these steps in order:
//
//  1. Look up the response cache, keyed by URL only.
//  2. Ask the circuit breaker of the upstream service for admission.
//  3. Run the HTTP GET under the retry policy, bounded by the overall timeout.
//  4. Record the outcome on the breaker and cache successful bodies.
//
// Failures come back as *toolerr.Envelope values and are never cached.
// In-band result codes inside a 2xx body are left to the response parsers.
package fetch
