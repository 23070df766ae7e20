package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means a single trial request is probing the service.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	// Default: 5
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before a single
	// trial request is let through.
	// Default: 30 seconds
	RecoveryTimeout time.Duration

	// OnStateChange is called when the circuit state changes. It runs with
	// the breaker lock held and must not call back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Now is the time source. Default: time.Now
	Now func() time.Time
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return err != nil }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// CircuitBreaker counts consecutive failures of one upstream service and
// fails fast while that service is considered down.
//
// Closed: failures accumulate; any success resets the count. Reaching
// FailureThreshold opens the circuit.
// Open: Allow returns ErrCircuitOpen until RecoveryTimeout has passed since
// the circuit opened; the next Allow then admits exactly one trial.
// HalfOpen: the trial's outcome closes or re-opens the circuit. Other
// callers fail fast while the trial is in flight.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config.withDefaults(),
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := op(ctx)
	cb.Record(err)
	return err
}

// Allow reports whether a request may proceed. It returns ErrCircuitOpen
// when the caller must fail fast. A nil return obliges the caller to report
// the outcome through Record, RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.config.Now().Sub(cb.openedAt) < cb.config.RecoveryTimeout {
			return ErrCircuitOpen
		}
		cb.setStateLocked(StateHalfOpen)
		cb.trialInFlight = true
		return nil
	case StateHalfOpen:
		if cb.trialInFlight {
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// Record reports the outcome of an allowed request.
func (cb *CircuitBreaker) Record(err error) {
	if cb.config.IsFailure(err) {
		cb.RecordFailure()
		return
	}
	cb.RecordSuccess()
}

// RecordSuccess reports a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.failures = 0
		cb.openedAt = time.Time{}
		cb.trialInFlight = false
		cb.setStateLocked(StateClosed)
	}
}

// RecordFailure reports a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.openedAt = cb.config.Now()
			cb.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		// Failed trial; restart the recovery window.
		cb.failures++
		cb.openedAt = cb.config.Now()
		cb.trialInFlight = false
		cb.setStateLocked(StateOpen)
	}
}

// Release gives back an admission whose outcome says nothing about the
// upstream, such as a request abandoned by its caller. A half-open trial
// slot is freed for the next caller; the state and failure count are left
// as they are.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}
}

// State returns the current circuit state. An open circuit stays open
// until a caller is admitted as the trial, even after the recovery timeout
// has elapsed; Metrics reports that case through TrialEligible.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// RetryAfter returns how long until an open circuit admits a trial.
// It is zero unless the circuit is open.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}
	return max(cb.openedAt.Add(cb.config.RecoveryTimeout).Sub(cb.config.Now()), 0)
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.openedAt = time.Time{}
	cb.trialInFlight = false
	cb.setStateLocked(StateClosed)
}

// trialEligibleLocked reports whether the next Allow would admit a trial.
func (cb *CircuitBreaker) trialEligibleLocked() bool {
	switch cb.state {
	case StateOpen:
		return cb.config.Now().Sub(cb.openedAt) >= cb.config.RecoveryTimeout
	case StateHalfOpen:
		return !cb.trialInFlight
	default:
		return false
	}
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	old := cb.state
	cb.state = state
	if old != state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, state)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		OpenedAt:            cb.openedAt,
		TrialEligible:       cb.trialEligibleLocked(),
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
//
// State is the state the breaker last transitioned to. An open breaker
// whose recovery timeout has passed keeps State open and its original
// OpenedAt until a caller is admitted; TrialEligible is true in that
// window and while a half-open breaker has no trial in flight.
type CircuitBreakerMetrics struct {
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
	TrialEligible       bool      `json:"trial_eligible"`
}
