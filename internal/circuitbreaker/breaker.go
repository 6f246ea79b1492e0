package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/guildbot/internal/clock"
)

// ErrOpen is returned by Call while the circuit is open
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = iota
	// StateOpen means the circuit is open and requests are blocked
	StateOpen
	// StateHalfOpen means the circuit is testing if it can close
	StateHalfOpen
)

// String returns the string representation of the state
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

// CircuitBreaker guards one upstream service
type CircuitBreaker struct {
	mu sync.RWMutex

	name          string
	threshold     int
	timeout       time.Duration
	clock         clock.Clock
	healthCheckFn func(context.Context) error
	onStateChange func(name string, from, to State)
	isFailure     func(error) bool

	state               State
	consecutiveFailures int
	lastFailureTime     time.Time
	lastStateChange     time.Time
	halfOpenInFlight    bool
}

// Config holds configuration for the circuit breaker
type Config struct {
	Name          string                            // Upstream name, used in errors and callbacks
	Threshold     int                               // Consecutive failures before opening (default: 5)
	Timeout       time.Duration                     // Time to wait before a trial call (default: 30s)
	Clock         clock.Clock                       // Defaults to the wall clock
	HealthCheckFn func(context.Context) error       // Optional check used by TryHealthCheck
	OnStateChange func(name string, from, to State) // Callback when state changes
	// IsFailure decides whether an error counts toward opening the circuit.
	// Defaults to every non-nil error.
	IsFailure func(error) bool
}

// New creates a new circuit breaker with the given configuration
func New(config Config) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		name:            config.Name,
		threshold:       config.Threshold,
		timeout:         config.Timeout,
		clock:           config.Clock,
		healthCheckFn:   config.HealthCheckFn,
		onStateChange:   config.OnStateChange,
		isFailure:       config.IsFailure,
		state:           StateClosed,
		lastStateChange: config.Clock.Now(),
	}
}

// Name returns the upstream name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Call executes fn if the circuit allows it.
// Returns ErrOpen while the circuit is open, or ctx.Err() if ctx is already done.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn()
	cb.afterCall(err)
	return err
}

// beforeCall checks if the call should be allowed
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.clock.Now().Sub(cb.lastFailureTime) >= cb.timeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenInFlight = true
			return nil
		}
		return fmt.Errorf("%s: %w", cb.name, ErrOpen)

	case StateHalfOpen:
		// Only one trial call at a time
		if cb.halfOpenInFlight {
			return fmt.Errorf("%s: %w", cb.name, ErrOpen)
		}
		cb.halfOpenInFlight = true
		return nil

	default:
		return fmt.Errorf("unknown circuit breaker state")
	}
}

// afterCall records the result of a call
func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.halfOpenInFlight = false
	if err != nil && cb.isFailure(err) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

// onFailure handles a failed call
func (cb *CircuitBreaker) onFailure() {
	cb.lastFailureTime = cb.clock.Now()
	cb.consecutiveFailures++

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.threshold {
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

// onSuccess handles a successful call
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0

	case StateHalfOpen:
		cb.consecutiveFailures = 0
		cb.setState(StateClosed)
	}
}

// setState changes the circuit breaker state
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.clock.Now()

	if cb.onStateChange != nil {
		// Call in a goroutine to avoid blocking under the lock
		go cb.onStateChange(cb.name, oldState, newState)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// HasHealthCheck reports whether a health check function is configured
func (cb *CircuitBreaker) HasHealthCheck() bool {
	return cb.healthCheckFn != nil
}

// TryHealthCheck runs the configured health check in place of the half-open trial call.
// It is a no-op unless the circuit is open, returns ErrOpen before the timeout has
// elapsed, and closes the circuit on success.
func (cb *CircuitBreaker) TryHealthCheck(ctx context.Context) error {
	if cb.healthCheckFn == nil {
		return fmt.Errorf("no health check function configured")
	}

	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return nil
	}
	if cb.clock.Now().Sub(cb.lastFailureTime) < cb.timeout {
		cb.mu.Unlock()
		return fmt.Errorf("%s: %w", cb.name, ErrOpen)
	}
	cb.setState(StateHalfOpen)
	cb.halfOpenInFlight = true
	cb.mu.Unlock()

	err := cb.healthCheckFn(ctx)
	cb.afterCall(err)
	return err
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return Stats{
		Name:                cb.name,
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		LastFailureTime:     cb.lastFailureTime,
		LastStateChange:     cb.lastStateChange,
		Threshold:           cb.threshold,
		Timeout:             cb.timeout,
	}
}

// Stats holds statistics about the circuit breaker
type Stats struct {
	Name                string
	State               State
	ConsecutiveFailures int
	LastFailureTime     time.Time
	LastStateChange     time.Time
	Threshold           int
	Timeout             time.Duration
}
