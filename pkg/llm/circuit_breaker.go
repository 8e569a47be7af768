package llm

import (
	"context"
	"sync"
	"time"
)

// CircuitState represents the current state of a provider's circuit breaker.
type CircuitState int

const (
	// CircuitClosed means requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the provider has been failing and requests are blocked.
	CircuitOpen
	// CircuitHalfOpen means one probe request is allowed to test recovery.
	CircuitHalfOpen
)

// String returns a human-readable string for the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is how long to wait before probing the provider again.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns the defaults used for provider circuits.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker trips open after N consecutive provider failures so a dead
// backend fails fast instead of burning the caller's timeout budget.
type CircuitBreaker struct {
	mu               sync.Mutex
	provider         string
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
}

// NewCircuitBreaker creates a circuit breaker for the named provider.
func NewCircuitBreaker(provider string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		provider:   provider,
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
	}
}

// Allow returns nil if a request may proceed, or a classified *Error when
// the circuit is open. An expired open circuit transitions to half-open and
// lets one probe through.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		return NewError(ErrorTypeEndpoint, cb.provider, "circuit open: provider appears to be down", false, nil)
	case CircuitHalfOpen:
		return NewError(ErrorTypeEndpoint, cb.provider, "circuit half-open: recovery probe in flight", false, nil)
	default:
		return NewError(ErrorTypeUnknown, cb.provider, "circuit in unknown state", false, nil)
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure increments the failure count, tripping the circuit at the
// threshold. A failed half-open probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerProvider wraps a Provider with a circuit breaker. Callers see fast
// classified failures while the underlying backend is down.
type BreakerProvider struct {
	inner   Provider
	breaker *CircuitBreaker
}

// WithCircuitBreaker wraps the provider with a breaker using the given config.
func WithCircuitBreaker(inner Provider, config CircuitBreakerConfig) *BreakerProvider {
	return &BreakerProvider{
		inner:   inner,
		breaker: NewCircuitBreaker(inner.Name(), config),
	}
}

// Name implements Provider.
func (b *BreakerProvider) Name() string {
	return b.inner.Name()
}

// ExecuteStructured implements Provider.
func (b *BreakerProvider) ExecuteStructured(ctx context.Context, call *StructuredCall) (*Result, error) {
	if err := b.breaker.Allow(); err != nil {
		return nil, err
	}
	result, err := b.inner.ExecuteStructured(ctx, call)
	b.record(err)
	return result, err
}

// GenerateText implements Provider.
func (b *BreakerProvider) GenerateText(ctx context.Context, req *TextRequest) (*Result, error) {
	if err := b.breaker.Allow(); err != nil {
		return nil, err
	}
	result, err := b.inner.GenerateText(ctx, req)
	b.record(err)
	return result, err
}

func (b *BreakerProvider) record(err error) {
	// Format errors are the model misbehaving, not the endpoint being down;
	// they do not trip the circuit.
	if err == nil || GetErrorType(err) == ErrorTypeFormat {
		b.breaker.RecordSuccess()
		return
	}
	b.breaker.RecordFailure()
}

// Ensure BreakerProvider implements Provider at compile time.
var _ Provider = (*BreakerProvider)(nil)
