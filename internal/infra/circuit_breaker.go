package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"parkcore/internal/metrics"

	"github.com/rs/zerolog/log"
)

// A CircuitBreaker sits in front of each HTTP collaborator (quota, currency
// index). After enough consecutive failures it rejects calls outright for a
// cool-down, then lets a single probe through to decide whether to close.

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned without calling the collaborator.
var ErrBreakerOpen = errors.New("collaborator circuit open")

type BreakerSettings struct {
	Name string
	// Trip after this many consecutive failures.
	MaxFailures int
	// Close after this many consecutive successful probes.
	ProbeSuccesses int
	CoolDown       time.Duration
}

func breakerSettings(name string) BreakerSettings {
	return BreakerSettings{Name: name, MaxFailures: 5, ProbeSuccesses: 2, CoolDown: 30 * time.Second}
}

type CircuitBreaker struct {
	settings BreakerSettings
	now      func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreaker(s BreakerSettings) *CircuitBreaker {
	d := breakerSettings(s.Name)
	if s.MaxFailures <= 0 {
		s.MaxFailures = d.MaxFailures
	}
	if s.ProbeSuccesses <= 0 {
		s.ProbeSuccesses = d.ProbeSuccesses
	}
	if s.CoolDown <= 0 {
		s.CoolDown = d.CoolDown
	}
	metrics.BreakerState.WithLabelValues(s.Name).Set(float64(StateClosed))
	return &CircuitBreaker{settings: s, now: time.Now}
}

func (cb *CircuitBreaker) Name() string { return cb.settings.Name }

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

// refresh moves an open breaker to half-open once the cool-down is over.
// Caller holds mu.
func (cb *CircuitBreaker) refresh() {
	if cb.state == StateOpen && !cb.now().Before(cb.openedAt.Add(cb.settings.CoolDown)) {
		cb.setState(StateHalfOpen)
	}
}

// admit reports whether a call may proceed. In half-open only one call is in
// flight at a time.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	switch cb.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
	}
	return true
}

// Call runs fn unless the breaker is open. A call abandoned because ctx was
// canceled by the caller does not count against the collaborator.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if !cb.admit() {
		return ErrBreakerOpen
	}
	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	switch {
	case err == nil:
		cb.recordSuccess()
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
	default:
		cb.recordFailure()
	}
	return err
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.failures = 0
	if cb.state != StateHalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.settings.ProbeSuccesses {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.settings.MaxFailures {
		cb.openedAt = cb.now()
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(to BreakerState) {
	if cb.state == to {
		return
	}
	log.Warn().
		Str("collaborator", cb.settings.Name).
		Stringer("from", cb.state).
		Stringer("to", to).
		Msg("circuit breaker state change")
	cb.state = to
	cb.failures, cb.successes = 0, 0
	metrics.BreakerState.WithLabelValues(cb.settings.Name).Set(float64(to))
}
