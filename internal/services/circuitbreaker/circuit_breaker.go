package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/replygate/replygate/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Snapshot is a point-in-time view of the breaker for health reporting.
type Snapshot struct {
	Name         string
	State        State
	FailureCount int
	SuccessCount int
	LastFailure  *time.Time
}

// CircuitBreaker guards one provider. It holds only local counters and does
// no I/O: the fallback chain must keep working with every dependency down.
// OPEN -> HALF_OPEN happens lazily inside CanAttempt, not on a timer.
type CircuitBreaker struct {
	mu sync.Mutex

	name   string
	config models.CircuitBreakerConfig

	state            State
	failureCount     int
	successCount     int
	halfOpenAttempts int
	lastFailureTime  time.Time

	now func() time.Time
}

func New(name string, config models.CircuitBreakerConfig) *CircuitBreaker {
	config = config.WithDefaults()
	fiberlog.Debugf("CircuitBreaker: initialized for %s (threshold: %d, reset: %v)",
		name, config.FailureThreshold, config.ResetTimeout())

	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  Closed,
		now:    time.Now,
	}
}

// CanAttempt reports whether the provider may be called right now. When the
// breaker is OPEN and the reset timeout has elapsed since the last failure,
// the check itself transitions to HALF_OPEN and admits the probe.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		return true
	case Open:
		if cb.now().Sub(cb.lastFailureTime) >= cb.config.ResetTimeout() {
			cb.transitionTo(HalfOpen)
			return true
		}
		return false
	case HalfOpen:
		return cb.halfOpenAttempts < cb.config.HalfOpenMaxAttempts
	default:
		return false
	}
}

// RecordSuccess absorbs a successful call. A success while HALF_OPEN closes
// the breaker; while CLOSED it decrements the failure count by one, floored
// at zero, so a single success does not erase a long failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successCount++

	switch cb.state {
	case HalfOpen:
		fiberlog.Infof("CircuitBreaker: %s half_open -> closed (recovery successful)", cb.name)
		cb.transitionTo(Closed)
	case Closed:
		if cb.failureCount > 0 {
			cb.failureCount--
		}
	}
}

// RecordFailure absorbs a failed call and stamps the failure time.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case HalfOpen:
		cb.halfOpenAttempts++
		if cb.halfOpenAttempts >= cb.config.HalfOpenMaxAttempts {
			fiberlog.Warnf("CircuitBreaker: %s half_open -> open (recovery failed)", cb.name)
			cb.transitionTo(Open)
			cb.halfOpenAttempts = 0
		}
	case Closed:
		if cb.failureCount >= cb.config.FailureThreshold {
			fiberlog.Warnf("CircuitBreaker: %s closed -> open (threshold reached: %d/%d)",
				cb.name, cb.failureCount, cb.config.FailureThreshold)
			cb.transitionTo(Open)
		}
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker CLOSED, for operator intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	fiberlog.Infof("CircuitBreaker: %s manual reset to closed", cb.name)
	cb.transitionTo(Closed)
	cb.successCount = 0
	cb.lastFailureTime = time.Time{}
}

// Snapshot returns the breaker's counters for health reporting.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Snapshot{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		SuccessCount: cb.successCount,
	}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		s.LastFailure = &t
	}
	return s
}

// transitionTo must be called with cb.mu held. Entering CLOSED resets the
// failure and half-open counters.
func (cb *CircuitBreaker) transitionTo(newState State) {
	cb.state = newState
	if newState == Closed {
		cb.failureCount = 0
		cb.halfOpenAttempts = 0
	}
}
