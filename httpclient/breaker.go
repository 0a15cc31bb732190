package httpclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrCircuitOpen indicates the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker states as reported by State and OnStateChange.
const (
	BreakerClosed   = "closed"
	BreakerOpen     = "open"
	BreakerHalfOpen = "half-open"
)

// BreakerDecider decides whether a response/error should trip the breaker.
type BreakerDecider func(req *http.Request, resp *http.Response, err error) bool

// CircuitBreaker fails fast after consecutive failures and retries with a
// single request once the reset timeout elapses.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            string
	failures         int
	openedAt         time.Time
	halfOpenInFlight bool
	maxFailures      int
	resetTimeout     time.Duration
	now              func() time.Time
	onStateChange    func(state string)
}

// CircuitBreakerOptions configures a CircuitBreaker.
type CircuitBreakerOptions struct {
	MaxFailures   int
	ResetTimeout  time.Duration
	Now           func() time.Time
	OnStateChange func(state string)
}

// NewCircuitBreaker builds a CircuitBreaker with defaults.
func NewCircuitBreaker(options CircuitBreakerOptions) *CircuitBreaker {
	maxFailures := options.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	reset := options.ResetTimeout
	if reset <= 0 {
		reset = 30 * time.Second
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		state:         BreakerClosed,
		maxFailures:   maxFailures,
		resetTimeout:  reset,
		now:           now,
		onStateChange: options.OnStateChange,
	}
}

// State returns the current breaker state.
func (c *CircuitBreaker) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Allow returns ErrCircuitOpen when the breaker is open.
func (c *CircuitBreaker) Allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case BreakerOpen:
		if c.now().Sub(c.openedAt) < c.resetTimeout {
			return ErrCircuitOpen
		}
		c.changeState(BreakerHalfOpen)
		c.halfOpenInFlight = false
	case BreakerHalfOpen:
		if c.halfOpenInFlight {
			return ErrCircuitOpen
		}
	}

	if c.state == BreakerHalfOpen {
		c.halfOpenInFlight = true
	}
	return nil
}

// Record reports the success/failure of a request.
func (c *CircuitBreaker) Record(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case BreakerHalfOpen:
		c.halfOpenInFlight = false
		c.failures = 0
		if success {
			c.changeState(BreakerClosed)
			return
		}
		c.openedAt = c.now()
		c.changeState(BreakerOpen)
		return
	case BreakerOpen:
		return
	}

	if success {
		c.failures = 0
		return
	}

	c.failures++
	if c.failures >= c.maxFailures {
		c.failures = 0
		c.openedAt = c.now()
		c.changeState(BreakerOpen)
	}
}

func (c *CircuitBreaker) changeState(state string) {
	c.state = state
	if c.onStateChange != nil {
		c.onStateChange(state)
	}
}

// BreakerRoundTripper wraps a base transport with a CircuitBreaker.
type BreakerRoundTripper struct {
	Base       http.RoundTripper
	Breaker    *CircuitBreaker
	ShouldTrip BreakerDecider
}

// RoundTrip executes the request with circuit breaker protection.
func (b *BreakerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := baseOrDefault(b.Base)
	if b.Breaker == nil {
		return base.RoundTrip(req)
	}

	if err := b.Breaker.Allow(); err != nil {
		return nil, err
	}

	resp, err := base.RoundTrip(req)
	trip := b.ShouldTrip
	if trip == nil {
		trip = DefaultBreakerDecider
	}
	b.Breaker.Record(!trip(req, resp, err))
	return resp, err
}

// DefaultBreakerDecider trips on network errors or 5xx responses.
func DefaultBreakerDecider(req *http.Request, resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode >= http.StatusInternalServerError
}
