// Package resilience guards calls to out-of-process collaborators with a
// circuit breaker and bounded retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a breaker. The breaker trips on
// FailureThreshold consecutive failures, or once MinRequestsToTrip calls
// have been seen in the current interval with a failure ratio at or above
// FailureRatioThreshold.
type CircuitBreakerConfig struct {
	Name                  string
	MaxRequests           uint32        // trial requests allowed while half-open
	Interval              time.Duration // closed-state count reset period
	Timeout               time.Duration // open to half-open delay
	FailureThreshold      uint32
	FailureRatioThreshold float64
	MinRequestsToTrip     uint32
}

// DefaultCircuitBreakerConfig trips after three straight failures and
// retries again after thirty seconds
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                  name,
		MaxRequests:           1,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      3,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
}

func (c *CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= c.FailureThreshold {
		return true
	}
	if c.MinRequestsToTrip == 0 || counts.Requests < c.MinRequestsToTrip {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatioThreshold
}

// StateObserver is notified when a breaker changes state
type StateObserver func(name string, from, to gobreaker.State)

// CircuitBreaker is a logging gobreaker with a context-aware Execute
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewCircuitBreaker creates a breaker. A nil logger uses slog.Default.
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *slog.Logger, observers ...StateObserver) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: config.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			for _, observe := range observers {
				observe(name, from, to)
			}
		},
	})
	return &CircuitBreaker{cb: cb, logger: logger}
}

// Execute runs fn unless the breaker is open
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("Circuit breaker rejected call", "name", c.cb.Name(), "state", c.cb.State().String())
		return fmt.Errorf("%w: %s", ErrCircuitOpen, c.cb.Name())
	}
	return err
}

func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreaker) Name() string {
	return c.cb.Name()
}
