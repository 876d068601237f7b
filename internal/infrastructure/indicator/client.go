// Package indicator lights the LED of the storage box a new remainder
// belongs in. Signals are best effort: failures are logged and counted,
// never returned.
package indicator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
	"github.com/tiagodcc/ikts/pkg/resilience"
	"github.com/tiagodcc/ikts/pkg/tracing"
)

// DefaultTimeout bounds a single LED request
const DefaultTimeout = 2 * time.Second

// ledRequest is the body of a box LED request
type ledRequest struct {
	Box   int    `json:"box"`
	State string `json:"state"`
}

// Config holds the indicator client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retry applies to transport failures only. Nil uses two attempts 50ms apart.
	Retry *resilience.RetryConfig
}

// statusError is a response the controller answered with a non-2xx status
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("indicator returned status %d", e.code)
}

func transportFailure(err error) bool {
	var status statusError
	return !errors.As(err, &status)
}

// Client posts LED signals to the indicator controller through a circuit breaker
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      resilience.RetryConfig
	budget     time.Duration
	metrics    *metrics.Metrics
	logger     *logging.Logger

	inflight sync.WaitGroup
}

// NewClient creates a new indicator client
func NewClient(cfg Config, m *metrics.Metrics, logger *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	retry := resilience.RetryConfig{MaxAttempts: 2, InitialDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond, BackoffFactor: 1}
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	retry.RetryableErrors = transportFailure

	breakerCfg := resilience.DefaultCircuitBreakerConfig("indicator")

	var observers []resilience.StateObserver
	if m != nil {
		observers = append(observers, func(name string, _, to gobreaker.State) {
			m.SetCircuitBreakerState(name, int(to))
		})
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    resilience.NewCircuitBreaker(breakerCfg, logger.Logger, observers...),
		retry:      retry,
		budget:     time.Duration(max(retry.MaxAttempts, 1)) * (timeout + retry.MaxDelay),
		metrics:    m,
		logger:     logger.WithComponent("indicator"),
	}
}

// SignalRemainder lights the box for a remainder of the given length in
// the background and returns at once. The signal outlives ctx's
// cancellation but not the client's own time budget.
func (c *Client) SignalRemainder(ctx context.Context, length int) {
	if _, ok := domain.RemainderBox(length); !ok {
		return
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		signalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.budget)
		defer cancel()
		c.Signal(signalCtx, length)
	}()
}

// Wait blocks until every dispatched signal has finished
func (c *Client) Wait() {
	c.inflight.Wait()
}

// Signal lights the box for a remainder of the given length and returns
// when the controller answered or gave up. Lengths below the smallest box
// do nothing.
func (c *Client) Signal(ctx context.Context, length int) {
	box, ok := domain.RemainderBox(length)
	if !ok {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "indicator", "indicator.signal",
		attribute.Int("indicator.box", box),
		attribute.Int("remainder.length", length),
	)
	defer span.End()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, &c.retry, func() error {
			return c.post(ctx, box)
		})
	})
	if c.metrics != nil {
		c.metrics.RecordIndicatorSignal(box, err == nil)
	}
	if err != nil {
		tracing.RecordError(span, err)
		c.logger.WithContext(ctx).WithError(err).Warn("Remainder indicator signal failed", "box", box, "length", length)
		return
	}
	c.logger.WithContext(ctx).Debug("Remainder indicator signalled", "box", box, "length", length)
}

func (c *Client) post(ctx context.Context, box int) error {
	body, err := json.Marshal(ledRequest{Box: box, State: "on"})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/api/boxes/%d/led", c.baseURL, box)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach indicator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError{code: resp.StatusCode}
	}
	return nil
}

// Nop ignores every signal. It is used when no indicator URL is configured.
type Nop struct{}

func (Nop) SignalRemainder(context.Context, int) {}

// New returns a Client when baseURL is set and Nop otherwise
func New(baseURL string, m *metrics.Metrics, logger *logging.Logger) domain.RemainderNotifier {
	if baseURL == "" {
		return Nop{}
	}
	return NewClient(Config{BaseURL: baseURL}, m, logger)
}
