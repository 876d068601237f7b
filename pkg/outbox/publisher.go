package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tiagodcc/ikts/pkg/kafka"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
)

var (
	errAlreadyRunning = errors.New("outbox publisher already running")
	errNotRunning     = errors.New("outbox publisher not running")
)

// PublisherConfig tunes the relay loop
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPublisherConfig polls every second in batches of 100
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{PollInterval: time.Second, BatchSize: 100}
}

// Stats counts relay outcomes since the publisher was created
type Stats struct {
	Published int
	Failed    int
}

// Publisher relays pending outbox events to Kafka on a fixed interval
type Publisher struct {
	repo     Repository
	producer kafka.EventPublisher
	logger   *logging.Logger
	metrics  *metrics.Metrics
	config   PublisherConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	stats  Stats
}

// NewPublisher creates a publisher. A nil config uses DefaultPublisherConfig.
func NewPublisher(repo Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		metrics:  m,
		config:   *config,
	}
}

// Start launches the relay loop. It stops when ctx ends or Stop is called.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info("Starting outbox publisher", "interval", p.config.PollInterval, "batchSize", p.config.BatchSize)
	go p.loop(loopCtx, p.done)
	return nil
}

// Stop ends the relay loop and waits for the in-flight batch
func (p *Publisher) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return errNotRunning
	}
	cancel()
	<-done

	stats := p.Stats()
	p.logger.Info("Outbox publisher stopped", "published", stats.Published, "failed", stats.Failed)
	return nil
}

// IsRunning reports whether the relay loop is active
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stats returns a copy of the relay counters
func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Publisher) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce relays one batch of pending events
func (p *Publisher) ProcessOnce(ctx context.Context) {
	events, err := p.repo.Pending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to load pending outbox events")
		return
	}
	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(events))
	}

	for _, event := range events {
		if err := p.relay(ctx, event); err != nil {
			p.fail(ctx, event, err)
			continue
		}
		p.count(func(s *Stats) { s.Published++ })
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark outbox event published", "eventId", event.ID)
		}
	}
}

func (p *Publisher) relay(ctx context.Context, event *OutboxEvent) error {
	ce, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("decode outbox payload: %w", err)
	}
	if err := p.producer.PublishEvent(ctx, event.Topic, ce); err != nil {
		return fmt.Errorf("publish to %s: %w", event.Topic, err)
	}
	p.logger.Debug("Relayed outbox event", "eventId", event.ID, "eventType", event.EventType, "topic", event.Topic)
	return nil
}

func (p *Publisher) fail(ctx context.Context, event *OutboxEvent, cause error) {
	p.logger.WithError(cause).Error("Failed to relay outbox event",
		"eventId", event.ID,
		"eventType", event.EventType,
		"aggregateId", event.AggregateID,
		"attempt", event.RetryCount+1,
	)
	p.count(func(s *Stats) { s.Failed++ })

	if err := p.repo.RecordFailure(ctx, event.ID, cause.Error()); err != nil {
		p.logger.WithError(err).Error("Failed to record outbox failure", "eventId", event.ID)
	}
	if p.metrics != nil {
		p.metrics.RecordOutboxRetry(event.EventType)
	}
}

func (p *Publisher) count(update func(*Stats)) {
	p.mu.Lock()
	update(&p.stats)
	p.mu.Unlock()
}
