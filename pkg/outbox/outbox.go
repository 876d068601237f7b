// Package outbox implements the transactional outbox used by the MongoDB
// backend. Repositories append CloudEvents in the same transaction as the
// aggregate change and the Publisher relays them to Kafka.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tiagodcc/ikts/pkg/cloudevents"
)

// DefaultMaxRetries bounds delivery attempts per event
const DefaultMaxRetries = 10

// OutboxEvent is a serialized CloudEvent awaiting delivery
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewOutboxEventFromCloudEvent wraps event for delivery to topic
func NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic string, event *cloudevents.CloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     event.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

func (e *OutboxEvent) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry reports whether the publisher may still attempt delivery
func (e *OutboxEvent) ShouldRetry() bool {
	return e.PublishedAt == nil && e.RetryCount < e.MaxRetries
}

// ToCloudEvent decodes the stored payload
func (e *OutboxEvent) ToCloudEvent() (*cloudevents.CloudEvent, error) {
	event := &cloudevents.CloudEvent{}
	if err := json.Unmarshal(e.Payload, event); err != nil {
		return nil, err
	}
	return event, nil
}
