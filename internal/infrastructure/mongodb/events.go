package mongodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/cloudevents"
	"github.com/tiagodcc/ikts/pkg/kafka"
	"github.com/tiagodcc/ikts/pkg/outbox"
)

// Aggregate types recorded on outbox events
const (
	aggregateRail      = "Rail"
	aggregateWorkOrder = "WorkOrder"
)

// topicFor routes inventory events and work order events to their topics
func topicFor(eventType string) string {
	if strings.HasPrefix(eventType, "cutplan.inventory.") {
		return kafka.Topics.InventoryEvents
	}
	return kafka.Topics.WorkOrderEvents
}

// railSubject returns the rail an inventory event is about
func railSubject(event domain.DomainEvent, fallback string) string {
	switch e := event.(type) {
	case *domain.RailAddedEvent:
		return e.RailID
	case *domain.RailCutEvent:
		return e.RailID
	case *domain.RailRemovedEvent:
		return e.RailID
	case *domain.RemainderCreatedEvent:
		return e.RailID
	default:
		return fallback
	}
}

func railOutboxEvents(ctx context.Context, factory *cloudevents.EventFactory, railID string, events []domain.DomainEvent) ([]*outbox.OutboxEvent, error) {
	out := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		subject := railSubject(event, railID)
		ce := factory.CreateRailEvent(ctx, event.EventType(), subject, event)

		oe, err := outbox.NewOutboxEventFromCloudEvent(subject, aggregateRail, topicFor(event.EventType()), ce)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		out = append(out, oe)
	}
	return out, nil
}

func workOrderOutboxEvents(ctx context.Context, factory *cloudevents.EventFactory, wo *domain.WorkOrder) ([]*outbox.OutboxEvent, error) {
	events := wo.GetDomainEvents()
	out := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		ce := factory.CreateWorkOrderEvent(ctx, event.EventType(), wo.ID, wo.PlanID, event)

		oe, err := outbox.NewOutboxEventFromCloudEvent(wo.ID, aggregateWorkOrder, topicFor(event.EventType()), ce)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		out = append(out, oe)
	}
	return out, nil
}
