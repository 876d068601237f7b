package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/tiagodcc/ikts/pkg/logging"
)

// EventFactory creates CloudEvents for one event source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// Source returns the configured event source
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent creates a new CloudEvent, carrying the correlation and trace
// identifiers found in ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *CloudEvent {
	event := &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	if ctx == nil {
		return event
	}
	if correlationID, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = correlationID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		event.TraceParent = "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-" + sc.TraceFlags().String()
	}

	return event
}

// CreateWorkOrderEvent creates an event about a work order
func (f *EventFactory) CreateWorkOrderEvent(ctx context.Context, eventType, workOrderID, planID string, data interface{}) *CloudEvent {
	event := f.CreateEvent(ctx, eventType, "work-order/"+workOrderID, data)
	event.WorkOrderID = workOrderID
	event.PlanID = planID
	return event
}

// CreateRailEvent creates an event about a rail in the live pool
func (f *EventFactory) CreateRailEvent(ctx context.Context, eventType, railID string, data interface{}) *CloudEvent {
	return f.CreateEvent(ctx, eventType, "rail/"+railID, data)
}
