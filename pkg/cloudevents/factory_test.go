package cloudevents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tiagodcc/ikts/pkg/logging"
)

func TestCreateEvent(t *testing.T) {
	factory := NewEventFactory(SourceInventory)
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")

	event := factory.CreateEvent(ctx, RailCut, "rail/r1", map[string]int{"cutLength": 700})

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, RailCut, event.Type)
	assert.Equal(t, SourceInventory, event.Source)
	assert.Equal(t, "rail/r1", event.Subject)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Empty(t, event.TraceParent)
	assert.False(t, event.Time.IsZero())
}

func TestCreateWorkOrderEvent(t *testing.T) {
	factory := NewEventFactory(SourceWorkOrders)

	event := factory.CreateWorkOrderEvent(context.Background(), WorkOrderCompleted, "wo-1", "plan-1", nil)

	assert.Equal(t, "work-order/wo-1", event.Subject)
	assert.Equal(t, "wo-1", event.WorkOrderID)
	assert.Equal(t, "plan-1", event.PlanID)
}

func TestCreateEvent_UniqueIDs(t *testing.T) {
	factory := NewEventFactory(SourceInventory)
	a := factory.CreateRailEvent(context.Background(), RailAdded, "r1", nil)
	b := factory.CreateRailEvent(context.Background(), RailAdded, "r1", nil)
	assert.NotEqual(t, a.ID, b.ID)
}
