package cloudevents

import (
	"time"
)

// Event types emitted by the cutplan service
const (
	// Inventory events
	RailAdded        = "cutplan.inventory.rail-added"
	RailCut          = "cutplan.inventory.rail-cut"
	RailRemoved      = "cutplan.inventory.rail-removed"
	RemainderCreated = "cutplan.inventory.remainder-created"

	// Work order events
	WorkOrderCreated       = "cutplan.workorder.created"
	WorkOrderStarted       = "cutplan.workorder.started"
	GatheringStepConfirmed = "cutplan.workorder.gathering-step-confirmed"
	CuttingGroupConfirmed  = "cutplan.workorder.cutting-group-confirmed"
	ReturnConfirmed        = "cutplan.workorder.return-confirmed"
	WorkOrderPhaseAdvanced = "cutplan.workorder.phase-advanced"
	WorkOrderCompleted     = "cutplan.workorder.completed"
	WorkOrderCancelled     = "cutplan.workorder.cancelled"
)

// Event sources
const (
	SourceInventory  = "/cutplan/inventory"
	SourceWorkOrders = "/cutplan/work-orders"
)

// CloudEvent is a CloudEvents v1.0 envelope with the cutplan extensions
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	CorrelationID   string                 `json:"correlationid,omitempty"`
	PlanID          string                 `json:"planid,omitempty"`
	WorkOrderID     string                 `json:"workorderid,omitempty"`
	TraceParent     string                 `json:"traceparent,omitempty"`
	Extensions      map[string]interface{} `json:"-"`
}
