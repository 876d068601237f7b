package domain

import "time"

// DomainEvent interface for domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event type names, shared with the CloudEvents envelope
const (
	EventRailAdded        = "cutplan.inventory.rail-added"
	EventRailCut          = "cutplan.inventory.rail-cut"
	EventRailRemoved      = "cutplan.inventory.rail-removed"
	EventRemainderCreated = "cutplan.inventory.remainder-created"

	EventWorkOrderCreated       = "cutplan.workorder.created"
	EventWorkOrderStarted       = "cutplan.workorder.started"
	EventGatheringStepConfirmed = "cutplan.workorder.gathering-step-confirmed"
	EventCuttingGroupConfirmed  = "cutplan.workorder.cutting-group-confirmed"
	EventReturnConfirmed        = "cutplan.workorder.return-confirmed"
	EventWorkOrderPhaseAdvanced = "cutplan.workorder.phase-advanced"
	EventWorkOrderCompleted     = "cutplan.workorder.completed"
	EventWorkOrderCancelled     = "cutplan.workorder.cancelled"
)

// Inventory events

// RailAddedEvent is emitted when a rail enters the live pool
type RailAddedEvent struct {
	RailID      string    `json:"railId"`
	Length      int       `json:"length"`
	RailType    RailType  `json:"railType"`
	IsRemainder bool      `json:"isRemainder"`
	AddedAt     time.Time `json:"addedAt"`
}

func (e *RailAddedEvent) EventType() string { return EventRailAdded }
func (e *RailAddedEvent) OccurredAt() time.Time { return e.AddedAt }

// RailCutEvent is emitted when a live rail is cut
type RailCutEvent struct {
	RailID      string    `json:"railId"`
	CutLength   int       `json:"cutLength"`
	Purpose     string    `json:"purpose,omitempty"`
	Leftover    int       `json:"leftover"`
	RemainderID string    `json:"remainderId,omitempty"`
	CutAt       time.Time `json:"cutAt"`
}

func (e *RailCutEvent) EventType() string { return EventRailCut }
func (e *RailCutEvent) OccurredAt() time.Time { return e.CutAt }

// RailRemovedEvent is emitted when a rail leaves the live pool
type RailRemovedEvent struct {
	RailID    string    `json:"railId"`
	Length    int       `json:"length"`
	Reason    string    `json:"reason,omitempty"`
	RemovedAt time.Time `json:"removedAt"`
}

func (e *RailRemovedEvent) EventType() string { return EventRailRemoved }
func (e *RailRemovedEvent) OccurredAt() time.Time { return e.RemovedAt }

// RemainderCreatedEvent is emitted when an offcut is stored as a remainder
type RemainderCreatedEvent struct {
	RailID         string    `json:"railId"`
	OriginalRailID string    `json:"originalRailId,omitempty"`
	Length         int       `json:"length"`
	RailType       RailType  `json:"railType"`
	Box            *int      `json:"box,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e *RemainderCreatedEvent) EventType() string { return EventRemainderCreated }
func (e *RemainderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// Work order events

// WorkOrderCreatedEvent is emitted when a work order is materialized
type WorkOrderCreatedEvent struct {
	WorkOrderID    string    `json:"workOrderId"`
	PlanID         string    `json:"planId"`
	GatheringSteps int       `json:"gatheringSteps"`
	CuttingSteps   int       `json:"cuttingSteps"`
	NewRailsNeeded int       `json:"newRailsNeeded"`
	TotalWaste     int       `json:"totalWaste"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e *WorkOrderCreatedEvent) EventType() string { return EventWorkOrderCreated }
func (e *WorkOrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// WorkOrderStartedEvent is emitted on the first confirmation
type WorkOrderStartedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	StartedAt   time.Time `json:"startedAt"`
}

func (e *WorkOrderStartedEvent) EventType() string { return EventWorkOrderStarted }
func (e *WorkOrderStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// GatheringStepConfirmedEvent is emitted when the operator has fetched a rail
type GatheringStepConfirmedEvent struct {
	WorkOrderID  string    `json:"workOrderId"`
	StepID       string    `json:"stepId"`
	SourceRailID string    `json:"sourceRailId"`
	LiveRailID   string    `json:"liveRailId,omitempty"`
	ConfirmedAt  time.Time `json:"confirmedAt"`
}

func (e *GatheringStepConfirmedEvent) EventType() string { return EventGatheringStepConfirmed }
func (e *GatheringStepConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// CuttingGroupConfirmedEvent is emitted when all cuts from one rail are done
type CuttingGroupConfirmedEvent struct {
	WorkOrderID    string    `json:"workOrderId"`
	SourceRailID   string    `json:"sourceRailId"`
	Cuts           int       `json:"cuts"`
	TotalCutLength int       `json:"totalCutLength"`
	Remaining      int       `json:"remaining"`
	IsWaste        bool      `json:"isWaste"`
	ConfirmedAt    time.Time `json:"confirmedAt"`
}

func (e *CuttingGroupConfirmedEvent) EventType() string { return EventCuttingGroupConfirmed }
func (e *CuttingGroupConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// ReturnConfirmedEvent is emitted when offcuts have been put away
type ReturnConfirmedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	Notes       string    `json:"notes,omitempty"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

func (e *ReturnConfirmedEvent) EventType() string { return EventReturnConfirmed }
func (e *ReturnConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// WorkOrderPhaseAdvancedEvent is emitted on every phase transition
type WorkOrderPhaseAdvancedEvent struct {
	WorkOrderID string         `json:"workOrderId"`
	From        WorkOrderPhase `json:"from"`
	To          WorkOrderPhase `json:"to"`
	AdvancedAt  time.Time      `json:"advancedAt"`
}

func (e *WorkOrderPhaseAdvancedEvent) EventType() string { return EventWorkOrderPhaseAdvanced }
func (e *WorkOrderPhaseAdvancedEvent) OccurredAt() time.Time { return e.AdvancedAt }

// WorkOrderCompletedEvent is emitted when the returning phase is left
type WorkOrderCompletedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	PlanID      string    `json:"planId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *WorkOrderCompletedEvent) EventType() string { return EventWorkOrderCompleted }
func (e *WorkOrderCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// WorkOrderCancelledEvent is emitted on cancellation
type WorkOrderCancelledEvent struct {
	WorkOrderID string         `json:"workOrderId"`
	Phase       WorkOrderPhase `json:"phase"`
	CancelledAt time.Time      `json:"cancelledAt"`
}

func (e *WorkOrderCancelledEvent) EventType() string { return EventWorkOrderCancelled }
func (e *WorkOrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
