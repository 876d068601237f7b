package application

import "github.com/tiagodcc/ikts/internal/domain"

// AddRailCommand represents the command to bring a full-length rail into the pool
type AddRailCommand struct {
	Length    int
	Width     int
	Thickness int
	Notes     string
}

// AddRemainderCommand represents the command to store an offcut as a remainder
type AddRemainderCommand struct {
	// RailID pins the remainder's identity. A rail already stored under it
	// is returned unchanged.
	RailID         string
	Length         int
	RailType       domain.RailType
	OriginalRailID string
	Notes          string
}

// CutRailCommand represents the command to cut a length off a live rail
type CutRailCommand struct {
	RailID    string
	CutLength int
	Purpose   string
}

// RemoveRailCommand represents the command to take a rail out of the pool
type RemoveRailCommand struct {
	RailID string
	Reason string
}

// ListRailsQuery filters the live pool by cross-section. Zero values match all.
type ListRailsQuery struct {
	Width     int
	Thickness int
}

// CreatePlanCommand represents the command to create a plan
type CreatePlanCommand struct {
	Name        string
	Description string
}

// UpdatePlanCommand represents the command to rename or describe a plan
type UpdatePlanCommand struct {
	PlanID      string
	Name        string
	Description string
}

// PieceCommand represents the command to add or update a required piece
type PieceCommand struct {
	PlanID    string
	PieceID   string
	Length    int
	Quantity  int
	Purpose   string
	Width     int
	Thickness int
}

// CreateWorkOrderCommand represents the command to materialize a work order from a plan
type CreateWorkOrderCommand struct {
	PlanID string
	Notes  string
}

// ConfirmGatheringStepCommand represents the command to confirm a fetched rail
type ConfirmGatheringStepCommand struct {
	WorkOrderID string
	StepID      string
}

// ConfirmCuttingGroupCommand represents the command to confirm all cuts from one rail
type ConfirmCuttingGroupCommand struct {
	WorkOrderID  string
	SourceRailID string
	ExecutedBy   string
}

// ConfirmReturnCommand represents the command to confirm offcuts were put away
type ConfirmReturnCommand struct {
	WorkOrderID string
	Notes       string
}
