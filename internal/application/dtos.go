package application

import (
	"time"

	"github.com/tiagodcc/ikts/internal/domain"
)

// RailTypeDTO represents a rail cross-section
type RailTypeDTO struct {
	Width     int    `json:"width"`
	Thickness int    `json:"thickness"`
	Label     string `json:"label"`
}

// RailDTO represents a rail in the live pool
type RailDTO struct {
	ID             string      `json:"id"`
	Length         int         `json:"length"`
	RailType       RailTypeDTO `json:"railType"`
	IsRemainder    bool        `json:"isRemainder"`
	OriginalRailID string      `json:"originalRailId,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	Box            *int        `json:"box,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// CutResultDTO is the outcome of cutting a live rail. Remainder is nil
// when the rail was fully consumed.
type CutResultDTO struct {
	RailID    string   `json:"railId"`
	CutLength int      `json:"cutLength"`
	Leftover  int      `json:"leftover"`
	Consumed  bool     `json:"consumed"`
	Remainder *RailDTO `json:"remainder,omitempty"`
}

// InventorySummaryDTO counts the live pool
type InventorySummaryDTO struct {
	Rails       []RailDTO `json:"rails"`
	FullLength  int       `json:"fullLength"`
	Remainders  int       `json:"remainders"`
	TotalLength int       `json:"totalLength"`
}

// PieceDTO represents a required piece of a plan
type PieceDTO struct {
	ID       string      `json:"id"`
	Length   int         `json:"length"`
	Quantity int         `json:"quantity"`
	Purpose  string      `json:"purpose"`
	RailType RailTypeDTO `json:"railType"`
}

// PlanDTO represents a plan in responses
type PlanDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Pieces      []PieceDTO `json:"pieces"`
	TotalPieces int        `json:"totalPieces"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SuggestionDTO represents one cut suggestion of a material plan
type SuggestionDTO struct {
	SourceRail      RailDTO           `json:"sourceRail"`
	PhysicalRailID  string            `json:"physicalRailId"`
	Piece           PieceDTO          `json:"piece"`
	RemainderLength int               `json:"remainderLength"`
	Waste           int               `json:"waste"`
	IsOptimal       bool              `json:"isOptimal"`
	SourceKind      domain.SourceKind `json:"sourceKind"`
}

// UnallocatedPieceDTO represents a piece longer than every stock length
type UnallocatedPieceDTO struct {
	Piece                 PieceDTO `json:"piece"`
	LargestStandardLength int      `json:"largestStandardLength"`
}

// MaterialPlanDTO represents the result of an allocation run
type MaterialPlanDTO struct {
	PlanID         string                `json:"planId"`
	PlanName       string                `json:"planName"`
	Suggestions    []SuggestionDTO       `json:"suggestions"`
	TotalWaste     int                   `json:"totalWaste"`
	UsedRemainders int                   `json:"usedRemainders"`
	NewRailsNeeded int                   `json:"newRailsNeeded"`
	Unallocated    []UnallocatedPieceDTO `json:"unallocated"`
	GeneratedAt    time.Time             `json:"generatedAt"`
}

// GatheringStepDTO represents a rail to fetch
type GatheringStepDTO struct {
	ID             string      `json:"id"`
	SourceRailID   string      `json:"sourceRailId"`
	RailType       RailTypeDTO `json:"railType"`
	Length         int         `json:"length"`
	IsRemainder    bool        `json:"isRemainder"`
	IsFromNewStock bool        `json:"isFromNewStock"`
	Confirmed      bool        `json:"confirmed"`
	ConfirmedAt    *time.Time  `json:"confirmedAt,omitempty"`
	LiveRailID     string      `json:"liveRailId,omitempty"`
}

// CuttingStepDTO represents a single cut
type CuttingStepDTO struct {
	ID              string     `json:"id"`
	SuggestionIndex int        `json:"suggestionIndex"`
	SourceRailID    string     `json:"sourceRailId"`
	PieceID         string     `json:"pieceId"`
	CutLength       int        `json:"cutLength"`
	RemainderLength int        `json:"remainderLength"`
	WasteLength     int        `json:"wasteLength"`
	Purpose         string     `json:"purpose"`
	Confirmed       bool       `json:"confirmed"`
	ConfirmedAt     *time.Time `json:"confirmedAt,omitempty"`
}

// CuttingGroupDTO represents the cuts taken from one physical rail
type CuttingGroupDTO struct {
	SourceRailID   string           `json:"sourceRailId"`
	RailType       RailTypeDTO      `json:"railType"`
	SourceLength   int              `json:"sourceLength"`
	TotalCutLength int              `json:"totalCutLength"`
	Remaining      int              `json:"remaining"`
	IsWaste        bool             `json:"isWaste"`
	Confirmed      bool             `json:"confirmed"`
	Steps          []CuttingStepDTO `json:"steps"`
}

// ExecutedCutDTO represents an audit record of a confirmed cut
type ExecutedCutDTO struct {
	ID              string    `json:"id"`
	SuggestionIndex int       `json:"suggestionIndex"`
	PieceID         string    `json:"pieceId"`
	SourceRailID    string    `json:"sourceRailId"`
	CutLength       int       `json:"cutLength"`
	ExecutedAt      time.Time `json:"executedAt"`
	ExecutedBy      string    `json:"executedBy,omitempty"`
}

// ReturnConfirmationDTO represents the returning phase gate
type ReturnConfirmationDTO struct {
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// WorkOrderDTO represents a work order in responses
type WorkOrderDTO struct {
	ID                 string                   `json:"id"`
	PlanID             string                   `json:"planId"`
	PlanName           string                   `json:"planName"`
	Status             string                   `json:"status"`
	Phase              string                   `json:"phase"`
	CanAdvance         bool                     `json:"canAdvance"`
	Progress           domain.WorkOrderProgress `json:"progress"`
	GatheringSteps     []GatheringStepDTO       `json:"gatheringSteps"`
	CuttingGroups      []CuttingGroupDTO        `json:"cuttingGroups"`
	ReturnConfirmation ReturnConfirmationDTO    `json:"returnConfirmation"`
	ExecutedCuts       []ExecutedCutDTO         `json:"executedCuts"`
	MaterialPlan       MaterialPlanDTO          `json:"materialPlan"`
	Notes              string                   `json:"notes,omitempty"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
	StartedAt          *time.Time               `json:"startedAt,omitempty"`
	CompletedAt        *time.Time               `json:"completedAt,omitempty"`
}

// ImportResultDTO summarises an import
type ImportResultDTO struct {
	Kind     string    `json:"kind"`
	Imported int       `json:"imported"`
	Plan     *PlanDTO  `json:"plan,omitempty"`
	Rails    []RailDTO `json:"rails,omitempty"`
}
