package domain

import (
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Work order errors
var (
	ErrWorkOrderNotFound     = errors.New("work order not found")
	ErrPlanHasNoPieces       = errors.New("invalid plan: plan must contain at least one piece")
	ErrUnallocatedPieces     = errors.New("invalid plan: some pieces are longer than every standard stock length")
	ErrWrongPhase            = errors.New("step does not belong to the current phase, out of order")
	ErrStepOutOfOrder        = errors.New("step is not the current step, out of order")
	ErrStepAlreadyConfirmed  = errors.New("step already confirmed")
	ErrWorkOrderClosed       = errors.New("work order is closed")
	ErrGatheringStepNotFound = errors.New("gathering step not found")
	ErrCuttingGroupNotFound  = errors.New("cutting group not found")
)

// WorkOrderStatus is the lifecycle of a work order
type WorkOrderStatus string

const (
	WorkOrderStatusDraft      WorkOrderStatus = "draft"
	WorkOrderStatusInProgress WorkOrderStatus = "in-progress"
	WorkOrderStatusCompleted  WorkOrderStatus = "completed"
	WorkOrderStatusCancelled  WorkOrderStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case WorkOrderStatusDraft, WorkOrderStatusInProgress, WorkOrderStatusCompleted, WorkOrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further mutation is allowed
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderStatusCompleted || s == WorkOrderStatusCancelled
}

// WorkOrderPhase is the position within the execution checklist
type WorkOrderPhase string

const (
	PhaseGathering WorkOrderPhase = "gathering"
	PhaseCutting   WorkOrderPhase = "cutting"
	PhaseReturning WorkOrderPhase = "returning"
	PhaseCompleted WorkOrderPhase = "completed"
)

// IsValid checks if the phase is valid
func (p WorkOrderPhase) IsValid() bool {
	switch p {
	case PhaseGathering, PhaseCutting, PhaseReturning, PhaseCompleted:
		return true
	default:
		return false
	}
}

// Next returns the following phase; completed is its own successor
func (p WorkOrderPhase) Next() WorkOrderPhase {
	switch p {
	case PhaseGathering:
		return PhaseCutting
	case PhaseCutting:
		return PhaseReturning
	default:
		return PhaseCompleted
	}
}

// GatheringStep asks the operator to fetch one physical rail
type GatheringStep struct {
	ID             string     `bson:"id" json:"id"`
	RailType       RailType   `bson:"railType" json:"railType"`
	SourceRailID   string     `bson:"sourceRailId" json:"sourceRailId"`
	Length         int        `bson:"length" json:"length"`
	IsRemainder    bool       `bson:"isRemainder" json:"isRemainder"`
	IsFromNewStock bool       `bson:"isFromNewStock" json:"isFromNewStock"`
	Confirmed      bool       `bson:"confirmed" json:"confirmed"`
	ConfirmedAt    *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	// LiveRailID is the identity a new-stock rail received in the live pool
	LiveRailID string `bson:"liveRailId,omitempty" json:"liveRailId,omitempty"`
	// CutRailID is the pool rail this physical rail's cutting group was matched to
	CutRailID string `bson:"cutRailId,omitempty" json:"cutRailId,omitempty"`
}

// CuttingStep is one cut, in suggestion order
type CuttingStep struct {
	ID              string     `bson:"id" json:"id"`
	SuggestionIndex int        `bson:"suggestionIndex" json:"suggestionIndex"`
	SourceRailID    string     `bson:"sourceRailId" json:"sourceRailId"`
	PieceID         string     `bson:"pieceId" json:"pieceId"`
	RailType        RailType   `bson:"railType" json:"railType"`
	SourceLength    int        `bson:"sourceLength" json:"sourceLength"`
	CutLength       int        `bson:"cutLength" json:"cutLength"`
	RemainderLength int        `bson:"remainderLength" json:"remainderLength"`
	WasteLength     int        `bson:"wasteLength" json:"wasteLength"`
	Purpose         string     `bson:"purpose" json:"purpose"`
	Confirmed       bool       `bson:"confirmed" json:"confirmed"`
	ConfirmedAt     *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
}

// ReturnConfirmation gates the returning phase
type ReturnConfirmation struct {
	Confirmed   bool       `bson:"confirmed" json:"confirmed"`
	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ExecutedCut is the append-only audit record of a confirmed cut
type ExecutedCut struct {
	ID              string    `bson:"id" json:"id"`
	SuggestionIndex int       `bson:"suggestionIndex" json:"suggestionIndex"`
	PieceID         string    `bson:"pieceId" json:"pieceId"`
	SourceRailID    string    `bson:"sourceRailId" json:"sourceRailId"`
	CutLength       int       `bson:"cutLength" json:"cutLength"`
	ExecutedAt      time.Time `bson:"executedAt" json:"executedAt"`
	ExecutedBy      string    `bson:"executedBy,omitempty" json:"executedBy,omitempty"`
}

// CuttingGroup gathers the cutting steps taken from one physical rail.
// Groups are derived from the steps and never stored.
type CuttingGroup struct {
	SourceRailID   string        `json:"sourceRailId"`
	RailType       RailType      `json:"railType"`
	SourceLength   int           `json:"sourceLength"`
	Steps          []CuttingStep `json:"steps"`
	TotalCutLength int           `json:"totalCutLength"`
	Remaining      int           `json:"remaining"`
	IsWaste        bool          `json:"isWaste"`
	Confirmed      bool          `json:"confirmed"`
}

// PhaseProgress counts confirmations within one phase
type PhaseProgress struct {
	Confirmed int `json:"confirmed"`
	Total     int `json:"total"`
}

// WorkOrderProgress summarises all phases
type WorkOrderProgress struct {
	Gathering PhaseProgress `json:"gathering"`
	Cutting   PhaseProgress `json:"cutting"`
	Returning PhaseProgress `json:"returning"`
}

// WorkOrder executes a frozen material plan step by step
type WorkOrder struct {
	ID                   string             `bson:"_id" json:"id"`
	PlanID               string             `bson:"planId" json:"planId"`
	PlanName             string             `bson:"planName" json:"planName"`
	Status               WorkOrderStatus    `bson:"status" json:"status"`
	Phase                WorkOrderPhase     `bson:"phase" json:"phase"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
	StartedAt            *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt          *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	GatheringSteps       []GatheringStep    `bson:"gatheringSteps" json:"gatheringSteps"`
	CuttingSteps         []CuttingStep      `bson:"cuttingSteps" json:"cuttingSteps"`
	ReturnConfirmation   ReturnConfirmation `bson:"returnConfirmation" json:"returnConfirmation"`
	ExecutedCuts         []ExecutedCut      `bson:"executedCuts" json:"executedCuts"`
	Notes                string             `bson:"notes,omitempty" json:"notes,omitempty"`
	MaterialPlanSnapshot MaterialPlan       `bson:"materialPlanSnapshot" json:"materialPlanSnapshot"`
	DomainEvents         []DomainEvent      `bson:"-" json:"-"`
}

// NewWorkOrder materializes the gathering and cutting checklists of a
// material plan snapshot
func NewWorkOrder(snapshot MaterialPlan) (*WorkOrder, error) {
	if snapshot.Plan.TotalPieceCount() == 0 || len(snapshot.Suggestions) == 0 {
		return nil, ErrPlanHasNoPieces
	}
	if snapshot.HasUnallocated() {
		return nil, ErrUnallocatedPieces
	}

	ts := now()
	wo := &WorkOrder{
		ID:                   uuid.New().String(),
		PlanID:               snapshot.Plan.ID,
		PlanName:             snapshot.Plan.Name,
		Status:               WorkOrderStatusDraft,
		Phase:                PhaseGathering,
		CreatedAt:            ts,
		UpdatedAt:            ts,
		GatheringSteps:       buildGatheringSteps(snapshot.Suggestions),
		CuttingSteps:         buildCuttingSteps(snapshot.Suggestions),
		ExecutedCuts:         make([]ExecutedCut, 0),
		MaterialPlanSnapshot: snapshot,
		DomainEvents:         make([]DomainEvent, 0),
	}

	wo.AddDomainEvent(&WorkOrderCreatedEvent{
		WorkOrderID:    wo.ID,
		PlanID:         wo.PlanID,
		GatheringSteps: len(wo.GatheringSteps),
		CuttingSteps:   len(wo.CuttingSteps),
		NewRailsNeeded: snapshot.NewRailsNeeded,
		TotalWaste:     snapshot.TotalWaste,
		CreatedAt:      ts,
	})
	return wo, nil
}

// buildGatheringSteps emits one step per physical rail. The first
// suggestion on a physical rail always uses the bar itself, so its
// source rail describes what the operator has to fetch.
func buildGatheringSteps(suggestions []CutSuggestion) []GatheringStep {
	steps := make([]GatheringStep, 0)
	seen := make(map[string]bool)

	for _, s := range suggestions {
		id := s.PhysicalRailID
		if id == "" {
			id = s.SourceRail.ID
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		steps = append(steps, GatheringStep{
			ID:             uuid.New().String(),
			RailType:       s.SourceRail.Type(),
			SourceRailID:   id,
			Length:         s.SourceRail.Length,
			IsRemainder:    s.SourceRail.IsRemainder,
			IsFromNewStock: s.SourceKind == SourceNewStock,
		})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].IsRemainder != steps[j].IsRemainder {
			return !steps[i].IsRemainder
		}
		return steps[i].RailType.Label() < steps[j].RailType.Label()
	})
	return steps
}

func buildCuttingSteps(suggestions []CutSuggestion) []CuttingStep {
	steps := make([]CuttingStep, 0, len(suggestions))
	for i, s := range suggestions {
		id := s.PhysicalRailID
		if id == "" {
			id = s.SourceRail.ID
		}
		steps = append(steps, CuttingStep{
			ID:              uuid.New().String(),
			SuggestionIndex: i,
			SourceRailID:    id,
			PieceID:         s.Piece.ID,
			RailType:        s.SourceRail.Type(),
			SourceLength:    s.SourceRail.Length,
			CutLength:       s.Piece.Length,
			RemainderLength: s.RemainderLength,
			WasteLength:     s.Waste,
			Purpose:         s.Piece.Purpose,
		})
	}
	return steps
}

// ApplyDefaults fills fields missing from records written by older
// versions: status, phase, step lists derived from the snapshot and the
// audit trail
func (w *WorkOrder) ApplyDefaults() {
	if !w.Status.IsValid() {
		w.Status = WorkOrderStatusDraft
	}
	if !w.Phase.IsValid() {
		if w.Status == WorkOrderStatusCompleted {
			w.Phase = PhaseCompleted
		} else {
			w.Phase = PhaseGathering
		}
	}
	if len(w.GatheringSteps) == 0 {
		w.GatheringSteps = buildGatheringSteps(w.MaterialPlanSnapshot.Suggestions)
	}
	if len(w.CuttingSteps) == 0 {
		w.CuttingSteps = buildCuttingSteps(w.MaterialPlanSnapshot.Suggestions)
	}
	if w.ExecutedCuts == nil {
		w.ExecutedCuts = make([]ExecutedCut, 0)
	}
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = w.CreatedAt
	}
	if w.DomainEvents == nil {
		w.DomainEvents = make([]DomainEvent, 0)
	}
}

// Clone returns a deep copy of the persisted state. Pending domain
// events are not copied.
func (w *WorkOrder) Clone() WorkOrder {
	out := *w
	out.GatheringSteps = slices.Clone(w.GatheringSteps)
	out.CuttingSteps = slices.Clone(w.CuttingSteps)
	out.ExecutedCuts = slices.Clone(w.ExecutedCuts)
	out.MaterialPlanSnapshot.Plan = w.MaterialPlanSnapshot.Plan.Clone()
	out.MaterialPlanSnapshot.Suggestions = slices.Clone(w.MaterialPlanSnapshot.Suggestions)
	out.MaterialPlanSnapshot.Unallocated = slices.Clone(w.MaterialPlanSnapshot.Unallocated)
	out.DomainEvents = nil
	return out
}

// IsClosed reports whether the work order is completed or cancelled
func (w *WorkOrder) IsClosed() bool {
	return w.Status.IsTerminal()
}

// CurrentGatheringStep returns the first unconfirmed gathering step
func (w *WorkOrder) CurrentGatheringStep() *GatheringStep {
	for i := range w.GatheringSteps {
		if !w.GatheringSteps[i].Confirmed {
			return &w.GatheringSteps[i]
		}
	}
	return nil
}

// GatheringStepByRail finds the gathering step for a physical rail
func (w *WorkOrder) GatheringStepByRail(sourceRailID string) *GatheringStep {
	for i := range w.GatheringSteps {
		if w.GatheringSteps[i].SourceRailID == sourceRailID {
			return &w.GatheringSteps[i]
		}
	}
	return nil
}

// ConfirmGatheringStep marks the current gathering step as fetched.
// liveRailID records the pool identity of a new-stock rail and may be empty.
func (w *WorkOrder) ConfirmGatheringStep(stepID, liveRailID string) error {
	if w.IsClosed() {
		return ErrWorkOrderClosed
	}

	var step *GatheringStep
	for i := range w.GatheringSteps {
		if w.GatheringSteps[i].ID == stepID {
			step = &w.GatheringSteps[i]
			break
		}
	}
	if step == nil {
		return ErrGatheringStepNotFound
	}
	if w.Phase != PhaseGathering {
		return ErrWrongPhase
	}
	if step.Confirmed {
		return ErrStepAlreadyConfirmed
	}
	if current := w.CurrentGatheringStep(); current == nil || current.ID != stepID {
		return ErrStepOutOfOrder
	}

	ts := now()
	step.Confirmed = true
	step.ConfirmedAt = &ts
	if liveRailID != "" {
		step.LiveRailID = liveRailID
	}
	w.markStarted(ts)

	w.AddDomainEvent(&GatheringStepConfirmedEvent{
		WorkOrderID:  w.ID,
		StepID:       step.ID,
		SourceRailID: step.SourceRailID,
		LiveRailID:   step.LiveRailID,
		ConfirmedAt:  ts,
	})
	return nil
}

// CuttingGroups groups the cutting steps by physical rail, in order of
// first appearance. Remaining length is classified against minUsable.
func (w *WorkOrder) CuttingGroups(minUsable int) []CuttingGroup {
	groups := make([]CuttingGroup, 0)
	index := make(map[string]int)

	for _, step := range w.CuttingSteps {
		i, ok := index[step.SourceRailID]
		if !ok {
			i = len(groups)
			index[step.SourceRailID] = i
			groups = append(groups, CuttingGroup{
				SourceRailID: step.SourceRailID,
				RailType:     step.RailType,
				SourceLength: step.SourceLength,
				Confirmed:    true,
			})
		}
		g := &groups[i]
		g.Steps = append(g.Steps, step)
		g.TotalCutLength += step.CutLength
		g.Confirmed = g.Confirmed && step.Confirmed
	}

	for i := range groups {
		g := &groups[i]
		g.Remaining = g.SourceLength - g.TotalCutLength
		g.IsWaste = g.Remaining > 0 && g.Remaining < minUsable
	}
	return groups
}

// CurrentCuttingGroup returns the first group with an unconfirmed step
func (w *WorkOrder) CurrentCuttingGroup(minUsable int) *CuttingGroup {
	for _, g := range w.CuttingGroups(minUsable) {
		if !g.Confirmed {
			return &g
		}
	}
	return nil
}

// CheckCuttingGroup returns the group cut from sourceRailID when it is the
// next one to confirm. The work order is not modified.
func (w *WorkOrder) CheckCuttingGroup(sourceRailID string, minUsable int) (CuttingGroup, error) {
	if w.IsClosed() {
		return CuttingGroup{}, ErrWorkOrderClosed
	}

	var group *CuttingGroup
	for _, g := range w.CuttingGroups(minUsable) {
		if g.SourceRailID == sourceRailID {
			group = &g
			break
		}
	}
	if group == nil {
		return CuttingGroup{}, ErrCuttingGroupNotFound
	}
	if w.Phase != PhaseCutting {
		return CuttingGroup{}, ErrWrongPhase
	}
	if group.Confirmed {
		return CuttingGroup{}, ErrStepAlreadyConfirmed
	}
	if current := w.CurrentCuttingGroup(minUsable); current == nil || current.SourceRailID != sourceRailID {
		return CuttingGroup{}, ErrStepOutOfOrder
	}
	return *group, nil
}

// RecordCutRail remembers which pool rail the group of sourceRailID is
// cut from. It reports false when the physical rail has no gathering step.
func (w *WorkOrder) RecordCutRail(sourceRailID, railID string) bool {
	step := w.GatheringStepByRail(sourceRailID)
	if step == nil {
		return false
	}
	step.CutRailID = railID
	return true
}

// DerivedRailID is the pool identity of a rail this work order adds for
// key. The same work order and key always give the same identity.
func (w *WorkOrder) DerivedRailID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(w.ID+"/"+key)).String()
}

// ConfirmCuttingGroup confirms every cut taken from one physical rail and
// appends one executed cut per step. The returned group carries the
// remaining length the inventory has to absorb.
func (w *WorkOrder) ConfirmCuttingGroup(sourceRailID string, minUsable int, executedBy string) (CuttingGroup, error) {
	group, err := w.CheckCuttingGroup(sourceRailID, minUsable)
	if err != nil {
		return CuttingGroup{}, err
	}

	ts := now()
	for i := range w.CuttingSteps {
		step := &w.CuttingSteps[i]
		if step.SourceRailID != sourceRailID || step.Confirmed {
			continue
		}
		step.Confirmed = true
		step.ConfirmedAt = &ts
		w.ExecutedCuts = append(w.ExecutedCuts, ExecutedCut{
			ID:              uuid.New().String(),
			SuggestionIndex: step.SuggestionIndex,
			PieceID:         step.PieceID,
			SourceRailID:    step.SourceRailID,
			CutLength:       step.CutLength,
			ExecutedAt:      ts,
			ExecutedBy:      executedBy,
		})
	}
	w.markStarted(ts)

	confirmed := group
	confirmed.Confirmed = true
	for i := range confirmed.Steps {
		confirmed.Steps[i].Confirmed = true
		confirmed.Steps[i].ConfirmedAt = &ts
	}

	w.AddDomainEvent(&CuttingGroupConfirmedEvent{
		WorkOrderID:    w.ID,
		SourceRailID:   sourceRailID,
		Cuts:           len(confirmed.Steps),
		TotalCutLength: confirmed.TotalCutLength,
		Remaining:      confirmed.Remaining,
		IsWaste:        confirmed.IsWaste,
		ConfirmedAt:    ts,
	})
	return confirmed, nil
}

// ConfirmReturn records that offcuts and tools have been put away
func (w *WorkOrder) ConfirmReturn(notes string) error {
	if w.IsClosed() {
		return ErrWorkOrderClosed
	}
	if w.Phase != PhaseReturning {
		return ErrWrongPhase
	}
	if w.ReturnConfirmation.Confirmed {
		return ErrStepAlreadyConfirmed
	}

	ts := now()
	w.ReturnConfirmation = ReturnConfirmation{
		Confirmed:   true,
		ConfirmedAt: &ts,
		Notes:       notes,
	}
	w.markStarted(ts)

	w.AddDomainEvent(&ReturnConfirmedEvent{
		WorkOrderID: w.ID,
		Notes:       notes,
		ConfirmedAt: ts,
	})
	return nil
}

// CanAdvancePhase reports whether every step of the current phase is confirmed
func (w *WorkOrder) CanAdvancePhase() bool {
	if w.IsClosed() {
		return false
	}
	switch w.Phase {
	case PhaseGathering:
		return allGatheringConfirmed(w.GatheringSteps)
	case PhaseCutting:
		return allCuttingConfirmed(w.CuttingSteps)
	case PhaseReturning:
		return w.ReturnConfirmation.Confirmed
	default:
		return false
	}
}

// AdvancePhase moves to the next phase when the current one is complete.
// It returns false and changes nothing otherwise. Leaving returning
// completes the work order.
func (w *WorkOrder) AdvancePhase() bool {
	if !w.CanAdvancePhase() {
		return false
	}

	ts := now()
	from := w.Phase
	w.Phase = from.Next()
	w.UpdatedAt = ts

	w.AddDomainEvent(&WorkOrderPhaseAdvancedEvent{
		WorkOrderID: w.ID,
		From:        from,
		To:          w.Phase,
		AdvancedAt:  ts,
	})

	if w.Phase == PhaseCompleted {
		w.Status = WorkOrderStatusCompleted
		w.CompletedAt = &ts
		w.AddDomainEvent(&WorkOrderCompletedEvent{
			WorkOrderID: w.ID,
			PlanID:      w.PlanID,
			CompletedAt: ts,
		})
	}
	return true
}

// Cancel ends a draft or in-progress work order. The phase is kept and
// inventory changes already applied stay in place.
func (w *WorkOrder) Cancel() error {
	if w.IsClosed() {
		return ErrWorkOrderClosed
	}

	ts := now()
	w.Status = WorkOrderStatusCancelled
	w.CompletedAt = &ts
	w.UpdatedAt = ts

	w.AddDomainEvent(&WorkOrderCancelledEvent{
		WorkOrderID: w.ID,
		Phase:       w.Phase,
		CancelledAt: ts,
	})
	return nil
}

// Progress counts confirmations per phase
func (w *WorkOrder) Progress() WorkOrderProgress {
	p := WorkOrderProgress{
		Gathering: PhaseProgress{Total: len(w.GatheringSteps)},
		Cutting:   PhaseProgress{Total: len(w.CuttingSteps)},
		Returning: PhaseProgress{Total: 1},
	}
	for _, s := range w.GatheringSteps {
		if s.Confirmed {
			p.Gathering.Confirmed++
		}
	}
	for _, s := range w.CuttingSteps {
		if s.Confirmed {
			p.Cutting.Confirmed++
		}
	}
	if w.ReturnConfirmation.Confirmed {
		p.Returning.Confirmed = 1
	}
	return p
}

func (w *WorkOrder) markStarted(ts time.Time) {
	w.UpdatedAt = ts
	if w.Status != WorkOrderStatusDraft {
		return
	}
	w.Status = WorkOrderStatusInProgress
	w.StartedAt = &ts
	w.AddDomainEvent(&WorkOrderStartedEvent{
		WorkOrderID: w.ID,
		StartedAt:   ts,
	})
}

func allGatheringConfirmed(steps []GatheringStep) bool {
	for _, s := range steps {
		if !s.Confirmed {
			return false
		}
	}
	return true
}

func allCuttingConfirmed(steps []CuttingStep) bool {
	for _, s := range steps {
		if !s.Confirmed {
			return false
		}
	}
	return true
}

// AddDomainEvent adds a domain event
func (w *WorkOrder) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (w *WorkOrder) ClearDomainEvents() {
	w.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (w *WorkOrder) GetDomainEvents() []DomainEvent {
	return w.DomainEvents
}
