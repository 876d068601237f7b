package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
)

// WorkOrderApplicationService drives work orders through their phases and
// applies confirmed cuts to the live pool. Mutating calls are serialized.
type WorkOrderApplicationService struct {
	mu        sync.Mutex
	repo      domain.WorkOrderRepository
	plans     *PlanApplicationService
	inventory *InventoryApplicationService
	settings  domain.PlannerSettings
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewWorkOrderApplicationService creates a new WorkOrderApplicationService
func NewWorkOrderApplicationService(
	repo domain.WorkOrderRepository,
	plans *PlanApplicationService,
	inventory *InventoryApplicationService,
	settings domain.PlannerSettings,
	m *metrics.Metrics,
	logger *logging.Logger,
) *WorkOrderApplicationService {
	return &WorkOrderApplicationService{
		repo:      repo,
		plans:     plans,
		inventory: inventory,
		settings:  settings.Normalized(),
		metrics:   m,
		logger:    logger,
	}
}

// CreateWorkOrder freezes a material plan for the plan and materializes
// its checklists
func (s *WorkOrderApplicationService) CreateWorkOrder(ctx context.Context, cmd CreateWorkOrderCommand) (*WorkOrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plans.findPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.plans.allocate(ctx, *plan, allocationWorkOrder)
	if err != nil {
		return nil, err
	}

	wo, err := domain.NewWorkOrder(snapshot)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	wo.Notes = cmd.Notes

	if err := s.save(ctx, wo); err != nil {
		return nil, err
	}

	s.recordTransition("created")
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "workorder.created",
		EntityType: "workOrder",
		EntityID:   wo.ID,
		Action:     "created",
		RelatedIDs: map[string]string{"planId": wo.PlanID},
		Data: map[string]any{
			"gatheringSteps": len(wo.GatheringSteps),
			"cuttingSteps":   len(wo.CuttingSteps),
			"newRailsNeeded": snapshot.NewRailsNeeded,
			"totalWaste":     snapshot.TotalWaste,
		},
	})
	return s.toDTO(wo), nil
}

// GetWorkOrder retrieves a work order by ID
func (s *WorkOrderApplicationService) GetWorkOrder(ctx context.Context, workOrderID string) (*WorkOrderDTO, error) {
	wo, err := s.findWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(wo), nil
}

// ListWorkOrders lists work orders, optionally only those of one plan
func (s *WorkOrderApplicationService) ListWorkOrders(ctx context.Context, planID string) ([]WorkOrderDTO, error) {
	var (
		orders []*domain.WorkOrder
		err    error
	)
	if planID != "" {
		orders, err = s.repo.FindByPlanID(ctx, planID)
	} else {
		orders, err = s.repo.FindAll(ctx)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list work orders", "planId", planID)
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	return ToWorkOrderDTOs(orders, s.settings.MinUsableLength), nil
}

// ConfirmGatheringStep confirms the current gathering step. A rail from
// new stock enters the live pool at this point and its pool identity is
// recorded on the step. The identity is derived from the step, so a
// confirmation retried after a failed save does not add the rail twice.
func (s *WorkOrderApplicationService) ConfirmGatheringStep(ctx context.Context, cmd ConfirmGatheringStepCommand) (*WorkOrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wo, err := s.findWorkOrder(ctx, cmd.WorkOrderID)
	if err != nil {
		return nil, err
	}

	var newRail *domain.Rail
	for _, step := range wo.GatheringSteps {
		if step.ID != cmd.StepID || !step.IsFromNewStock || step.Confirmed {
			continue
		}
		note := fmt.Sprintf("New stock for work order %s", wo.PlanName)
		newRail, err = domain.NewRail(step.Length, step.RailType, note)
		if err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
		newRail.ID = wo.DerivedRailID("gathering/" + step.ID)
	}

	liveRailID := ""
	if newRail != nil {
		liveRailID = newRail.ID
	}
	if err := wo.ConfirmGatheringStep(cmd.StepID, liveRailID); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if newRail != nil {
		if err := s.inventory.addRailOnce(ctx, newRail); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, wo); err != nil {
		return nil, err
	}

	s.recordTransition("gathering-confirmed")
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "gathering.confirmed",
		EntityType: "workOrder",
		EntityID:   wo.ID,
		Action:     "gathered",
		RelatedIDs: map[string]string{"stepId": cmd.StepID, "liveRailId": liveRailID},
	})
	return s.toDTO(wo), nil
}

// ConfirmCuttingGroup confirms every cut taken from one physical rail.
// The live rail is removed and a usable remaining length is stored as a
// remainder. Inventory changes are not rolled back by a later cancel.
// When the final save fails, a retry applies no pool change twice.
func (s *WorkOrderApplicationService) ConfirmCuttingGroup(ctx context.Context, cmd ConfirmCuttingGroupCommand) (*WorkOrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wo, err := s.findWorkOrder(ctx, cmd.WorkOrderID)
	if err != nil {
		return nil, err
	}

	group, err := wo.CheckCuttingGroup(cmd.SourceRailID, s.settings.MinUsableLength)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.applyGroupToInventory(ctx, wo, group); err != nil {
		return nil, err
	}

	group, err = wo.ConfirmCuttingGroup(cmd.SourceRailID, s.settings.MinUsableLength, executedBy(ctx, cmd.ExecutedBy))
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.save(ctx, wo); err != nil {
		return nil, err
	}

	s.recordTransition("cutting-confirmed")
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "cutting.confirmed",
		EntityType: "workOrder",
		EntityID:   wo.ID,
		Action:     "cut",
		RelatedIDs: map[string]string{"sourceRailId": group.SourceRailID},
		Data: map[string]any{
			"cuts":           len(group.Steps),
			"totalCutLength": group.TotalCutLength,
			"remaining":      group.Remaining,
			"isWaste":        group.IsWaste,
		},
	})
	return s.toDTO(wo), nil
}

func (s *WorkOrderApplicationService) applyGroupToInventory(ctx context.Context, wo *domain.WorkOrder, group domain.CuttingGroup) error {
	liveID, live, err := s.resolveLiveRail(ctx, wo, group)
	if err != nil {
		return err
	}

	originalID := group.SourceRailID
	if liveID != "" {
		originalID = liveID
	}
	switch {
	case live != nil:
		cut := &domain.RailCutEvent{
			RailID:    live.ID,
			CutLength: group.TotalCutLength,
			Purpose:   wo.PlanName,
			Leftover:  group.Remaining,
			CutAt:     time.Now().UTC(),
		}
		reason := fmt.Sprintf("cut for work order %s", wo.ID)
		if err := s.inventory.removeRail(ctx, live, reason, cut); err != nil {
			return err
		}
	case liveID != "":
		s.logger.WithContext(ctx).Info("Matched rail already left the pool",
			"workOrderId", wo.ID,
			"sourceRailId", group.SourceRailID,
			"railId", liveID,
		)
	default:
		s.logger.WithContext(ctx).Warn("No live rail matches cutting group",
			"workOrderId", wo.ID,
			"sourceRailId", group.SourceRailID,
			"length", group.SourceLength,
		)
	}

	if group.Remaining <= 0 || group.IsWaste {
		return nil
	}

	_, err = s.inventory.AddRemainder(ctx, AddRemainderCommand{
		RailID:         wo.DerivedRailID("remainder/" + group.SourceRailID),
		Length:         group.Remaining,
		RailType:       group.RailType,
		OriginalRailID: originalID,
		Notes:          fmt.Sprintf("Remainder of %dmm rail after work order %s", group.SourceLength, wo.PlanName),
	})
	return err
}

// resolveLiveRail finds the pool rail a cutting group is taken from: the
// identity recorded at gathering, else the source rail itself, else a
// full-length rail of the same type and length. The match is saved on
// the work order before the pool changes, and a recorded match is reused
// as is. The returned rail is nil once the matched rail has left the pool.
func (s *WorkOrderApplicationService) resolveLiveRail(ctx context.Context, wo *domain.WorkOrder, group domain.CuttingGroup) (string, *domain.Rail, error) {
	if step := wo.GatheringStepByRail(group.SourceRailID); step != nil && step.CutRailID != "" {
		rail, err := s.inventory.lookupRail(ctx, step.CutRailID)
		return step.CutRailID, rail, err
	}

	rail, err := s.matchLiveRail(ctx, wo, group)
	if err != nil || rail == nil {
		return "", nil, err
	}
	if wo.RecordCutRail(group.SourceRailID, rail.ID) {
		if err := s.save(ctx, wo); err != nil {
			return "", nil, err
		}
	}
	return rail.ID, rail, nil
}

func (s *WorkOrderApplicationService) matchLiveRail(ctx context.Context, wo *domain.WorkOrder, group domain.CuttingGroup) (*domain.Rail, error) {
	candidates := make([]string, 0, 2)
	if step := wo.GatheringStepByRail(group.SourceRailID); step != nil && step.LiveRailID != "" {
		candidates = append(candidates, step.LiveRailID)
	}
	candidates = append(candidates, group.SourceRailID)

	for _, id := range candidates {
		rail, err := s.inventory.lookupRail(ctx, id)
		if err != nil || rail != nil {
			return rail, err
		}
	}

	stock, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stock {
		rail := stock[i]
		if !rail.IsRemainder && rail.Type() == group.RailType && rail.Length == group.SourceLength {
			return &rail, nil
		}
	}
	return nil, nil
}

// ConfirmReturn confirms that offcuts have been put away
func (s *WorkOrderApplicationService) ConfirmReturn(ctx context.Context, cmd ConfirmReturnCommand) (*WorkOrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wo, err := s.findWorkOrder(ctx, cmd.WorkOrderID)
	if err != nil {
		return nil, err
	}

	if err := wo.ConfirmReturn(cmd.Notes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.save(ctx, wo); err != nil {
		return nil, err
	}

	s.recordTransition("return-confirmed")
	return s.toDTO(wo), nil
}

// AdvancePhase moves the work order to its next phase when the current
// phase is complete. An incomplete phase returns the order unchanged.
func (s *WorkOrderApplicationService) AdvancePhase(ctx context.Context, workOrderID string) (*WorkOrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wo, err := s.findWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}

	from := wo.Phase
	if !wo.AdvancePhase() {
		s.logger.WithContext(ctx).Debug("Phase not complete, work order unchanged", "workOrderId", wo.ID, "phase", from)
		return s.toDTO(wo), nil
	}

	if err := s.save(ctx, wo); err != nil {
		return nil, err
	}

	s.recordTransition(fmt.Sprintf("%s-to-%s", from, wo.Phase))
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "workorder.phase-advanced",
		EntityType: "workOrder",
		EntityID:   wo.ID,
		Action:     "advanced",
		Data:       map[string]any{"from": string(from), "to": string(wo.Phase)},
	})
	return s.toDTO(wo), nil
}

// CancelWorkOrder cancels a work order. Cuts already applied to the pool stay.
func (s *WorkOrderApplicationService) CancelWorkOrder(ctx context.Context, workOrderID string) (*WorkOrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wo, err := s.findWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}

	if err := wo.Cancel(); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.save(ctx, wo); err != nil {
		return nil, err
	}

	s.recordTransition("cancelled")
	s.logger.Audit(ctx, "cancel", "workOrder", wo.ID, map[string]any{"phase": string(wo.Phase)})
	return s.toDTO(wo), nil
}

func (s *WorkOrderApplicationService) findWorkOrder(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	wo, err := s.repo.FindByID(ctx, workOrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get work order", "workOrderId", workOrderID)
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	if wo == nil {
		return nil, errors.ErrNotFoundWithID("work order", workOrderID)
	}
	return wo, nil
}

func (s *WorkOrderApplicationService) save(ctx context.Context, wo *domain.WorkOrder) error {
	if err := s.repo.Save(ctx, wo); err != nil {
		s.logger.WithError(err).Error("Failed to save work order", "workOrderId", wo.ID)
		return fmt.Errorf("failed to save work order: %w", err)
	}
	return nil
}

func (s *WorkOrderApplicationService) toDTO(wo *domain.WorkOrder) *WorkOrderDTO {
	return ToWorkOrderDTO(wo, s.settings.MinUsableLength)
}

func (s *WorkOrderApplicationService) recordTransition(transition string) {
	if s.metrics != nil {
		s.metrics.RecordWorkOrderTransition(transition)
	}
}

// executedBy prefers the explicit operator, then the one on the request context
func executedBy(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return logging.OperatorFromContext(ctx)
}
