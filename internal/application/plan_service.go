package application

import (
	"context"
	"fmt"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
)

// Allocation runs are labelled by what triggered them
const (
	allocationPreview   = "preview"
	allocationWorkOrder = "work-order"
)

// PlanApplicationService handles plan editing and allocation previews
type PlanApplicationService struct {
	repo      domain.PlanRepository
	inventory *InventoryApplicationService
	settings  domain.PlannerSettings
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewPlanApplicationService creates a new PlanApplicationService
func NewPlanApplicationService(
	repo domain.PlanRepository,
	inventory *InventoryApplicationService,
	settings domain.PlannerSettings,
	m *metrics.Metrics,
	logger *logging.Logger,
) *PlanApplicationService {
	return &PlanApplicationService{
		repo:      repo,
		inventory: inventory,
		settings:  settings.Normalized(),
		metrics:   m,
		logger:    logger,
	}
}

// CreatePlan creates an empty plan
func (s *PlanApplicationService) CreatePlan(ctx context.Context, cmd CreatePlanCommand) (*PlanDTO, error) {
	plan, err := domain.NewPlan(cmd.Name, cmd.Description)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.save(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info("Created plan", "planId", plan.ID, "name", plan.Name)
	return ToPlanDTO(plan), nil
}

// GetPlan retrieves a plan by ID
func (s *PlanApplicationService) GetPlan(ctx context.Context, planID string) (*PlanDTO, error) {
	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return ToPlanDTO(plan), nil
}

// ListPlans lists all plans
func (s *PlanApplicationService) ListPlans(ctx context.Context) ([]PlanDTO, error) {
	plans, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list plans")
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return ToPlanDTOs(plans), nil
}

// UpdatePlan renames a plan and replaces its description
func (s *PlanApplicationService) UpdatePlan(ctx context.Context, cmd UpdatePlanCommand) (*PlanDTO, error) {
	plan, err := s.findPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}

	if err := plan.Rename(cmd.Name, cmd.Description); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.save(ctx, plan); err != nil {
		return nil, err
	}
	return ToPlanDTO(plan), nil
}

// DeletePlan deletes a plan. Work orders keep their frozen snapshot.
func (s *PlanApplicationService) DeletePlan(ctx context.Context, planID string) error {
	if _, err := s.findPlan(ctx, planID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, planID); err != nil {
		s.logger.WithError(err).Error("Failed to delete plan", "planId", planID)
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	s.logger.Audit(ctx, "delete", "plan", planID, nil)
	return nil
}

// AddPiece adds a required piece to a plan
func (s *PlanApplicationService) AddPiece(ctx context.Context, cmd PieceCommand) (*PieceDTO, error) {
	plan, err := s.findPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}

	piece, err := domain.NewCutPiece(cmd.Length, cmd.Quantity, cmd.Purpose, domain.RailType{Width: cmd.Width, Thickness: cmd.Thickness})
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	piece, err = plan.AddPiece(piece)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.save(ctx, plan); err != nil {
		return nil, err
	}

	dto := ToPieceDTO(piece)
	return &dto, nil
}

// UpdatePiece replaces the attributes of a piece
func (s *PlanApplicationService) UpdatePiece(ctx context.Context, cmd PieceCommand) (*PieceDTO, error) {
	plan, err := s.findPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}

	piece, err := plan.UpdatePiece(cmd.PieceID, domain.CutPiece{
		Length:   cmd.Length,
		Quantity: cmd.Quantity,
		Purpose:  cmd.Purpose,
		RailType: domain.RailType{Width: cmd.Width, Thickness: cmd.Thickness},
	})
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.save(ctx, plan); err != nil {
		return nil, err
	}

	dto := ToPieceDTO(piece)
	return &dto, nil
}

// RemovePiece deletes a piece from a plan
func (s *PlanApplicationService) RemovePiece(ctx context.Context, planID, pieceID string) (*PlanDTO, error) {
	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if err := plan.RemovePiece(pieceID); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.save(ctx, plan); err != nil {
		return nil, err
	}
	return ToPlanDTO(plan), nil
}

// PreviewMaterialPlan runs the allocation engine against a snapshot of
// the live pool. Nothing is stored or mutated.
func (s *PlanApplicationService) PreviewMaterialPlan(ctx context.Context, planID string) (*MaterialPlanDTO, error) {
	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	materialPlan, err := s.allocate(ctx, *plan, allocationPreview)
	if err != nil {
		return nil, err
	}

	dto := ToMaterialPlanDTO(materialPlan)
	return &dto, nil
}

// allocate generates a material plan for plan against the current pool
func (s *PlanApplicationService) allocate(ctx context.Context, plan domain.Plan, trigger string) (domain.MaterialPlan, error) {
	stock, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return domain.MaterialPlan{}, err
	}

	materialPlan := domain.GenerateMaterialPlan(plan, stock, s.settings)
	if s.metrics != nil {
		s.metrics.RecordAllocation(trigger, materialPlan.TotalWaste, materialPlan.NewRailsNeeded,
			materialPlan.UsedRemainders, len(materialPlan.Unallocated))
	}

	s.logger.WithContext(ctx).Debug("Generated material plan",
		"planId", plan.ID,
		"trigger", trigger,
		"suggestions", len(materialPlan.Suggestions),
		"totalWaste", materialPlan.TotalWaste,
		"newRailsNeeded", materialPlan.NewRailsNeeded,
		"unallocated", len(materialPlan.Unallocated),
	)
	return materialPlan, nil
}

// importPlan stores a plan built by the transfer package
func (s *PlanApplicationService) importPlan(ctx context.Context, plan *domain.Plan) (*PlanDTO, error) {
	if err := s.save(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Audit(ctx, "import", "plan", plan.ID, map[string]any{"pieces": len(plan.RequiredPieces)})
	return ToPlanDTO(plan), nil
}

func (s *PlanApplicationService) findPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get plan", "planId", planID)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, errors.ErrNotFoundWithID("plan", planID)
	}
	return plan, nil
}

func (s *PlanApplicationService) save(ctx context.Context, plan *domain.Plan) error {
	if err := s.repo.Save(ctx, plan); err != nil {
		s.logger.WithError(err).Error("Failed to save plan", "planId", plan.ID)
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}
