package application

import (
	"context"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/internal/transfer"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
)

// TransferApplicationService imports and exports plan and inventory documents
type TransferApplicationService struct {
	plans     *PlanApplicationService
	inventory *InventoryApplicationService
	logger    *logging.Logger
}

// NewTransferApplicationService creates a new TransferApplicationService
func NewTransferApplicationService(plans *PlanApplicationService, inventory *InventoryApplicationService, logger *logging.Logger) *TransferApplicationService {
	return &TransferApplicationService{
		plans:     plans,
		inventory: inventory,
		logger:    logger,
	}
}

// ExportPlan renders a plan document
func (s *TransferApplicationService) ExportPlan(ctx context.Context, planID string) ([]byte, error) {
	plan, err := s.plans.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return transfer.ExportPlan(*plan)
}

// ImportPlan stores the plan of a document under fresh identities
func (s *TransferApplicationService) ImportPlan(ctx context.Context, data []byte) (*ImportResultDTO, error) {
	plan, err := transfer.ImportPlan(data)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	dto, err := s.plans.importPlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &ImportResultDTO{Kind: transfer.KindPlan, Imported: 1, Plan: dto}, nil
}

// ExportInventory renders the live pool as an inventory document
func (s *TransferApplicationService) ExportInventory(ctx context.Context) ([]byte, error) {
	rails, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return transfer.ExportInventory(rails)
}

// ImportInventory adds the rails of a document to the pool under fresh
// identities. With replace set, the current pool is emptied first.
func (s *TransferApplicationService) ImportInventory(ctx context.Context, data []byte, replace bool) (*ImportResultDTO, error) {
	rails, err := transfer.ImportInventory(data)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if replace {
		current, err := s.inventory.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		for i := range current {
			if err := s.inventory.removeRail(ctx, &current[i], "replaced by inventory import"); err != nil {
				return nil, err
			}
		}
	}

	imported := make([]*domain.Rail, 0, len(rails))
	for i := range rails {
		rail := &rails[i]
		if err := s.inventory.addRail(ctx, rail); err != nil {
			return nil, err
		}
		imported = append(imported, rail)
	}

	s.logger.Audit(ctx, "import", "inventory", "", map[string]any{
		"rails":   len(imported),
		"replace": replace,
	})
	return &ImportResultDTO{Kind: transfer.KindInventory, Imported: len(imported), Rails: ToRailDTOs(imported)}, nil
}
