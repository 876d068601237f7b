package application

import "github.com/tiagodcc/ikts/internal/domain"

// ToRailTypeDTO converts a domain RailType to RailTypeDTO
func ToRailTypeDTO(t domain.RailType) RailTypeDTO {
	return RailTypeDTO{Width: t.Width, Thickness: t.Thickness, Label: t.Label()}
}

// ToRailDTO converts a domain Rail to RailDTO. Remainders carry the
// storage box their length maps to.
func ToRailDTO(rail *domain.Rail) *RailDTO {
	if rail == nil {
		return nil
	}

	dto := &RailDTO{
		ID:             rail.ID,
		Length:         rail.Length,
		RailType:       ToRailTypeDTO(rail.Type()),
		IsRemainder:    rail.IsRemainder,
		OriginalRailID: rail.OriginalRailID,
		Notes:          rail.Notes,
		CreatedAt:      rail.CreatedAt,
	}
	if rail.IsRemainder {
		if box, ok := domain.RemainderBox(rail.Length); ok {
			dto.Box = &box
		}
	}
	return dto
}

// ToRailDTOs converts a slice of rails, skipping nil entries
func ToRailDTOs(rails []*domain.Rail) []RailDTO {
	dtos := make([]RailDTO, 0, len(rails))
	for _, rail := range rails {
		if dto := ToRailDTO(rail); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToPieceDTO converts a domain CutPiece to PieceDTO
func ToPieceDTO(piece domain.CutPiece) PieceDTO {
	return PieceDTO{
		ID:       piece.ID,
		Length:   piece.Length,
		Quantity: piece.Quantity,
		Purpose:  piece.Purpose,
		RailType: ToRailTypeDTO(piece.RailType),
	}
}

// ToPlanDTO converts a domain Plan to PlanDTO
func ToPlanDTO(plan *domain.Plan) *PlanDTO {
	if plan == nil {
		return nil
	}

	pieces := make([]PieceDTO, 0, len(plan.RequiredPieces))
	for _, piece := range plan.RequiredPieces {
		pieces = append(pieces, ToPieceDTO(piece))
	}

	return &PlanDTO{
		ID:          plan.ID,
		Name:        plan.Name,
		Description: plan.Description,
		Pieces:      pieces,
		TotalPieces: plan.TotalPieceCount(),
		CreatedAt:   plan.CreatedAt,
		UpdatedAt:   plan.UpdatedAt,
	}
}

// ToPlanDTOs converts a slice of plans, skipping nil entries
func ToPlanDTOs(plans []*domain.Plan) []PlanDTO {
	dtos := make([]PlanDTO, 0, len(plans))
	for _, plan := range plans {
		if dto := ToPlanDTO(plan); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToMaterialPlanDTO converts a domain MaterialPlan to MaterialPlanDTO
func ToMaterialPlanDTO(mp domain.MaterialPlan) MaterialPlanDTO {
	suggestions := make([]SuggestionDTO, 0, len(mp.Suggestions))
	for _, s := range mp.Suggestions {
		source := s.SourceRail
		suggestions = append(suggestions, SuggestionDTO{
			SourceRail:      *ToRailDTO(&source),
			PhysicalRailID:  s.PhysicalRailID,
			Piece:           ToPieceDTO(s.Piece),
			RemainderLength: s.RemainderLength,
			Waste:           s.Waste,
			IsOptimal:       s.IsOptimal,
			SourceKind:      s.SourceKind,
		})
	}

	unallocated := make([]UnallocatedPieceDTO, 0, len(mp.Unallocated))
	for _, u := range mp.Unallocated {
		unallocated = append(unallocated, UnallocatedPieceDTO{
			Piece:                 ToPieceDTO(u.Piece),
			LargestStandardLength: u.LargestStandardLength,
		})
	}

	return MaterialPlanDTO{
		PlanID:         mp.Plan.ID,
		PlanName:       mp.Plan.Name,
		Suggestions:    suggestions,
		TotalWaste:     mp.TotalWaste,
		UsedRemainders: mp.UsedRemainders,
		NewRailsNeeded: mp.NewRailsNeeded,
		Unallocated:    unallocated,
		GeneratedAt:    mp.GeneratedAt,
	}
}

// ToCuttingStepDTO converts a domain CuttingStep to CuttingStepDTO
func ToCuttingStepDTO(step domain.CuttingStep) CuttingStepDTO {
	return CuttingStepDTO{
		ID:              step.ID,
		SuggestionIndex: step.SuggestionIndex,
		SourceRailID:    step.SourceRailID,
		PieceID:         step.PieceID,
		CutLength:       step.CutLength,
		RemainderLength: step.RemainderLength,
		WasteLength:     step.WasteLength,
		Purpose:         step.Purpose,
		Confirmed:       step.Confirmed,
		ConfirmedAt:     step.ConfirmedAt,
	}
}

// ToCuttingGroupDTO converts a domain CuttingGroup to CuttingGroupDTO
func ToCuttingGroupDTO(group domain.CuttingGroup) CuttingGroupDTO {
	steps := make([]CuttingStepDTO, 0, len(group.Steps))
	for _, step := range group.Steps {
		steps = append(steps, ToCuttingStepDTO(step))
	}
	return CuttingGroupDTO{
		SourceRailID:   group.SourceRailID,
		RailType:       ToRailTypeDTO(group.RailType),
		SourceLength:   group.SourceLength,
		TotalCutLength: group.TotalCutLength,
		Remaining:      group.Remaining,
		IsWaste:        group.IsWaste,
		Confirmed:      group.Confirmed,
		Steps:          steps,
	}
}

// ToWorkOrderDTO converts a domain WorkOrder to WorkOrderDTO. Cutting
// groups are classified against minUsable.
func ToWorkOrderDTO(wo *domain.WorkOrder, minUsable int) *WorkOrderDTO {
	if wo == nil {
		return nil
	}

	gathering := make([]GatheringStepDTO, 0, len(wo.GatheringSteps))
	for _, step := range wo.GatheringSteps {
		gathering = append(gathering, GatheringStepDTO{
			ID:             step.ID,
			SourceRailID:   step.SourceRailID,
			RailType:       ToRailTypeDTO(step.RailType),
			Length:         step.Length,
			IsRemainder:    step.IsRemainder,
			IsFromNewStock: step.IsFromNewStock,
			Confirmed:      step.Confirmed,
			ConfirmedAt:    step.ConfirmedAt,
			LiveRailID:     step.LiveRailID,
		})
	}

	groups := make([]CuttingGroupDTO, 0)
	for _, group := range wo.CuttingGroups(minUsable) {
		groups = append(groups, ToCuttingGroupDTO(group))
	}

	executed := make([]ExecutedCutDTO, 0, len(wo.ExecutedCuts))
	for _, cut := range wo.ExecutedCuts {
		executed = append(executed, ExecutedCutDTO{
			ID:              cut.ID,
			SuggestionIndex: cut.SuggestionIndex,
			PieceID:         cut.PieceID,
			SourceRailID:    cut.SourceRailID,
			CutLength:       cut.CutLength,
			ExecutedAt:      cut.ExecutedAt,
			ExecutedBy:      cut.ExecutedBy,
		})
	}

	return &WorkOrderDTO{
		ID:             wo.ID,
		PlanID:         wo.PlanID,
		PlanName:       wo.PlanName,
		Status:         string(wo.Status),
		Phase:          string(wo.Phase),
		CanAdvance:     wo.CanAdvancePhase(),
		Progress:       wo.Progress(),
		GatheringSteps: gathering,
		CuttingGroups:  groups,
		ReturnConfirmation: ReturnConfirmationDTO{
			Confirmed:   wo.ReturnConfirmation.Confirmed,
			ConfirmedAt: wo.ReturnConfirmation.ConfirmedAt,
			Notes:       wo.ReturnConfirmation.Notes,
		},
		ExecutedCuts: executed,
		MaterialPlan: ToMaterialPlanDTO(wo.MaterialPlanSnapshot),
		Notes:        wo.Notes,
		CreatedAt:    wo.CreatedAt,
		UpdatedAt:    wo.UpdatedAt,
		StartedAt:    wo.StartedAt,
		CompletedAt:  wo.CompletedAt,
	}
}

// ToWorkOrderDTOs converts a slice of work orders, skipping nil entries
func ToWorkOrderDTOs(workOrders []*domain.WorkOrder, minUsable int) []WorkOrderDTO {
	dtos := make([]WorkOrderDTO, 0, len(workOrders))
	for _, wo := range workOrders {
		if dto := ToWorkOrderDTO(wo, minUsable); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}
