package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/middleware"
)

// RailService is the inventory use case surface used by the rail handlers
type RailService interface {
	AddRail(ctx context.Context, cmd application.AddRailCommand) (*application.RailDTO, error)
	CutRail(ctx context.Context, cmd application.CutRailCommand) (*application.CutResultDTO, error)
	RemoveRail(ctx context.Context, cmd application.RemoveRailCommand) error
	GetRail(ctx context.Context, railID string) (*application.RailDTO, error)
	ListRails(ctx context.Context, query application.ListRailsQuery) (*application.InventorySummaryDTO, error)
}

// PlanService is the plan use case surface used by the plan handlers
type PlanService interface {
	CreatePlan(ctx context.Context, cmd application.CreatePlanCommand) (*application.PlanDTO, error)
	GetPlan(ctx context.Context, planID string) (*application.PlanDTO, error)
	ListPlans(ctx context.Context) ([]application.PlanDTO, error)
	UpdatePlan(ctx context.Context, cmd application.UpdatePlanCommand) (*application.PlanDTO, error)
	DeletePlan(ctx context.Context, planID string) error
	AddPiece(ctx context.Context, cmd application.PieceCommand) (*application.PieceDTO, error)
	UpdatePiece(ctx context.Context, cmd application.PieceCommand) (*application.PieceDTO, error)
	RemovePiece(ctx context.Context, planID, pieceID string) (*application.PlanDTO, error)
	PreviewMaterialPlan(ctx context.Context, planID string) (*application.MaterialPlanDTO, error)
}

// WorkOrderService is the work order use case surface used by the work order handlers
type WorkOrderService interface {
	CreateWorkOrder(ctx context.Context, cmd application.CreateWorkOrderCommand) (*application.WorkOrderDTO, error)
	GetWorkOrder(ctx context.Context, workOrderID string) (*application.WorkOrderDTO, error)
	ListWorkOrders(ctx context.Context, planID string) ([]application.WorkOrderDTO, error)
	ConfirmGatheringStep(ctx context.Context, cmd application.ConfirmGatheringStepCommand) (*application.WorkOrderDTO, error)
	ConfirmCuttingGroup(ctx context.Context, cmd application.ConfirmCuttingGroupCommand) (*application.WorkOrderDTO, error)
	ConfirmReturn(ctx context.Context, cmd application.ConfirmReturnCommand) (*application.WorkOrderDTO, error)
	AdvancePhase(ctx context.Context, workOrderID string) (*application.WorkOrderDTO, error)
	CancelWorkOrder(ctx context.Context, workOrderID string) (*application.WorkOrderDTO, error)
}

// TransferService is the import/export surface
type TransferService interface {
	ExportPlan(ctx context.Context, planID string) ([]byte, error)
	ImportPlan(ctx context.Context, data []byte) (*application.ImportResultDTO, error)
	ExportInventory(ctx context.Context) ([]byte, error)
	ImportInventory(ctx context.Context, data []byte, replace bool) (*application.ImportResultDTO, error)
}

// railTypeRequest is the cross-section part of a request body
type railTypeRequest struct {
	Width     int `json:"width" binding:"required,raildim"`
	Thickness int `json:"thickness" binding:"required,raildim"`
}

func respondError(c *gin.Context, logger *logging.Logger, err error) {
	responder := middleware.NewErrorResponder(c, logger.Logger)
	if appErr, ok := err.(*errors.AppError); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}

func respondBindError(c *gin.Context, logger *logging.Logger, appErr *errors.AppError) {
	middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
}

func attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "application/json", data)
}
