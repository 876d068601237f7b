package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/middleware"
)

// WorkOrderHandlers contains handlers for the work order workflow
type WorkOrderHandlers struct {
	service WorkOrderService
	logger  *logging.Logger
}

// NewWorkOrderHandlers creates a new WorkOrderHandlers
func NewWorkOrderHandlers(service WorkOrderService, logger *logging.Logger) *WorkOrderHandlers {
	return &WorkOrderHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers work order routes on the router
func (h *WorkOrderHandlers) RegisterRoutes(router *gin.RouterGroup) {
	workOrders := router.Group("/work-orders")
	{
		workOrders.GET("", h.ListWorkOrders)
		workOrders.POST("", h.CreateWorkOrder)
		workOrders.GET("/:workOrderId", h.GetWorkOrder)
		workOrders.POST("/:workOrderId/gathering-steps/:stepId/confirm", h.ConfirmGatheringStep)
		workOrders.POST("/:workOrderId/cutting-groups/:railId/confirm", h.ConfirmCuttingGroup)
		workOrders.POST("/:workOrderId/return/confirm", h.ConfirmReturn)
		workOrders.POST("/:workOrderId/advance", h.AdvancePhase)
		workOrders.POST("/:workOrderId/cancel", h.CancelWorkOrder)
	}
}

// ListWorkOrders handles listing work orders, optionally for one plan
func (h *WorkOrderHandlers) ListWorkOrders(c *gin.Context) {
	workOrders, err := h.service.ListWorkOrders(c.Request.Context(), c.Query("planId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrders)
}

// CreateWorkOrder handles materializing a work order from a plan
func (h *WorkOrderHandlers) CreateWorkOrder(c *gin.Context) {
	var req struct {
		PlanID string `json:"planId" binding:"required"`
		Notes  string `json:"notes"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{"plan.id": req.PlanID})

	workOrder, err := h.service.CreateWorkOrder(c.Request.Context(), application.CreateWorkOrderCommand{
		PlanID: req.PlanID,
		Notes:  req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, workOrder)
}

// GetWorkOrder handles getting a work order by ID
func (h *WorkOrderHandlers) GetWorkOrder(c *gin.Context) {
	workOrderID := c.Param("workOrderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"work_order.id": workOrderID})

	workOrder, err := h.service.GetWorkOrder(c.Request.Context(), workOrderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// ConfirmGatheringStep handles confirming that a rail was fetched
func (h *WorkOrderHandlers) ConfirmGatheringStep(c *gin.Context) {
	workOrderID := c.Param("workOrderId")
	stepID := c.Param("stepId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"work_order.id": workOrderID,
		"step.id":       stepID,
	})

	workOrder, err := h.service.ConfirmGatheringStep(c.Request.Context(), application.ConfirmGatheringStepCommand{
		WorkOrderID: workOrderID,
		StepID:      stepID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// ConfirmCuttingGroup handles confirming all cuts from one source rail
func (h *WorkOrderHandlers) ConfirmCuttingGroup(c *gin.Context) {
	workOrderID := c.Param("workOrderId")
	railID := c.Param("railId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"work_order.id": workOrderID,
		"rail.id":       railID,
	})

	var req struct {
		ExecutedBy string `json:"executedBy"`
	}
	if c.Request.ContentLength != 0 {
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			respondBindError(c, h.logger, appErr)
			return
		}
	}

	workOrder, err := h.service.ConfirmCuttingGroup(c.Request.Context(), application.ConfirmCuttingGroupCommand{
		WorkOrderID:  workOrderID,
		SourceRailID: railID,
		ExecutedBy:   req.ExecutedBy,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// ConfirmReturn handles confirming that remainders went back to storage
func (h *WorkOrderHandlers) ConfirmReturn(c *gin.Context) {
	workOrderID := c.Param("workOrderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"work_order.id": workOrderID})

	var req struct {
		Notes string `json:"notes"`
	}
	if c.Request.ContentLength != 0 {
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			respondBindError(c, h.logger, appErr)
			return
		}
	}

	workOrder, err := h.service.ConfirmReturn(c.Request.Context(), application.ConfirmReturnCommand{
		WorkOrderID: workOrderID,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// AdvancePhase handles moving a work order to its next phase
func (h *WorkOrderHandlers) AdvancePhase(c *gin.Context) {
	workOrderID := c.Param("workOrderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"work_order.id": workOrderID})

	workOrder, err := h.service.AdvancePhase(c.Request.Context(), workOrderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// CancelWorkOrder handles cancelling a work order
func (h *WorkOrderHandlers) CancelWorkOrder(c *gin.Context) {
	workOrderID := c.Param("workOrderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"work_order.id": workOrderID})

	workOrder, err := h.service.CancelWorkOrder(c.Request.Context(), workOrderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, workOrder)
}
