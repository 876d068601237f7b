package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/middleware"
)

// PlanHandlers contains handlers for plan editing and previews
type PlanHandlers struct {
	service  PlanService
	transfer TransferService
	logger   *logging.Logger
}

// NewPlanHandlers creates a new PlanHandlers
func NewPlanHandlers(service PlanService, transfer TransferService, logger *logging.Logger) *PlanHandlers {
	return &PlanHandlers{
		service:  service,
		transfer: transfer,
		logger:   logger,
	}
}

// RegisterRoutes registers plan routes on the router
func (h *PlanHandlers) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/plans")
	{
		plans.GET("", h.ListPlans)
		plans.POST("", h.CreatePlan)
		plans.POST("/import", h.ImportPlan)
		plans.GET("/:planId", h.GetPlan)
		plans.PUT("/:planId", h.UpdatePlan)
		plans.DELETE("/:planId", h.DeletePlan)
		plans.GET("/:planId/export", h.ExportPlan)
		plans.GET("/:planId/material-plan", h.PreviewMaterialPlan)
		plans.POST("/:planId/pieces", h.AddPiece)
		plans.PUT("/:planId/pieces/:pieceId", h.UpdatePiece)
		plans.DELETE("/:planId/pieces/:pieceId", h.RemovePiece)
	}
}

type planRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type pieceRequest struct {
	Length   int             `json:"length" binding:"required,raildim"`
	Quantity int             `json:"quantity" binding:"required,min=1,max=10000"`
	Purpose  string          `json:"purpose"`
	RailType railTypeRequest `json:"railType" binding:"required"`
}

func (r pieceRequest) command(planID, pieceID string) application.PieceCommand {
	return application.PieceCommand{
		PlanID:    planID,
		PieceID:   pieceID,
		Length:    r.Length,
		Quantity:  r.Quantity,
		Purpose:   r.Purpose,
		Width:     r.RailType.Width,
		Thickness: r.RailType.Thickness,
	}
}

// ListPlans handles listing plans
func (h *PlanHandlers) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// CreatePlan handles creating an empty plan
func (h *PlanHandlers) CreatePlan(c *gin.Context) {
	var req planRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	plan, err := h.service.CreatePlan(c.Request.Context(), application.CreatePlanCommand{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlan handles getting a plan by ID
func (h *PlanHandlers) GetPlan(c *gin.Context) {
	planID := c.Param("planId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"plan.id": planID})

	plan, err := h.service.GetPlan(c.Request.Context(), planID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// UpdatePlan handles renaming a plan
func (h *PlanHandlers) UpdatePlan(c *gin.Context) {
	planID := c.Param("planId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"plan.id": planID})

	var req planRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	plan, err := h.service.UpdatePlan(c.Request.Context(), application.UpdatePlanCommand{
		PlanID:      planID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// DeletePlan handles deleting a plan
func (h *PlanHandlers) DeletePlan(c *gin.Context) {
	planID := c.Param("planId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"plan.id": planID})

	if err := h.service.DeletePlan(c.Request.Context(), planID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddPiece handles adding a required piece to a plan
func (h *PlanHandlers) AddPiece(c *gin.Context) {
	planID := c.Param("planId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"plan.id": planID})

	var req pieceRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	piece, err := h.service.AddPiece(c.Request.Context(), req.command(planID, ""))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, piece)
}

// UpdatePiece handles replacing the attributes of a piece
func (h *PlanHandlers) UpdatePiece(c *gin.Context) {
	planID := c.Param("planId")
	pieceID := c.Param("pieceId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"plan.id":  planID,
		"piece.id": pieceID,
	})

	var req pieceRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	piece, err := h.service.UpdatePiece(c.Request.Context(), req.command(planID, pieceID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, piece)
}

// RemovePiece handles deleting a piece from a plan
func (h *PlanHandlers) RemovePiece(c *gin.Context) {
	plan, err := h.service.RemovePiece(c.Request.Context(), c.Param("planId"), c.Param("pieceId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// PreviewMaterialPlan handles running the allocation engine without
// touching the pool
func (h *PlanHandlers) PreviewMaterialPlan(c *gin.Context) {
	planID := c.Param("planId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"plan.id": planID})

	materialPlan, err := h.service.PreviewMaterialPlan(c.Request.Context(), planID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"allocation.waste":     materialPlan.TotalWaste,
		"allocation.new_rails": materialPlan.NewRailsNeeded,
	})
	c.JSON(http.StatusOK, materialPlan)
}

// ExportPlan handles exporting a plan document
func (h *PlanHandlers) ExportPlan(c *gin.Context) {
	planID := c.Param("planId")

	data, err := h.transfer.ExportPlan(c.Request.Context(), planID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	attachment(c, "plan-"+planID+".json", data)
}

// ImportPlan handles importing a plan document
func (h *PlanHandlers) ImportPlan(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBindError(c, h.logger, errors.ErrBadRequest("failed to read request body"))
		return
	}

	result, err := h.transfer.ImportPlan(c.Request.Context(), data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
