package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/middleware"
)

// RailHandlers contains handlers for the live rail pool
type RailHandlers struct {
	service  RailService
	transfer TransferService
	logger   *logging.Logger
}

// NewRailHandlers creates a new RailHandlers
func NewRailHandlers(service RailService, transfer TransferService, logger *logging.Logger) *RailHandlers {
	return &RailHandlers{
		service:  service,
		transfer: transfer,
		logger:   logger,
	}
}

// RegisterRoutes registers rail and inventory routes on the router
func (h *RailHandlers) RegisterRoutes(router *gin.RouterGroup) {
	rails := router.Group("/rails")
	{
		rails.GET("", h.ListRails)
		rails.POST("", h.AddRail)
		rails.GET("/:railId", h.GetRail)
		rails.DELETE("/:railId", h.RemoveRail)
		rails.POST("/:railId/cut", h.CutRail)
	}

	inventory := router.Group("/inventory")
	{
		inventory.GET("/export", h.ExportInventory)
		inventory.POST("/import", h.ImportInventory)
	}
}

// ListRails handles listing the live pool
func (h *RailHandlers) ListRails(c *gin.Context) {
	query := application.ListRailsQuery{}
	for name, target := range map[string]*int{"width": &query.Width, "thickness": &query.Thickness} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondBindError(c, h.logger, errors.ErrBadRequest(name+" must be a positive integer"))
			return
		}
		*target = n
	}

	summary, err := h.service.ListRails(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// AddRail handles bringing a rail into the pool
func (h *RailHandlers) AddRail(c *gin.Context) {
	var req struct {
		Length    int    `json:"length" binding:"required,raildim"`
		Width     int    `json:"width" binding:"required,raildim"`
		Thickness int    `json:"thickness" binding:"required,raildim"`
		Notes     string `json:"notes"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	rail, err := h.service.AddRail(c.Request.Context(), application.AddRailCommand{
		Length:    req.Length,
		Width:     req.Width,
		Thickness: req.Thickness,
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, rail)
}

// GetRail handles getting a rail by ID
func (h *RailHandlers) GetRail(c *gin.Context) {
	railID := c.Param("railId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"rail.id": railID})

	rail, err := h.service.GetRail(c.Request.Context(), railID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rail)
}

// RemoveRail handles taking a rail out of the pool
func (h *RailHandlers) RemoveRail(c *gin.Context) {
	railID := c.Param("railId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"rail.id": railID})

	err := h.service.RemoveRail(c.Request.Context(), application.RemoveRailCommand{
		RailID: railID,
		Reason: c.Query("reason"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CutRail handles cutting a length off a rail
func (h *RailHandlers) CutRail(c *gin.Context) {
	railID := c.Param("railId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"rail.id": railID})

	var req struct {
		CutLength int    `json:"cutLength" binding:"required"`
		Purpose   string `json:"purpose"`
	}
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		respondBindError(c, h.logger, appErr)
		return
	}

	result, err := h.service.CutRail(c.Request.Context(), application.CutRailCommand{
		RailID:    railID,
		CutLength: req.CutLength,
		Purpose:   req.Purpose,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportInventory handles exporting the pool as a document
func (h *RailHandlers) ExportInventory(c *gin.Context) {
	data, err := h.transfer.ExportInventory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	attachment(c, "inventory.json", data)
}

// ImportInventory handles importing an inventory document. replace=true
// empties the pool first.
func (h *RailHandlers) ImportInventory(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBindError(c, h.logger, errors.ErrBadRequest("failed to read request body"))
		return
	}

	result, err := h.transfer.ImportInventory(c.Request.Context(), data, c.Query("replace") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
