package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/internal/infrastructure/indicator"
	"github.com/tiagodcc/ikts/internal/infrastructure/store"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
	"github.com/tiagodcc/ikts/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter wires the handlers over real services and a memory-only store
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	logger := logging.NewNop()
	s, err := store.Open(nil, logger)
	require.NoError(t, err)

	m := metrics.New(metrics.DefaultConfig("handlers-test"))
	settings := domain.DefaultPlannerSettings()
	inventory := application.NewInventoryApplicationService(store.NewRailRepository(s.Rails, m, logger), indicator.Nop{}, m, logger)
	plans := application.NewPlanApplicationService(store.NewPlanRepository(s.Plans, m), inventory, settings, m, logger)
	workOrders := application.NewWorkOrderApplicationService(store.NewWorkOrderRepository(s.WorkOrders, m, logger), plans, inventory, settings, m, logger)
	transfer := application.NewTransferApplicationService(plans, inventory, logger)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig("handlers-test", slog.New(slog.DiscardHandler)))
	v1 := router.Group("/api/v1")
	NewRailHandlers(inventory, transfer, logger).RegisterRoutes(v1)
	NewPlanHandlers(plans, transfer, logger).RegisterRoutes(v1)
	NewWorkOrderHandlers(workOrders, logger).RegisterRoutes(v1)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderOperator, "maria")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func addRail(t *testing.T, router *gin.Engine, length, width, thickness int) application.RailDTO {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/v1/rails", map[string]int{
		"length": length, "width": width, "thickness": thickness,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[application.RailDTO](t, w)
}

func createPlan(t *testing.T, router *gin.Engine, pieces ...map[string]any) application.PlanDTO {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/v1/plans", map[string]string{"name": "Shelf"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	plan := decode[application.PlanDTO](t, w)

	for _, p := range pieces {
		w = do(t, router, http.MethodPost, "/api/v1/plans/"+plan.ID+"/pieces", p)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	return plan
}

func piece(length, quantity, width, thickness int) map[string]any {
	return map[string]any{
		"length":   length,
		"quantity": quantity,
		"purpose":  "shelf",
		"railType": map[string]int{"width": width, "thickness": thickness},
	}
}

func TestRailHandlers_AddGetList(t *testing.T) {
	router := newTestRouter(t)

	rail := addRail(t, router, 2000, 40, 5)
	assert.Equal(t, "40x5", rail.RailType.Label)
	assert.False(t, rail.IsRemainder)
	addRail(t, router, 1500, 30, 3)

	w := do(t, router, http.MethodGet, "/api/v1/rails/"+rail.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rail.ID, decode[application.RailDTO](t, w).ID)

	w = do(t, router, http.MethodGet, "/api/v1/rails?width=40", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[application.InventorySummaryDTO](t, w)
	assert.Len(t, summary.Rails, 1)
	assert.Equal(t, 2000, summary.TotalLength)

	w = do(t, router, http.MethodGet, "/api/v1/rails?width=wide", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRailHandlers_AddRejectsBadDimensions(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing length", `{"width":40,"thickness":5}`},
		{"negative width", `{"length":100,"width":-1,"thickness":5}`},
		{"too long", `{"length":100001,"width":40,"thickness":5}`},
		{"malformed", `{"length":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/rails", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[middleware.APIErrorResponse](t, w)
			assert.Equal(t, "/api/v1/rails", resp.Path)
		})
	}
}

func TestRailHandlers_Cut(t *testing.T) {
	router := newTestRouter(t)
	rail := addRail(t, router, 2000, 40, 5)

	w := do(t, router, http.MethodPost, "/api/v1/rails/"+rail.ID+"/cut", map[string]any{"cutLength": 2500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/rails/"+rail.ID+"/cut", map[string]any{"cutLength": 600, "purpose": "leg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[application.CutResultDTO](t, w)
	assert.Equal(t, 1400, result.Leftover)
	require.NotNil(t, result.Remainder)
	require.NotNil(t, result.Remainder.Box)
	assert.Equal(t, 1, *result.Remainder.Box)

	w = do(t, router, http.MethodGet, "/api/v1/rails/"+rail.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/rails/missing/cut", map[string]any{"cutLength": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRailHandlers_Remove(t *testing.T) {
	router := newTestRouter(t)
	rail := addRail(t, router, 2000, 40, 5)

	w := do(t, router, http.MethodDelete, "/api/v1/rails/"+rail.ID+"?reason=damaged", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodDelete, "/api/v1/rails/"+rail.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestRailHandlers_InventoryExportImport(t *testing.T) {
	router := newTestRouter(t)
	addRail(t, router, 2000, 40, 5)
	addRail(t, router, 1500, 30, 3)

	w := do(t, router, http.MethodGet, "/api/v1/inventory/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inventory.json")
	doc := w.Body.Bytes()

	w = do(t, router, http.MethodPost, "/api/v1/inventory/import", doc)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[application.ImportResultDTO](t, w).Imported)

	w = do(t, router, http.MethodGet, "/api/v1/rails", nil)
	assert.Len(t, decode[application.InventorySummaryDTO](t, w).Rails, 4)

	w = do(t, router, http.MethodPost, "/api/v1/inventory/import?replace=true", doc)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, router, http.MethodGet, "/api/v1/rails", nil)
	assert.Len(t, decode[application.InventorySummaryDTO](t, w).Rails, 2)

	w = do(t, router, http.MethodPost, "/api/v1/inventory/import", `{"version":1,"rails":[{"length":-3}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanHandlers_CRUD(t *testing.T) {
	router := newTestRouter(t)
	plan := createPlan(t, router, piece(600, 2, 40, 5))

	w := do(t, router, http.MethodGet, "/api/v1/plans/"+plan.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[application.PlanDTO](t, w)
	require.Len(t, got.Pieces, 1)
	assert.Equal(t, 2, got.TotalPieces)

	w = do(t, router, http.MethodPut, "/api/v1/plans/"+plan.ID, map[string]string{"name": "Tall shelf", "description": "oak"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Tall shelf", decode[application.PlanDTO](t, w).Name)

	pieceID := got.Pieces[0].ID
	w = do(t, router, http.MethodPut, "/api/v1/plans/"+plan.ID+"/pieces/"+pieceID, piece(700, 3, 40, 5))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 700, decode[application.PieceDTO](t, w).Length)

	w = do(t, router, http.MethodPut, "/api/v1/plans/"+plan.ID+"/pieces/missing", piece(700, 3, 40, 5))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/plans/"+plan.ID+"/pieces", piece(700, 0, 40, 5))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, http.MethodPost, "/api/v1/plans/"+plan.ID+"/pieces", piece(700, 10001, 40, 5))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodDelete, "/api/v1/plans/"+plan.ID+"/pieces/"+pieceID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[application.PlanDTO](t, w).Pieces)

	w = do(t, router, http.MethodGet, "/api/v1/plans", nil)
	assert.Len(t, decode[[]application.PlanDTO](t, w), 1)

	w = do(t, router, http.MethodDelete, "/api/v1/plans/"+plan.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/api/v1/plans/"+plan.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/plans", map[string]string{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanHandlers_PreviewDoesNotMutate(t *testing.T) {
	router := newTestRouter(t)
	addRail(t, router, 2000, 40, 5)
	plan := createPlan(t, router, piece(600, 2, 40, 5), piece(7000, 1, 40, 5))

	w := do(t, router, http.MethodGet, "/api/v1/plans/"+plan.ID+"/material-plan", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[application.MaterialPlanDTO](t, w)
	assert.Len(t, preview.Suggestions, 2)
	assert.Equal(t, 0, preview.NewRailsNeeded)
	require.Len(t, preview.Unallocated, 1)
	assert.Equal(t, 7000, preview.Unallocated[0].Piece.Length)

	w = do(t, router, http.MethodGet, "/api/v1/rails", nil)
	summary := decode[application.InventorySummaryDTO](t, w)
	require.Len(t, summary.Rails, 1)
	assert.Equal(t, 2000, summary.Rails[0].Length)

	w = do(t, router, http.MethodGet, "/api/v1/plans/missing/material-plan", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlanHandlers_ExportImport(t *testing.T) {
	router := newTestRouter(t)
	plan := createPlan(t, router, piece(600, 2, 40, 5))

	w := do(t, router, http.MethodGet, "/api/v1/plans/"+plan.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), plan.ID)

	w = do(t, router, http.MethodPost, "/api/v1/plans/import", w.Body.Bytes())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[application.ImportResultDTO](t, w)
	require.NotNil(t, result.Plan)
	assert.NotEqual(t, plan.ID, result.Plan.ID)
	assert.Equal(t, "Shelf", result.Plan.Name)

	w = do(t, router, http.MethodPost, "/api/v1/plans/import", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkOrderHandlers_Lifecycle(t *testing.T) {
	router := newTestRouter(t)
	rail := addRail(t, router, 2000, 40, 5)
	plan := createPlan(t, router, piece(600, 1, 40, 5))

	w := do(t, router, http.MethodPost, "/api/v1/work-orders", map[string]string{"planId": plan.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wo := decode[application.WorkOrderDTO](t, w)
	require.Len(t, wo.GatheringSteps, 1)
	require.Len(t, wo.CuttingGroups, 1)
	base := "/api/v1/work-orders/" + wo.ID

	// incomplete phase comes back unchanged
	w = do(t, router, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.PhaseGathering), decode[application.WorkOrderDTO](t, w).Phase)

	w = do(t, router, http.MethodPost, base+"/gathering-steps/"+wo.GatheringSteps[0].ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, router, http.MethodPost, base+"/gathering-steps/"+wo.GatheringSteps[0].ID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.PhaseCutting), decode[application.WorkOrderDTO](t, w).Phase)

	w = do(t, router, http.MethodPost, base+"/cutting-groups/"+rail.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[application.WorkOrderDTO](t, w)
	require.Len(t, got.ExecutedCuts, 1)
	assert.Equal(t, "maria", got.ExecutedCuts[0].ExecutedBy)

	w = do(t, router, http.MethodGet, "/api/v1/rails", nil)
	summary := decode[application.InventorySummaryDTO](t, w)
	require.Len(t, summary.Rails, 1)
	assert.Equal(t, 1400, summary.Rails[0].Length)
	assert.True(t, summary.Rails[0].IsRemainder)

	w = do(t, router, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodPost, base+"/return/confirm", `{"notes":"box 1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[application.WorkOrderDTO](t, w).ReturnConfirmation.Confirmed)

	w = do(t, router, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.WorkOrderStatusCompleted), decode[application.WorkOrderDTO](t, w).Status)

	w = do(t, router, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/work-orders?planId="+plan.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.WorkOrderDTO](t, w), 1)
}

func TestWorkOrderHandlers_Errors(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/v1/work-orders", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/work-orders", map[string]string{"planId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	plan := createPlan(t, router, piece(7000, 1, 40, 5))
	w = do(t, router, http.MethodPost, "/api/v1/work-orders", map[string]string{"planId": plan.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/work-orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/work-orders/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/work-orders/missing/return/confirm", strings.Repeat("{", 3))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
