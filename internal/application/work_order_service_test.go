package application

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/logging"
)

// mixedOrder creates a work order cutting 3x600 from one 2000 rail and a
// 400 piece of another type from new stock
func mixedOrder(t *testing.T, ts *testServices) (*RailDTO, *WorkOrderDTO) {
	t.Helper()
	rail := ts.addRail(t, 2000, typeA)
	plan := ts.createPlan(t, piece(600, 3, "shelf", typeA), piece(400, 1, "brace", typeB))

	wo, err := ts.workOrders.CreateWorkOrder(context.Background(), CreateWorkOrderCommand{PlanID: plan.ID, Notes: "rush"})
	require.NoError(t, err)
	return rail, wo
}

func TestCreateWorkOrder(t *testing.T) {
	ts := newTestServices(t)
	rail, wo := mixedOrder(t, ts)

	assert.Equal(t, string(domain.WorkOrderStatusDraft), wo.Status)
	assert.Equal(t, string(domain.PhaseGathering), wo.Phase)
	assert.Equal(t, "rush", wo.Notes)
	assert.False(t, wo.CanAdvance)

	require.Len(t, wo.GatheringSteps, 2)
	assert.True(t, wo.GatheringSteps[0].IsFromNewStock)
	assert.Equal(t, rail.ID, wo.GatheringSteps[1].SourceRailID)

	require.Len(t, wo.CuttingGroups, 2)
	assert.Equal(t, rail.ID, wo.CuttingGroups[0].SourceRailID)
	assert.Equal(t, 1800, wo.CuttingGroups[0].TotalCutLength)
	assert.Equal(t, 200, wo.CuttingGroups[0].Remaining)
	assert.Len(t, wo.CuttingGroups[0].Steps, 3)

	assert.Equal(t, 4, wo.Progress.Cutting.Total)
	assert.Len(t, ts.pool(t), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.WorkOrderTransition.WithLabelValues("application-test", "created")))
}

func TestCreateWorkOrder_Rejections(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: "missing"})
	assertAppStatus(t, err, http.StatusNotFound)

	empty := ts.createPlan(t)
	_, err = ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: empty.ID})
	assertAppStatus(t, err, http.StatusBadRequest)

	tooLong := ts.createPlan(t, piece(7000, 1, "beam", typeA))
	_, err = ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: tooLong.ID})
	assertAppStatus(t, err, http.StatusBadRequest)

	orders, err := ts.workOrders.ListWorkOrders(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestWorkOrder_FullLifecycle(t *testing.T) {
	ts := newTestServices(t)
	ctx := logging.ContextWithOperator(context.Background(), "maria")
	rail, wo := mixedOrder(t, ts)

	// advancing an incomplete phase changes nothing
	same, err := ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PhaseGathering), same.Phase)

	// gathering out of order is rejected
	_, err = ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[1].ID})
	assertAppStatus(t, err, http.StatusConflict)

	// fetching the new-stock rail brings it into the pool
	got, err := ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[0].ID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.WorkOrderStatusInProgress), got.Status)
	require.NotNil(t, got.StartedAt)
	liveID := got.GatheringSteps[0].LiveRailID
	require.NotEmpty(t, liveID)

	live, err := ts.inventory.GetRail(ctx, liveID)
	require.NoError(t, err)
	assert.Equal(t, 1000, live.Length)
	assert.Equal(t, "30x3", live.RailType.Label)
	assert.Len(t, ts.pool(t), 2)

	_, err = ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[0].ID})
	assertAppStatus(t, err, http.StatusConflict)

	_, err = ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[1].ID})
	require.NoError(t, err)
	assert.Len(t, ts.pool(t), 2)

	got, err = ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PhaseCutting), got.Phase)

	// cutting groups are confirmed in order
	newStockGroup := got.CuttingGroups[1].SourceRailID
	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: newStockGroup})
	assertAppStatus(t, err, http.StatusConflict)

	got, err = ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: rail.ID})
	require.NoError(t, err)
	require.Len(t, got.ExecutedCuts, 3)
	assert.Equal(t, "maria", got.ExecutedCuts[0].ExecutedBy)

	_, err = ts.inventory.GetRail(ctx, rail.ID)
	assertAppStatus(t, err, http.StatusNotFound)
	assert.Equal(t, []int{200}, ts.notifier.lengths)

	got, err = ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: newStockGroup, ExecutedBy: "joao"})
	require.NoError(t, err)
	assert.Equal(t, "joao", got.ExecutedCuts[3].ExecutedBy)
	assert.Equal(t, []int{200, 600}, ts.notifier.lengths)

	_, err = ts.inventory.GetRail(ctx, liveID)
	assertAppStatus(t, err, http.StatusNotFound)

	pool := ts.pool(t)
	require.Len(t, pool, 2)
	byLength := map[int]domain.Rail{}
	for _, r := range pool {
		assert.True(t, r.IsRemainder)
		byLength[r.Length] = r
	}
	assert.Equal(t, rail.ID, byLength[200].OriginalRailID)
	assert.Equal(t, typeA, byLength[200].Type())
	assert.Equal(t, liveID, byLength[600].OriginalRailID)
	assert.Equal(t, typeB, byLength[600].Type())

	got, err = ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PhaseReturning), got.Phase)

	got, err = ts.workOrders.ConfirmReturn(ctx, ConfirmReturnCommand{WorkOrderID: wo.ID, Notes: "box 1 full"})
	require.NoError(t, err)
	assert.True(t, got.ReturnConfirmation.Confirmed)
	assert.True(t, got.CanAdvance)

	got, err = ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PhaseCompleted), got.Phase)
	assert.Equal(t, string(domain.WorkOrderStatusCompleted), got.Status)
	require.NotNil(t, got.CompletedAt)

	_, err = ts.workOrders.CancelWorkOrder(ctx, wo.ID)
	assertAppStatus(t, err, http.StatusConflict)
}

func TestConfirmCuttingGroup_WasteIsNotStored(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	rail := ts.addRail(t, 1000, typeA)
	plan := ts.createPlan(t, piece(950, 1, "post", typeA))

	wo, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: plan.ID})
	require.NoError(t, err)
	_, err = ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[0].ID})
	require.NoError(t, err)
	_, err = ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)

	got, err := ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: rail.ID})
	require.NoError(t, err)
	assert.True(t, got.CuttingGroups[0].IsWaste)
	assert.Empty(t, ts.pool(t))
	assert.Empty(t, ts.notifier.lengths)
}

func TestConfirmCuttingGroup_MatchesReplacementRail(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	rail := ts.addRail(t, 3000, typeA)
	plan := ts.createPlan(t, piece(1000, 1, "rail", typeA))

	wo, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: plan.ID})
	require.NoError(t, err)
	_, err = ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[0].ID})
	require.NoError(t, err)
	_, err = ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)

	// the planned rail was swapped for an identical bar before cutting
	require.NoError(t, ts.inventory.RemoveRail(ctx, RemoveRailCommand{RailID: rail.ID}))
	replacement := ts.addRail(t, 3000, typeA)
	other := ts.addRail(t, 3000, typeB)

	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: rail.ID})
	require.NoError(t, err)

	pool := ts.pool(t)
	require.Len(t, pool, 2)
	assert.Equal(t, other.ID, pool[0].ID)
	assert.True(t, pool[1].IsRemainder)
	assert.Equal(t, 2000, pool[1].Length)
	assert.Equal(t, replacement.ID, pool[1].OriginalRailID)
}

func TestCancelWorkOrder_KeepsAppliedCuts(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	rail, wo := mixedOrder(t, ts)

	for _, step := range wo.GatheringSteps {
		_, err := ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: step.ID})
		require.NoError(t, err)
	}
	_, err := ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: rail.ID})
	require.NoError(t, err)

	cancelled, err := ts.workOrders.CancelWorkOrder(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.WorkOrderStatusCancelled), cancelled.Status)
	assert.Equal(t, string(domain.PhaseCutting), cancelled.Phase)
	require.NotNil(t, cancelled.CompletedAt)

	// the cut rail stays replaced by its remainder, the new-stock rail stays in the pool
	assert.Len(t, ts.pool(t), 2)
	_, err = ts.inventory.GetRail(ctx, rail.ID)
	assertAppStatus(t, err, http.StatusNotFound)

	_, err = ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	_, err = ts.workOrders.ConfirmReturn(ctx, ConfirmReturnCommand{WorkOrderID: wo.ID})
	assertAppStatus(t, err, http.StatusConflict)
}

func TestListWorkOrders_ByPlan(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addRail(t, 6000, typeA)
	first := ts.createPlan(t, piece(500, 1, "a", typeA))
	second := ts.createPlan(t, piece(700, 1, "b", typeA))

	for _, planID := range []string{first.ID, first.ID, second.ID} {
		_, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: planID})
		require.NoError(t, err)
	}

	all, err := ts.workOrders.ListWorkOrders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyFirst, err := ts.workOrders.ListWorkOrders(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, onlyFirst, 2)

	_, err = ts.workOrders.GetWorkOrder(ctx, "missing")
	assertAppStatus(t, err, http.StatusNotFound)
}
