package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/internal/infrastructure/indicator"
	"github.com/tiagodcc/ikts/pkg/logging"
)

func failingOrders(failWhen func(*domain.WorkOrder) bool) func(domain.WorkOrderRepository) domain.WorkOrderRepository {
	return func(repo domain.WorkOrderRepository) domain.WorkOrderRepository {
		return &failingWorkOrderRepository{WorkOrderRepository: repo, failWhen: failWhen}
	}
}

// startCutting gathers every rail of wo and enters the cutting phase
func startCutting(t *testing.T, ts *testServices, wo *WorkOrderDTO) *WorkOrderDTO {
	t.Helper()
	ctx := context.Background()
	for _, step := range wo.GatheringSteps {
		_, err := ts.workOrders.ConfirmGatheringStep(ctx, ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: step.ID})
		require.NoError(t, err)
	}
	got, err := ts.workOrders.AdvancePhase(ctx, wo.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.PhaseCutting), got.Phase)
	return got
}

func TestConfirmCuttingGroup_RetryAfterFailedSave(t *testing.T) {
	ts := newWrappedTestServices(t, nil, failingOrders(func(wo *domain.WorkOrder) bool {
		return len(wo.ExecutedCuts) > 0
	}), nil)
	ctx := context.Background()

	first := ts.addRail(t, 1000, typeA)
	second := ts.addRail(t, 1000, typeA)
	plan := ts.createPlan(t, piece(700, 1, "post", typeA))
	wo, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: plan.ID})
	require.NoError(t, err)
	wo = startCutting(t, ts, wo)

	cutFrom := wo.CuttingGroups[0].SourceRailID
	untouched := second.ID
	if cutFrom == second.ID {
		untouched = first.ID
	}

	cmd := ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: cutFrom}
	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, cmd)
	require.Error(t, err)

	got, err := ts.workOrders.ConfirmCuttingGroup(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, got.CuttingGroups[0].Confirmed)
	assert.Len(t, got.ExecutedCuts, 1)

	pool := ts.pool(t)
	require.Len(t, pool, 2)
	ids := []string{pool[0].ID, pool[1].ID}
	assert.Contains(t, ids, untouched)

	var remainders []domain.Rail
	for _, r := range pool {
		if r.IsRemainder {
			remainders = append(remainders, r)
		}
	}
	require.Len(t, remainders, 1)
	assert.Equal(t, 300, remainders[0].Length)
	assert.Equal(t, cutFrom, remainders[0].OriginalRailID)
	assert.Equal(t, []int{300}, ts.notifier.lengths)
}

func TestConfirmCuttingGroup_RetryAfterFailedSave_WasteGroup(t *testing.T) {
	ts := newWrappedTestServices(t, nil, failingOrders(func(wo *domain.WorkOrder) bool {
		return len(wo.ExecutedCuts) > 0
	}), nil)
	ctx := context.Background()

	ts.addRail(t, 1000, typeA)
	ts.addRail(t, 1000, typeA)
	plan := ts.createPlan(t, piece(950, 1, "post", typeA))
	wo, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: plan.ID})
	require.NoError(t, err)
	wo = startCutting(t, ts, wo)

	cmd := ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: wo.CuttingGroups[0].SourceRailID}
	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, cmd)
	require.Error(t, err)
	require.Len(t, ts.pool(t), 1)

	// the rail cut by the failed attempt is not matched to the other bar
	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, cmd)
	require.NoError(t, err)
	assert.Len(t, ts.pool(t), 1)
}

func TestConfirmGatheringStep_RetryAfterFailedSave(t *testing.T) {
	ts := newWrappedTestServices(t, nil, failingOrders(func(wo *domain.WorkOrder) bool {
		return wo.GatheringSteps[0].Confirmed
	}), nil)
	ctx := context.Background()

	plan := ts.createPlan(t, piece(400, 1, "brace", typeB))
	wo, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: plan.ID})
	require.NoError(t, err)
	require.True(t, wo.GatheringSteps[0].IsFromNewStock)

	cmd := ConfirmGatheringStepCommand{WorkOrderID: wo.ID, StepID: wo.GatheringSteps[0].ID}
	_, err = ts.workOrders.ConfirmGatheringStep(ctx, cmd)
	require.Error(t, err)

	got, err := ts.workOrders.ConfirmGatheringStep(ctx, cmd)
	require.NoError(t, err)

	pool := ts.pool(t)
	require.Len(t, pool, 1)
	assert.Equal(t, got.GatheringSteps[0].LiveRailID, pool[0].ID)
}

func TestConfirmCuttingGroup_DoesNotWaitForIndicator(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		mu.Lock()
		calls = append(calls, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := indicator.NewClient(indicator.Config{BaseURL: srv.URL}, nil, logging.NewNop())
	ts := newWrappedTestServices(t, nil, nil, client)
	ctx := context.Background()

	ts.addRail(t, 1000, typeA)
	plan := ts.createPlan(t, piece(700, 1, "post", typeA))
	wo, err := ts.workOrders.CreateWorkOrder(ctx, CreateWorkOrderCommand{PlanID: plan.ID})
	require.NoError(t, err)
	wo = startCutting(t, ts, wo)

	start := time.Now()
	_, err = ts.workOrders.ConfirmCuttingGroup(ctx, ConfirmCuttingGroupCommand{WorkOrderID: wo.ID, SourceRailID: wo.CuttingGroups[0].SourceRailID})
	elapsed := time.Since(start)
	close(release)
	client.Wait()

	require.NoError(t, err)
	assert.Less(t, elapsed, 500*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/boxes/1/led"}, calls)
}
