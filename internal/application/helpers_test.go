package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/internal/infrastructure/store"
	apperrors "github.com/tiagodcc/ikts/pkg/errors"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
)

var (
	typeA = domain.RailType{Width: 40, Thickness: 5}
	typeB = domain.RailType{Width: 30, Thickness: 3}
)

type recordingNotifier struct {
	lengths []int
}

func (n *recordingNotifier) SignalRemainder(_ context.Context, length int) {
	n.lengths = append(n.lengths, length)
}

// failingRailRepository fails the operations it has an error for
type failingRailRepository struct {
	domain.RailRepository
	saveErr   error
	deleteErr error
	findErr   error
}

func (r *failingRailRepository) Save(ctx context.Context, rail *domain.Rail, events ...domain.DomainEvent) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.RailRepository.Save(ctx, rail, events...)
}

func (r *failingRailRepository) Delete(ctx context.Context, railID string, events ...domain.DomainEvent) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.RailRepository.Delete(ctx, railID, events...)
}

func (r *failingRailRepository) FindAll(ctx context.Context) ([]*domain.Rail, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.RailRepository.FindAll(ctx)
}

// failingWorkOrderRepository fails the next save of a work order that
// matches failWhen, then behaves normally
type failingWorkOrderRepository struct {
	domain.WorkOrderRepository
	failWhen func(*domain.WorkOrder) bool
	failed   int
}

func (r *failingWorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder) error {
	if r.failed == 0 && r.failWhen != nil && r.failWhen(wo) {
		r.failed++
		return errors.New("disk full")
	}
	return r.WorkOrderRepository.Save(ctx, wo)
}

type testServices struct {
	store      *store.Store
	rails      domain.RailRepository
	notifier   *recordingNotifier
	metrics    *metrics.Metrics
	inventory  *InventoryApplicationService
	plans      *PlanApplicationService
	workOrders *WorkOrderApplicationService
	transfer   *TransferApplicationService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	return newTestServicesWithRails(t, nil)
}

func newTestServicesWithRails(t *testing.T, wrap func(domain.RailRepository) domain.RailRepository) *testServices {
	t.Helper()
	return newWrappedTestServices(t, wrap, nil, nil)
}

// newWrappedTestServices builds the services over a memory-only store.
// The wrap functions may decorate the repositories; a nil notifier records
// signals in memory.
func newWrappedTestServices(
	t *testing.T,
	wrapRails func(domain.RailRepository) domain.RailRepository,
	wrapWorkOrders func(domain.WorkOrderRepository) domain.WorkOrderRepository,
	notifier domain.RemainderNotifier,
) *testServices {
	t.Helper()

	logger := logging.NewNop()
	s, err := store.Open(nil, logger)
	require.NoError(t, err)

	m := metrics.New(metrics.DefaultConfig("application-test"))
	var rails domain.RailRepository = store.NewRailRepository(s.Rails, m, logger)
	if wrapRails != nil {
		rails = wrapRails(rails)
	}
	var orders domain.WorkOrderRepository = store.NewWorkOrderRepository(s.WorkOrders, m, logger)
	if wrapWorkOrders != nil {
		orders = wrapWorkOrders(orders)
	}

	settings := domain.DefaultPlannerSettings()
	recorder := &recordingNotifier{}
	if notifier == nil {
		notifier = recorder
	}
	inventory := NewInventoryApplicationService(rails, notifier, m, logger)
	plans := NewPlanApplicationService(store.NewPlanRepository(s.Plans, m), inventory, settings, m, logger)
	workOrders := NewWorkOrderApplicationService(orders, plans, inventory, settings, m, logger)

	return &testServices{
		store:      s,
		rails:      rails,
		notifier:   recorder,
		metrics:    m,
		inventory:  inventory,
		plans:      plans,
		workOrders: workOrders,
		transfer:   NewTransferApplicationService(plans, inventory, logger),
	}
}

func (ts *testServices) addRail(t *testing.T, length int, railType domain.RailType) *RailDTO {
	t.Helper()
	rail, err := ts.inventory.AddRail(context.Background(), AddRailCommand{
		Length:    length,
		Width:     railType.Width,
		Thickness: railType.Thickness,
	})
	require.NoError(t, err)
	return rail
}

func (ts *testServices) createPlan(t *testing.T, pieces ...PieceCommand) *PlanDTO {
	t.Helper()
	ctx := context.Background()
	plan, err := ts.plans.CreatePlan(ctx, CreatePlanCommand{Name: "Cabinet frame"})
	require.NoError(t, err)
	for _, p := range pieces {
		p.PlanID = plan.ID
		_, err := ts.plans.AddPiece(ctx, p)
		require.NoError(t, err)
	}
	plan, err = ts.plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	return plan
}

func (ts *testServices) pool(t *testing.T) []domain.Rail {
	t.Helper()
	rails, err := ts.inventory.Snapshot(context.Background())
	require.NoError(t, err)
	return rails
}

func piece(length, quantity int, purpose string, railType domain.RailType) PieceCommand {
	return PieceCommand{
		Length:    length,
		Quantity:  quantity,
		Purpose:   purpose,
		Width:     railType.Width,
		Thickness: railType.Thickness,
	}
}

func assertAppStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected an AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
}
