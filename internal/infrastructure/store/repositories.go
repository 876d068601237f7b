package store

import (
	"context"
	"time"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
)

// BackendLabel is the store backend label used in metrics
const BackendLabel = "file"

// Collection names, also the file names under the data directory
const (
	RailsCollection      = "rails"
	PlansCollection      = "plans"
	WorkOrdersCollection = "work_orders"
)

// Store bundles the three collections of the file backend
type Store struct {
	Rails      *Collection[domain.Rail]
	Plans      *Collection[domain.Plan]
	WorkOrders *Collection[domain.WorkOrder]
}

// Open loads all collections through persister. A nil persister gives a
// memory-only store.
func Open(persister Persister, logger *logging.Logger) (*Store, error) {
	rails, err := NewCollection(CollectionConfig[domain.Rail]{
		Name:      RailsCollection,
		Key:       func(r domain.Rail) string { return r.ID },
		Persister: persister,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	plans, err := NewCollection(CollectionConfig[domain.Plan]{
		Name:      PlansCollection,
		Key:       func(p domain.Plan) string { return p.ID },
		Clone:     func(p domain.Plan) domain.Plan { return p.Clone() },
		Persister: persister,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	workOrders, err := NewCollection(CollectionConfig[domain.WorkOrder]{
		Name:      WorkOrdersCollection,
		Key:       func(w domain.WorkOrder) string { return w.ID },
		Clone:     func(w domain.WorkOrder) domain.WorkOrder { return w.Clone() },
		Persister: persister,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &Store{Rails: rails, Plans: plans, WorkOrders: workOrders}, nil
}

func observe(m *metrics.Metrics, collection, operation string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	m.RecordStoreOperation(BackendLabel, collection, operation, errp == nil || *errp == nil, time.Since(start))
}

// RailRepository implements domain.RailRepository over a collection.
// Events are not stored by this backend; they are logged at debug level.
type RailRepository struct {
	rails   *Collection[domain.Rail]
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewRailRepository creates a new RailRepository
func NewRailRepository(rails *Collection[domain.Rail], m *metrics.Metrics, logger *logging.Logger) *RailRepository {
	return &RailRepository{rails: rails, metrics: m, logger: logger}
}

func (r *RailRepository) Save(ctx context.Context, rail *domain.Rail, events ...domain.DomainEvent) (err error) {
	defer observe(r.metrics, RailsCollection, "save", time.Now(), &err)
	if err = r.rails.Put(*rail); err != nil {
		return err
	}
	logEvents(ctx, r.logger, events)
	return nil
}

func (r *RailRepository) FindByID(ctx context.Context, railID string) (*domain.Rail, error) {
	defer observe(r.metrics, RailsCollection, "find", time.Now(), nil)
	rail, ok := r.rails.Get(railID)
	if !ok {
		return nil, nil
	}
	return &rail, nil
}

func (r *RailRepository) FindAll(ctx context.Context) ([]*domain.Rail, error) {
	defer observe(r.metrics, RailsCollection, "find", time.Now(), nil)
	rails := r.rails.List()
	out := make([]*domain.Rail, len(rails))
	for i := range rails {
		out[i] = &rails[i]
	}
	return out, nil
}

func (r *RailRepository) Delete(ctx context.Context, railID string, events ...domain.DomainEvent) (err error) {
	defer observe(r.metrics, RailsCollection, "delete", time.Now(), &err)
	if _, err = r.rails.Delete(railID); err != nil {
		return err
	}
	logEvents(ctx, r.logger, events)
	return nil
}

// PlanRepository implements domain.PlanRepository over a collection
type PlanRepository struct {
	plans   *Collection[domain.Plan]
	metrics *metrics.Metrics
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(plans *Collection[domain.Plan], m *metrics.Metrics) *PlanRepository {
	return &PlanRepository{plans: plans, metrics: m}
}

func (r *PlanRepository) Save(ctx context.Context, plan *domain.Plan) (err error) {
	defer observe(r.metrics, PlansCollection, "save", time.Now(), &err)
	return r.plans.Put(*plan)
}

func (r *PlanRepository) FindByID(ctx context.Context, planID string) (*domain.Plan, error) {
	defer observe(r.metrics, PlansCollection, "find", time.Now(), nil)
	plan, ok := r.plans.Get(planID)
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (r *PlanRepository) FindAll(ctx context.Context) ([]*domain.Plan, error) {
	defer observe(r.metrics, PlansCollection, "find", time.Now(), nil)
	plans := r.plans.List()
	out := make([]*domain.Plan, len(plans))
	for i := range plans {
		out[i] = &plans[i]
	}
	return out, nil
}

func (r *PlanRepository) Delete(ctx context.Context, planID string) (err error) {
	defer observe(r.metrics, PlansCollection, "delete", time.Now(), &err)
	_, err = r.plans.Delete(planID)
	return err
}

// WorkOrderRepository implements domain.WorkOrderRepository over a
// collection. Records written by older versions are defaulted on load.
type WorkOrderRepository struct {
	workOrders *Collection[domain.WorkOrder]
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewWorkOrderRepository creates a new WorkOrderRepository
func NewWorkOrderRepository(workOrders *Collection[domain.WorkOrder], m *metrics.Metrics, logger *logging.Logger) *WorkOrderRepository {
	return &WorkOrderRepository{workOrders: workOrders, metrics: m, logger: logger}
}

func (r *WorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder) (err error) {
	defer observe(r.metrics, WorkOrdersCollection, "save", time.Now(), &err)
	if err = r.workOrders.Put(*wo); err != nil {
		return err
	}
	logEvents(ctx, r.logger, wo.GetDomainEvents())
	wo.ClearDomainEvents()
	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	defer observe(r.metrics, WorkOrdersCollection, "find", time.Now(), nil)
	wo, ok := r.workOrders.Get(workOrderID)
	if !ok {
		return nil, nil
	}
	wo.ApplyDefaults()
	return &wo, nil
}

func (r *WorkOrderRepository) FindByPlanID(ctx context.Context, planID string) ([]*domain.WorkOrder, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.WorkOrder, 0)
	for _, wo := range all {
		if wo.PlanID == planID {
			out = append(out, wo)
		}
	}
	return out, nil
}

func (r *WorkOrderRepository) FindAll(ctx context.Context) ([]*domain.WorkOrder, error) {
	defer observe(r.metrics, WorkOrdersCollection, "find", time.Now(), nil)
	orders := r.workOrders.List()
	out := make([]*domain.WorkOrder, len(orders))
	for i := range orders {
		orders[i].ApplyDefaults()
		out[i] = &orders[i]
	}
	return out, nil
}

func logEvents(ctx context.Context, logger *logging.Logger, events []domain.DomainEvent) {
	if logger == nil {
		return
	}
	for _, e := range events {
		logger.WithContext(ctx).Debug("Domain event", "eventType", e.EventType(), "occurredAt", e.OccurredAt())
	}
}
