package domain

import "context"

// Repositories return (nil, nil) from FindByID when nothing matches.

// RailRepository persists the live rail pool. Events passed to Save and
// Delete are recorded with the mutation when the backend supports it.
type RailRepository interface {
	Save(ctx context.Context, rail *Rail, events ...DomainEvent) error
	FindByID(ctx context.Context, railID string) (*Rail, error)
	FindAll(ctx context.Context) ([]*Rail, error)
	Delete(ctx context.Context, railID string, events ...DomainEvent) error
}

// PlanRepository persists plans
type PlanRepository interface {
	Save(ctx context.Context, plan *Plan) error
	FindByID(ctx context.Context, planID string) (*Plan, error)
	FindAll(ctx context.Context) ([]*Plan, error)
	Delete(ctx context.Context, planID string) error
}

// WorkOrderRepository persists work orders together with their pending
// domain events. Loaded work orders have ApplyDefaults applied.
type WorkOrderRepository interface {
	Save(ctx context.Context, workOrder *WorkOrder) error
	FindByID(ctx context.Context, workOrderID string) (*WorkOrder, error)
	FindByPlanID(ctx context.Context, planID string) ([]*WorkOrder, error)
	FindAll(ctx context.Context) ([]*WorkOrder, error)
}

// RemainderNotifier signals the storage box a new remainder belongs in.
// Implementations are best effort and never fail the caller.
type RemainderNotifier interface {
	SignalRemainder(ctx context.Context, length int)
}
