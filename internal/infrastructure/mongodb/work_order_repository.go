package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/pkg/cloudevents"
	"github.com/tiagodcc/ikts/pkg/metrics"
	pkgmongo "github.com/tiagodcc/ikts/pkg/mongodb"
	"github.com/tiagodcc/ikts/pkg/outbox"
	outboxMongo "github.com/tiagodcc/ikts/pkg/outbox/mongodb"
)

const workOrdersCollection = "work_orders"

// WorkOrderRepository stores work orders with their domain events in a
// single transaction
type WorkOrderRepository struct {
	collection   mongoCollection
	db           mongoDatabase
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
	metrics      *metrics.Metrics
}

// NewWorkOrderRepository creates a new WorkOrderRepository and ensures its indexes
func NewWorkOrderRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) *WorkOrderRepository {
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	repo := newWorkOrderRepository(databaseWrapper{db: db}, outboxRepo, eventFactory, m)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)
	_ = outboxRepo.EnsureIndexes(ctx)

	return repo
}

func newWorkOrderRepository(db mongoDatabase, outboxRepo outbox.Repository, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) *WorkOrderRepository {
	return &WorkOrderRepository{
		collection:   db.Collection(workOrdersCollection),
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		metrics:      m,
	}
}

func (r *WorkOrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the work order, writes its pending events to the outbox and
// clears them from the aggregate
func (r *WorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder) (err error) {
	defer pkgmongo.Observe(r.metrics, workOrdersCollection, "save", time.Now(), &err)

	err = inTransaction(ctx, r.db, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		if _, err := r.collection.UpdateOne(sessCtx, pkgmongo.ByID(wo.ID), bson.M{"$set": wo}, opts); err != nil {
			return fmt.Errorf("failed to save work order: %w", err)
		}

		if len(wo.GetDomainEvents()) > 0 {
			outboxEvents, err := workOrderOutboxEvents(sessCtx, r.eventFactory, wo)
			if err != nil {
				return err
			}
			if err := r.outboxRepo.Append(sessCtx, outboxEvents); err != nil {
				return fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}
	// a retried transaction callback must see the same events
	wo.ClearDomainEvents()
	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, workOrderID string) (_ *domain.WorkOrder, err error) {
	defer pkgmongo.Observe(r.metrics, workOrdersCollection, "find", time.Now(), &err)

	var wo domain.WorkOrder
	err = r.collection.FindOne(ctx, pkgmongo.ByID(workOrderID)).Decode(&wo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	wo.ApplyDefaults()
	return &wo, nil
}

// FindByPlanID returns the work orders created from a plan, newest first
func (r *WorkOrderRepository) FindByPlanID(ctx context.Context, planID string) ([]*domain.WorkOrder, error) {
	return r.find(ctx, bson.M{"planId": planID})
}

// FindAll returns all work orders, newest first
func (r *WorkOrderRepository) FindAll(ctx context.Context) ([]*domain.WorkOrder, error) {
	return r.find(ctx, bson.M{})
}

func (r *WorkOrderRepository) find(ctx context.Context, filter bson.M) (_ []*domain.WorkOrder, err error) {
	defer pkgmongo.Observe(r.metrics, workOrdersCollection, "find", time.Now(), &err)

	opts := options.Find().SetSort(pkgmongo.SortDescending("createdAt"))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.WorkOrder, 0)
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	for _, wo := range orders {
		wo.ApplyDefaults()
	}
	return orders, nil
}
