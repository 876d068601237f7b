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

const railsCollection = "rails"

// RailRepository stores the live rail pool. Inventory events are written
// to the outbox in the same transaction as the rail change.
type RailRepository struct {
	collection   mongoCollection
	db           mongoDatabase
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
	metrics      *metrics.Metrics
}

// NewRailRepository creates a new RailRepository and ensures its indexes
func NewRailRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) *RailRepository {
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	repo := newRailRepository(databaseWrapper{db: db}, outboxRepo, eventFactory, m)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)
	_ = outboxRepo.EnsureIndexes(ctx)

	return repo
}

func newRailRepository(db mongoDatabase, outboxRepo outbox.Repository, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) *RailRepository {
	return &RailRepository{
		collection:   db.Collection(railsCollection),
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		metrics:      m,
	}
}

func (r *RailRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "width", Value: 1}, {Key: "thickness", Value: 1}, {Key: "length", Value: 1}}},
		{Keys: bson.D{{Key: "isRemainder", Value: 1}}},
		{Keys: bson.D{{Key: "originalRailId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts a rail and records events in the outbox
func (r *RailRepository) Save(ctx context.Context, rail *domain.Rail, events ...domain.DomainEvent) (err error) {
	defer pkgmongo.Observe(r.metrics, railsCollection, "save", time.Now(), &err)

	return inTransaction(ctx, r.db, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		if _, err := r.collection.UpdateOne(sessCtx, pkgmongo.ByID(rail.ID), bson.M{"$set": rail}, opts); err != nil {
			return fmt.Errorf("failed to save rail: %w", err)
		}
		return r.saveEvents(sessCtx, rail.ID, events)
	})
}

// Delete removes a rail and records events in the outbox
func (r *RailRepository) Delete(ctx context.Context, railID string, events ...domain.DomainEvent) (err error) {
	defer pkgmongo.Observe(r.metrics, railsCollection, "delete", time.Now(), &err)

	return inTransaction(ctx, r.db, func(sessCtx context.Context) error {
		if _, err := r.collection.DeleteOne(sessCtx, pkgmongo.ByID(railID)); err != nil {
			return fmt.Errorf("failed to delete rail: %w", err)
		}
		return r.saveEvents(sessCtx, railID, events)
	})
}

func (r *RailRepository) saveEvents(ctx context.Context, railID string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	outboxEvents, err := railOutboxEvents(ctx, r.eventFactory, railID, events)
	if err != nil {
		return err
	}
	if err := r.outboxRepo.Append(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

func (r *RailRepository) FindByID(ctx context.Context, railID string) (_ *domain.Rail, err error) {
	defer pkgmongo.Observe(r.metrics, railsCollection, "find", time.Now(), &err)

	var rail domain.Rail
	err = r.collection.FindOne(ctx, pkgmongo.ByID(railID)).Decode(&rail)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rail, nil
}

// FindAll returns the pool oldest first
func (r *RailRepository) FindAll(ctx context.Context) (_ []*domain.Rail, err error) {
	defer pkgmongo.Observe(r.metrics, railsCollection, "find", time.Now(), &err)

	opts := options.Find().SetSort(pkgmongo.SortAscending("createdAt"))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rails := make([]*domain.Rail, 0)
	err = cursor.All(ctx, &rails)
	return rails, err
}
