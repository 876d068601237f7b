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
	"github.com/tiagodcc/ikts/pkg/metrics"
	pkgmongo "github.com/tiagodcc/ikts/pkg/mongodb"
)

const plansCollection = "plans"

// PlanRepository stores plans. Plans emit no events.
type PlanRepository struct {
	collection mongoCollection
	metrics    *metrics.Metrics
}

// NewPlanRepository creates a new PlanRepository and ensures its indexes
func NewPlanRepository(db *mongo.Database, m *metrics.Metrics) *PlanRepository {
	repo := newPlanRepository(databaseWrapper{db: db}, m)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func newPlanRepository(db mongoDatabase, m *metrics.Metrics) *PlanRepository {
	return &PlanRepository{collection: db.Collection(plansCollection), metrics: m}
}

func (r *PlanRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *PlanRepository) Save(ctx context.Context, plan *domain.Plan) (err error) {
	defer pkgmongo.Observe(r.metrics, plansCollection, "save", time.Now(), &err)

	opts := options.Update().SetUpsert(true)
	if _, err = r.collection.UpdateOne(ctx, pkgmongo.ByID(plan.ID), bson.M{"$set": plan}, opts); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) FindByID(ctx context.Context, planID string) (_ *domain.Plan, err error) {
	defer pkgmongo.Observe(r.metrics, plansCollection, "find", time.Now(), &err)

	var plan domain.Plan
	err = r.collection.FindOne(ctx, pkgmongo.ByID(planID)).Decode(&plan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindAll returns plans newest first
func (r *PlanRepository) FindAll(ctx context.Context) (_ []*domain.Plan, err error) {
	defer pkgmongo.Observe(r.metrics, plansCollection, "find", time.Now(), &err)

	opts := options.Find().SetSort(pkgmongo.SortDescending("createdAt"))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := make([]*domain.Plan, 0)
	err = cursor.All(ctx, &plans)
	return plans, err
}

func (r *PlanRepository) Delete(ctx context.Context, planID string) (err error) {
	defer pkgmongo.Observe(r.metrics, plansCollection, "delete", time.Now(), &err)

	if _, err = r.collection.DeleteOne(ctx, pkgmongo.ByID(planID)); err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}
