// Package mongodb stores outbox events in a MongoDB collection.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tiagodcc/ikts/pkg/outbox"
)

// CollectionName is the collection holding outbox events
const CollectionName = "outbox_events"

// publishedRetention is how long delivered events survive before the TTL index drops them
const publishedRetention = 7 * 24 * time.Hour

// OutboxRepository implements outbox.Repository
type OutboxRepository struct {
	collection *mongo.Collection
}

// NewOutboxRepository creates a repository on db
func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(CollectionName)}
}

// Append inserts events. Pass a session context to join a transaction.
func (r *OutboxRepository) Append(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]any, 0, len(events))
	for _, event := range events {
		docs = append(docs, event)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("append outbox events: %w", err)
	}
	return nil
}

// Pending returns undelivered events below their retry budget, oldest first
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	filter := bson.M{
		"publishedAt": bson.M{"$exists": false},
		"$expr":       bson.M{"$lt": bson.A{"$retryCount", "$maxRetries"}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*outbox.OutboxEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	return events, nil
}

// MarkPublished stamps the delivery time on an event
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.update(ctx, eventID, bson.M{"$set": bson.M{"publishedAt": time.Now().UTC()}})
}

// RecordFailure counts a failed delivery attempt and keeps its reason
func (r *OutboxRepository) RecordFailure(ctx context.Context, eventID, reason string) error {
	return r.update(ctx, eventID, bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastError": reason},
	})
}

func (r *OutboxRepository) update(ctx context.Context, eventID string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		return fmt.Errorf("update outbox event %s: %w", eventID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox event %s not found", eventID)
	}
	return nil
}

// EnsureIndexes creates the pending-scan index and the retention TTL index
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_pending"),
		},
		{
			Keys:    bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().SetName("idx_published_ttl").SetExpireAfterSeconds(int32(publishedRetention.Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}
