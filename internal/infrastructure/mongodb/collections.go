package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The narrow interfaces below cover the driver calls the repositories
// make, so tests can swap in fakes.

type mongoCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Indexes() mongoIndexView
}

type mongoSingleResult interface {
	Decode(v interface{}) error
}

type mongoCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

type mongoIndexView interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

type mongoDatabase interface {
	Collection(name string, opts ...*options.CollectionOptions) mongoCollection
	Client() mongoSessionClient
}

type mongoSessionClient interface {
	StartSession(opts ...*options.SessionOptions) (mongoSession, error)
}

type mongoSession interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EndSession(ctx context.Context)
}

type databaseWrapper struct {
	db *mongo.Database
}

func (w databaseWrapper) Collection(name string, opts ...*options.CollectionOptions) mongoCollection {
	return collectionWrapper{collection: w.db.Collection(name, opts...)}
}

func (w databaseWrapper) Client() mongoSessionClient {
	return clientWrapper{client: w.db.Client()}
}

type collectionWrapper struct {
	collection *mongo.Collection
}

func (w collectionWrapper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.collection.UpdateOne(ctx, filter, update, opts...)
}

func (w collectionWrapper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult {
	return w.collection.FindOne(ctx, filter, opts...)
}

func (w collectionWrapper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error) {
	cursor, err := w.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (w collectionWrapper) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return w.collection.DeleteOne(ctx, filter, opts...)
}

func (w collectionWrapper) Indexes() mongoIndexView {
	return w.collection.Indexes()
}

type clientWrapper struct {
	client *mongo.Client
}

func (w clientWrapper) StartSession(opts ...*options.SessionOptions) (mongoSession, error) {
	session, err := w.client.StartSession(opts...)
	if err != nil {
		return nil, err
	}
	return sessionWrapper{session: session}, nil
}

type sessionWrapper struct {
	session mongo.Session
}

func (w sessionWrapper) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := w.session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (w sessionWrapper) EndSession(ctx context.Context) {
	w.session.EndSession(ctx)
}

// inTransaction runs fn inside a session transaction
func inTransaction(ctx context.Context, db mongoDatabase, fn func(ctx context.Context) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	if err := session.WithTransaction(ctx, fn); err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}
