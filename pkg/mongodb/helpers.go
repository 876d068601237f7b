package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tiagodcc/ikts/pkg/metrics"
)

// BackendLabel is the store backend label used in metrics
const BackendLabel = "mongodb"

// Now returns the current time in UTC truncated to the millisecond
// precision BSON dates carry
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ByID builds the primary key filter
func ByID(id string) bson.M {
	return bson.M{"_id": id}
}

// SortAscending creates an ascending sort option
func SortAscending(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// Observe records the duration and outcome of a collection operation.
// Use as: defer mongodb.Observe(m, "rails", "find", time.Now(), &err)
func Observe(m *metrics.Metrics, collection, operation string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	success := errp == nil || *errp == nil
	m.RecordStoreOperation(BackendLabel, collection, operation, success, time.Since(start))
}
