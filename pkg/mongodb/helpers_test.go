package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tiagodcc/ikts/pkg/metrics"
)

func TestNow_MillisecondPrecision(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Millisecond))
}

func TestSortHelpers(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "createdAt", Value: 1}}, SortAscending("createdAt"))
	assert.Equal(t, bson.D{{Key: "length", Value: -1}}, SortDescending("length"))
	assert.Equal(t, bson.M{"_id": "abc"}, ByID("abc"))
}

func TestObserve_RecordsOutcome(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("mongo-test"))

	var err error
	Observe(m, "rails", "find", time.Now(), &err)
	failed := errors.New("boom")
	Observe(m, "rails", "find", time.Now(), &failed)
	Observe(nil, "rails", "find", time.Now(), &err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.StoreOperations))
}
