package application

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagodcc/ikts/internal/domain"
)

func TestAddRail(t *testing.T) {
	ts := newTestServices(t)

	rail := ts.addRail(t, 6000, typeA)

	assert.NotEmpty(t, rail.ID)
	assert.Equal(t, 6000, rail.Length)
	assert.Equal(t, "40x5", rail.RailType.Label)
	assert.False(t, rail.IsRemainder)
	assert.Nil(t, rail.Box)
	assert.False(t, rail.CreatedAt.IsZero())
	assert.Len(t, ts.pool(t), 1)
	assert.Empty(t, ts.notifier.lengths)
}

func TestAddRail_Validation(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.inventory.AddRail(context.Background(), AddRailCommand{Length: 0, Width: 40, Thickness: 5})
	assertAppStatus(t, err, http.StatusBadRequest)

	_, err = ts.inventory.AddRail(context.Background(), AddRailCommand{Length: 1000, Width: 0, Thickness: 5})
	assertAppStatus(t, err, http.StatusBadRequest)

	assert.Empty(t, ts.pool(t))
}

func TestCutRail_ReplacesWithRemainder(t *testing.T) {
	ts := newTestServices(t)
	rail := ts.addRail(t, 2000, typeA)

	result, err := ts.inventory.CutRail(context.Background(), CutRailCommand{RailID: rail.ID, CutLength: 600, Purpose: "shelf"})
	require.NoError(t, err)

	assert.False(t, result.Consumed)
	assert.Equal(t, 1400, result.Leftover)
	require.NotNil(t, result.Remainder)
	assert.Equal(t, 1400, result.Remainder.Length)
	assert.True(t, result.Remainder.IsRemainder)
	assert.Equal(t, rail.ID, result.Remainder.OriginalRailID)
	assert.Contains(t, result.Remainder.Notes, "shelf")
	require.NotNil(t, result.Remainder.Box)
	assert.Equal(t, 1, *result.Remainder.Box)

	pool := ts.pool(t)
	require.Len(t, pool, 1)
	assert.Equal(t, result.Remainder.ID, pool[0].ID)
	assert.Equal(t, []int{1400}, ts.notifier.lengths)

	_, err = ts.inventory.GetRail(context.Background(), rail.ID)
	assertAppStatus(t, err, http.StatusNotFound)

	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.RailCuts.WithLabelValues("application-test", "remainder")))
}

func TestCutRail_ZeroLeftoverRemovesRail(t *testing.T) {
	ts := newTestServices(t)
	rail := ts.addRail(t, 1000, typeA)

	result, err := ts.inventory.CutRail(context.Background(), CutRailCommand{RailID: rail.ID, CutLength: 1000})
	require.NoError(t, err)

	assert.True(t, result.Consumed)
	assert.Nil(t, result.Remainder)
	assert.Empty(t, ts.pool(t))
	assert.Empty(t, ts.notifier.lengths)
}

func TestCutRail_InvalidLengthLeavesPoolUntouched(t *testing.T) {
	ts := newTestServices(t)
	rail := ts.addRail(t, 1000, typeA)

	for _, cut := range []int{0, -5, 1001} {
		_, err := ts.inventory.CutRail(context.Background(), CutRailCommand{RailID: rail.ID, CutLength: cut})
		assertAppStatus(t, err, http.StatusBadRequest)
	}

	pool := ts.pool(t)
	require.Len(t, pool, 1)
	assert.Equal(t, rail.ID, pool[0].ID)
	assert.Equal(t, 1000, pool[0].Length)
}

func TestCutRail_UnknownRail(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.inventory.CutRail(context.Background(), CutRailCommand{RailID: "missing", CutLength: 10})
	assertAppStatus(t, err, http.StatusNotFound)
}

func TestCutRail_SaveFailureKeepsOriginal(t *testing.T) {
	failing := &failingRailRepository{}
	ts := newTestServicesWithRails(t, func(r domain.RailRepository) domain.RailRepository {
		failing.RailRepository = r
		return failing
	})
	rail := ts.addRail(t, 2000, typeA)

	failing.saveErr = errors.New("disk full")
	_, err := ts.inventory.CutRail(context.Background(), CutRailCommand{RailID: rail.ID, CutLength: 500})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store remainder")
	pool := ts.pool(t)
	require.Len(t, pool, 1)
	assert.Equal(t, rail.ID, pool[0].ID)
	assert.Empty(t, ts.notifier.lengths)
}

func TestAddRemainder_SignalsBox(t *testing.T) {
	ts := newTestServices(t)

	dto, err := ts.inventory.AddRemainder(context.Background(), AddRemainderCommand{
		Length:         150,
		RailType:       typeB,
		OriginalRailID: "r-old",
	})
	require.NoError(t, err)

	assert.True(t, dto.IsRemainder)
	assert.Equal(t, "r-old", dto.OriginalRailID)
	require.NotNil(t, dto.Box)
	assert.Equal(t, 0, *dto.Box)
	assert.Equal(t, []int{150}, ts.notifier.lengths)
}

func TestAddRemainder_PinnedIdentityIsStoredOnce(t *testing.T) {
	ts := newTestServices(t)
	cmd := AddRemainderCommand{RailID: "rem-1", Length: 450, RailType: typeA, OriginalRailID: "r-old"}

	first, err := ts.inventory.AddRemainder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "rem-1", first.ID)

	cmd.Length = 900
	again, err := ts.inventory.AddRemainder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 450, again.Length)

	require.Len(t, ts.pool(t), 1)
	assert.Equal(t, []int{450}, ts.notifier.lengths)
}

func TestRemoveRail(t *testing.T) {
	ts := newTestServices(t)
	keep := ts.addRail(t, 1000, typeA)
	drop := ts.addRail(t, 2000, typeA)

	require.NoError(t, ts.inventory.RemoveRail(context.Background(), RemoveRailCommand{RailID: drop.ID, Reason: "damaged"}))

	pool := ts.pool(t)
	require.Len(t, pool, 1)
	assert.Equal(t, keep.ID, pool[0].ID)

	err := ts.inventory.RemoveRail(context.Background(), RemoveRailCommand{RailID: drop.ID})
	assertAppStatus(t, err, http.StatusNotFound)
}

func TestListRails_FiltersByType(t *testing.T) {
	ts := newTestServices(t)
	ts.addRail(t, 1000, typeA)
	ts.addRail(t, 2000, typeA)
	ts.addRail(t, 3000, typeB)
	_, err := ts.inventory.AddRemainder(context.Background(), AddRemainderCommand{Length: 400, RailType: typeA})
	require.NoError(t, err)

	all, err := ts.inventory.ListRails(context.Background(), ListRailsQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Rails, 4)
	assert.Equal(t, 3, all.FullLength)
	assert.Equal(t, 1, all.Remainders)
	assert.Equal(t, 6400, all.TotalLength)

	onlyA, err := ts.inventory.ListRails(context.Background(), ListRailsQuery{Width: 40, Thickness: 5})
	require.NoError(t, err)
	assert.Len(t, onlyA.Rails, 3)

	thin, err := ts.inventory.ListRails(context.Background(), ListRailsQuery{Thickness: 3})
	require.NoError(t, err)
	require.Len(t, thin.Rails, 1)
	assert.Equal(t, 3000, thin.Rails[0].Length)
}

func TestSnapshot_IsACopy(t *testing.T) {
	ts := newTestServices(t)
	rail := ts.addRail(t, 2000, typeA)

	snapshot := ts.pool(t)
	snapshot[0].Length = 1

	stored, err := ts.inventory.GetRail(context.Background(), rail.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000, stored.Length)
}

func TestListRails_RepositoryFailure(t *testing.T) {
	failing := &failingRailRepository{findErr: errors.New("connection reset")}
	ts := newTestServicesWithRails(t, func(r domain.RailRepository) domain.RailRepository {
		failing.RailRepository = r
		return failing
	})

	_, err := ts.inventory.ListRails(context.Background(), ListRailsQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list rails")
}
