package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAllocation(t *testing.T) {
	m := New(DefaultConfig("cutplan-test"))

	m.RecordAllocation("preview", 40, 2, 1, 0)
	m.RecordAllocation("work-order", 0, 1, 0, 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AllocationsTotal.WithLabelValues("cutplan-test", "preview")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.NewRailsNeeded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemaindersReused))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UnallocatedPieces))
}

func TestRecordIndicatorSignalAndCuts(t *testing.T) {
	m := New(DefaultConfig("cutplan-test"))

	m.RecordIndicatorSignal(1, false)
	m.RecordRailCut("remainder")
	m.RecordRailCut("remainder")
	m.SetInventoryRails(4, 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.IndicatorSignals.WithLabelValues("cutplan-test", "1", "failure")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RailCuts.WithLabelValues("cutplan-test", "remainder")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.InventoryRails.WithLabelValues("cutplan-test", "remainder")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig("cutplan-test"))
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/rails", http.StatusOK, 5*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cutplan_http_requests_total")
}
