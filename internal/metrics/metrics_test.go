package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, pagesFetchedTotal)
	require.NotNil(t, gamesUpsertedTotal)
	require.NotNil(t, syncRunsTotal)
}

func TestObservers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("unavailable"))
	ObservePageFetch(false, 50*time.Millisecond)
	after := testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("unavailable"))
	require.Equal(t, before+1, after)

	before = testutil.ToFloat64(gamesUpsertedTotal.WithLabelValues("created"))
	ObserveUpsert(true)
	after = testutil.ToFloat64(gamesUpsertedTotal.WithLabelValues("created"))
	require.Equal(t, before+1, after)

	before = testutil.ToFloat64(syncRunsTotal.WithLabelValues("done"))
	ObserveSyncRun("done")
	after = testutil.ToFloat64(syncRunsTotal.WithLabelValues("done"))
	require.Equal(t, before+1, after)
}

func TestHandlerServesMetrics(t *testing.T) {
	require.NotNil(t, Handler())
}
