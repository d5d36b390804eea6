package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestStartSpan_EndSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "ListingService", "Search")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))
}

func TestTrackQuery(t *testing.T) {
	TrackQuery("test_op", "test_table")()
	assert.Equal(t, 1, testutil.CollectAndCount(DatabaseQueryLatency, "bazar_database_query_latency_seconds"))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(FavoritesToggled.WithLabelValues("added"))
	FavoritesToggled.WithLabelValues("added").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FavoritesToggled.WithLabelValues("added")))
}
