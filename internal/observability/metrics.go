// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bazar_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ListingSearchLatency records end-to-end listing search latency.
	ListingSearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bazar_listing_search_latency_seconds",
		Help:    "Listing search latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ListingsWritten counts listing mutations by action (create, update, delete).
	ListingsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazar_listings_written_total",
		Help: "Total number of listing mutations by action",
	}, []string{"action"})

	// FavoritesToggled counts favorite toggles by outcome (added, removed).
	FavoritesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazar_favorites_toggled_total",
		Help: "Total number of favorite toggles by outcome",
	}, []string{"outcome"})

	// MessagesSent counts persisted messages.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazar_messages_sent_total",
		Help: "Total number of messages sent",
	})

	// ImagesStored counts stored uploads by backend and result.
	ImagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazar_images_stored_total",
		Help: "Total number of image uploads by storage backend and result",
	}, []string{"backend", "result"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazar_cache_lookups_total",
		Help: "Total number of cache-aside lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a func that records the elapsed time for a query when called.
//
//	defer observability.TrackQuery("search", "listings")()
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveSearch records the latency of a listing search started at start.
func ObserveSearch(start time.Time) {
	ListingSearchLatency.Observe(time.Since(start).Seconds())
}
