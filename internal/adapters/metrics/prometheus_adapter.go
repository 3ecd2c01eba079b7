package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfa_ttl_cache_lookups_total",
			Help: "TTL cache reads by result (hit, miss, expired, malformed, error).",
		},
		[]string{"result"},
	)

	CacheWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sfa_ttl_cache_write_failures_total",
			Help: "TTL cache writes that the storage substrate rejected.",
		},
	)

	PermissionResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfa_permission_resolutions_total",
			Help: "Permission resolutions by source (slot, mirror, super_admin, remote, denied).",
		},
		[]string{"source"},
	)

	FavoritesMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfa_favorites_mutations_total",
			Help: "Favorites mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	ProductCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfa_product_cache_lookups_total",
			Help: "Product reference cache lookups per product ID by result (hit, miss).",
		},
		[]string{"result"},
	)

	ProductFetchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sfa_product_fetch_failures_total",
			Help: "Product listing batches that failed to load.",
		},
	)

	ProductCacheSizeGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sfa_product_cache_size",
			Help: "Number of products held by the product reference cache.",
		},
	)

	RelayEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfa_relay_events_total",
			Help: "Favorites events crossing the relay by direction (out, in, echo, error).",
		},
		[]string{"direction"},
	)

	ActiveFavoritesStreamsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sfa_active_favorites_streams",
			Help: "Number of open favorites websocket streams.",
		},
	)
)

// IncrementCacheLookup records one TTL cache read.
func IncrementCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncrementCacheWriteFailure records a rejected TTL cache write.
func IncrementCacheWriteFailure() {
	CacheWriteFailuresTotal.Inc()
}

// IncrementPermissionResolution records where a permission set came from.
func IncrementPermissionResolution(source string) {
	PermissionResolutionsTotal.WithLabelValues(source).Inc()
}

// IncrementFavoritesMutation records a favorites mutation attempt.
func IncrementFavoritesMutation(operation, outcome string) {
	FavoritesMutationsTotal.WithLabelValues(operation, outcome).Inc()
}

// AddProductCacheLookups records per-ID hits and misses of one lookup.
func AddProductCacheLookups(hits, misses int) {
	ProductCacheLookupsTotal.WithLabelValues("hit").Add(float64(hits))
	ProductCacheLookupsTotal.WithLabelValues("miss").Add(float64(misses))
}

// IncrementProductFetchFailure records a failed product batch.
func IncrementProductFetchFailure() {
	ProductFetchFailuresTotal.Inc()
}

// SetProductCacheSize publishes the current product cache size.
func SetProductCacheSize(n int) {
	ProductCacheSizeGauge.Set(float64(n))
}

// IncrementRelayEvent records a favorites event crossing the relay.
func IncrementRelayEvent(direction string) {
	RelayEventsTotal.WithLabelValues(direction).Inc()
}

// IncrementActiveFavoritesStreams increments the open stream gauge.
func IncrementActiveFavoritesStreams() {
	ActiveFavoritesStreamsGauge.Inc()
}

// DecrementActiveFavoritesStreams decrements the open stream gauge.
func DecrementActiveFavoritesStreams() {
	ActiveFavoritesStreamsGauge.Dec()
}
