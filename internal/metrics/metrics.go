// Package metrics exposes Prometheus counters for cache and source behavior.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheHits counts valid cache reads per tier ("memory" or "disk").
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_cache_hits_total",
		Help: "Cache hits by tier",
	}, []string{"tier"})

	// CacheMisses counts reads that fell through both tiers.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketdata_cache_misses_total",
		Help: "Cache misses across both tiers",
	})

	// SourceRequests counts adapter calls by source and outcome
	// ("ok" or "error").
	SourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketdata_source_requests_total",
		Help: "Vendor adapter calls by source and outcome",
	}, []string{"source", "outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
