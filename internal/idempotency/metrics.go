package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotency_cache_hits_total",
		Help: "Requests answered by replaying a cached response.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotency_cache_misses_total",
		Help: "Keyed requests that reached the downstream handler.",
	})
	cacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotency_cache_stores_total",
		Help: "Successful responses persisted for replay.",
	})
	cacheErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotency_cache_errors_total",
		Help: "Cache backend failures, counted per operation.",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotency_cache_evictions_total",
		Help: "Entries evicted from the in-memory cache at capacity.",
	})
)
