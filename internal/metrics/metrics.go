// Package metrics - Prometheus metrics for the query resolver, transfer
// driver, and bus front-end.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolverCacheHitsTotal counts queries answered entirely from the
	// document store, with no retailer fetch.
	ResolverCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_cache_hits_total",
		Help: "Total queries answered entirely from the document-store cache",
	})

	// ResolverCacheMissesTotal counts queries that required at least one
	// retailer fetch.
	ResolverCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resolver_cache_misses_total",
		Help: "Total queries that required at least one retailer fetch",
	})

	// StoreFetchDuration tracks how long a single retailer fetch+parse
	// takes, labeled by store.
	StoreFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_fetch_duration_seconds",
		Help:    "Duration of a single retailer search fetch and parse",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"store"})

	// StoreFetchErrorsTotal counts failed retailer fetches, labeled by
	// store.
	StoreFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_fetch_errors_total",
		Help: "Total retailer fetch failures",
	}, []string{"store"})

	// TransferPoolInUse tracks the transfer driver's current in-flight
	// request count against its admission cap.
	TransferPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transfer_pool_in_use",
		Help: "Number of transfer driver slots currently occupied",
	})

	// AcceleratorClaimsTotal counts in-flight dedupe claims won outright
	// vs. lost to a concurrent caller already resolving the same term.
	AcceleratorClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accelerator_claims_total",
		Help: "Total in-flight dedupe claim attempts by outcome",
	}, []string{"outcome"})

	// BusReconnectsTotal counts successful bus reconnections.
	BusReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_reconnects_total",
		Help: "Total successful bus reconnections after a disconnect",
	})
)
