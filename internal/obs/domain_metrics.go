package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartAddTotal counts add-to-cart outcomes (ok, invalid_input, add_failed).
	CartAddTotal *prometheus.CounterVec
	// CatalogLookupTotal counts catalog calls by operation and outcome.
	CatalogLookupTotal *prometheus.CounterVec
	// CatalogLookupLatency records catalog call latency in milliseconds.
	CatalogLookupLatency *prometheus.HistogramVec
	// CatalogCacheTotal counts product cache hits, misses and errors.
	CatalogCacheTotal *prometheus.CounterVec
	// CartsActive tracks the number of carts held by the session store.
	CartsActive prometheus.Gauge
	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartAddTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_add_total",
			Help:      "Count of add-to-cart outcomes.",
		}, []string{"result"})
		CatalogLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookup_total",
			Help:      "Count of catalog calls by operation and outcome.",
		}, []string{"op", "result"})
		CatalogLookupLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_lookup_duration_ms",
			Help:      "Latency for catalog calls in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Product cache lookups by outcome.",
		}, []string{"result"})
		CartsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "carts_active",
			Help:      "Number of carts currently held in memory.",
		})

		RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429.",
		})

		mustRegisterCollector(reg, CartAddTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartAddTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogLookupTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogLookupLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CatalogLookupLatency = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
		mustRegisterCollector(reg, CartsActive, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				CartsActive = v
			}
		})
		mustRegisterCollector(reg, RateLimitedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateLimitedTotal = v
			}
		})
	})
}

// ObserveCartAdd records an add-to-cart outcome when metrics are registered.
func ObserveCartAdd(result string) {
	if CartAddTotal != nil {
		CartAddTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCatalogCall records a catalog call outcome and latency when metrics are registered.
func ObserveCatalogCall(op, result string, elapsed time.Duration) {
	if CatalogLookupTotal != nil {
		CatalogLookupTotal.WithLabelValues(op, result).Inc()
	}
	if CatalogLookupLatency != nil {
		CatalogLookupLatency.WithLabelValues(op).Observe(DurationMillis(elapsed))
	}
}

// ObserveCatalogCache records a product cache outcome when metrics are registered.
func ObserveCatalogCache(result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}

// SetCartsActive updates the active cart gauge when metrics are registered.
func SetCartsActive(n int) {
	if CartsActive != nil {
		CartsActive.Set(float64(n))
	}
}

// ObserveRateLimited counts a rejected request when metrics are registered.
func ObserveRateLimited() {
	if RateLimitedTotal != nil {
		RateLimitedTotal.Inc()
	}
}
