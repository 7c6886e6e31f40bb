// Package observability holds Prometheus metrics for the discovery service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	NearbyQueries *prometheus.CounterVec // labels: kind={sellers,products,text}

	GeocodeRequests *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,not_found,error}
	GeocodeCache    *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeDuration *prometheus.HistogramVec // labels: method={forward,reverse}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.NearbyQueries,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so parallel tests do
// not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		NearbyQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_discovery",
			Name:      "nearby_queries_total",
			Help:      "Nearby search queries by kind.",
		}, []string{"kind"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_discovery",
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geo_discovery",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geo_discovery",
			Name:      "geocode_duration_seconds",
			Help:      "Geocoding provider request duration.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}
}
