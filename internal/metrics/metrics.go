// Package metrics provides the centralized Prometheus metrics registry for the Odd2 service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	GenerationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "generation_runs_total",
		Help:      "Total number of prediction generation runs",
	}, []string{"outcome"})
	DemoFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "demo_fallbacks_total",
		Help:      "Total number of generation runs that fell back to demo predictions",
	})
	PredictionsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "predictions_settled_total",
		Help:      "Total number of predictions settled, by final status",
	}, []string{"status"})
	PaymentsInitiatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "payments_initiated_total",
		Help:      "Total number of mobile money collections started, by currency",
	}, []string{"currency"})
	PaymentsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "payments_completed_total",
		Help:      "Total number of completed payments",
	})
	DataSourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "datasource_requests_total",
		Help:      "Total number of football data API requests, by outcome",
	}, []string{"outcome"})
	WebhookFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "webhook_failures_total",
		Help:      "Total number of payment webhooks rejected for a bad signature",
	})
	GeoLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odd2",
		Name:      "geo_lookups_total",
		Help:      "Total number of geolocation resolutions, by outcome",
	}, []string{"outcome"})
)

// Gauge metrics
var (
	MatchesAnalyzed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "odd2",
		Name:      "matches_analyzed",
		Help:      "Number of matches analyzed in the most recent generation run",
	})
	CombinationsFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "odd2",
		Name:      "combinations_found",
		Help:      "Number of valid combinations found in the most recent generation run",
	})
)

// Histogram metrics
var (
	GenerationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "odd2",
		Name:      "generation_duration_seconds",
		Help:      "Duration of prediction generation runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})
	ResultsCheckDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "odd2",
		Name:      "results_check_duration_seconds",
		Help:      "Duration of results checking runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(GenerationRunsTotal)
		registry.MustRegister(DemoFallbacksTotal)
		registry.MustRegister(PredictionsSettledTotal)
		registry.MustRegister(PaymentsInitiatedTotal)
		registry.MustRegister(PaymentsCompletedTotal)
		registry.MustRegister(DataSourceRequestsTotal)
		registry.MustRegister(WebhookFailuresTotal)
		registry.MustRegister(GeoLookupsTotal)

		registry.MustRegister(MatchesAnalyzed)
		registry.MustRegister(CombinationsFound)

		registry.MustRegister(GenerationDuration)
		registry.MustRegister(ResultsCheckDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordGenerationRun records the outcome of a generation run.
func RecordGenerationRun(outcome string) {
	GenerationRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordPredictionSettled records a settled prediction by final status.
func RecordPredictionSettled(status string) {
	PredictionsSettledTotal.WithLabelValues(status).Inc()
}

// RecordPaymentInitiated records a started collection.
func RecordPaymentInitiated(currency string) {
	PaymentsInitiatedTotal.WithLabelValues(currency).Inc()
}

// RecordGeoLookup records a geolocation resolution by outcome.
func RecordGeoLookup(outcome string) {
	GeoLookupsTotal.WithLabelValues(outcome).Inc()
}
