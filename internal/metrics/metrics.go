package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK      = "ok"
	OutcomeNoData  = "no_data"
	OutcomeSkipped = "skipped"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_provider_calls_total",
			Help: "Provider adapter invocations by outcome",
		},
		[]string{"provider", "outcome"},
	)

	Fallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "valuation_fallback_total",
			Help: "Valuations that had no provider data and used the generated estimate",
		},
	)

	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_requests_total",
			Help: "Valuation pipeline runs by request type and result",
		},
		[]string{"type", "result"},
	)

	Confidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "valuation_confidence",
			Help:    "Composite confidence score of produced valuations",
			Buckets: []float64{50, 60, 70, 75, 80, 85, 90, 95},
		},
	)

	Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "valuation_duration_seconds",
			Help: "Wall time of one valuation pipeline run",
		},
		[]string{"type"},
	)

	LastConfidence = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "valuation_last_confidence",
			Help: "Confidence of the most recently recorded valuation per data source",
		},
		[]string{"data_source"},
	)
)
