package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	recommendationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Time to vectorize and rank one query",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	modelDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recommend_model_documents",
			Help:      "Documents in the loaded recommendation model",
		},
	)

	modelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_model_reloads_total",
			Help:      "Recommendation model builds by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(recommendationsTotal, recommendationDuration, modelDocuments, modelReloadsTotal)
}

// ObserveRecommendation records one recommendation; outcome is "ok" or an error class.
func ObserveRecommendation(outcome string, d time.Duration) {
	recommendationsTotal.WithLabelValues(outcome).Inc()
	recommendationDuration.Observe(d.Seconds())
}

// ObserveModelLoad records a model build attempt and, on success, its document count.
func ObserveModelLoad(ok bool, documents int) {
	if !ok {
		modelReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	modelReloadsTotal.WithLabelValues("ok").Inc()
	modelDocuments.Set(float64(documents))
}
