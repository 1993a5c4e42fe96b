package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recommendation model metrics.
var (
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Total recommendation queries by outcome",
		},
		[]string{"status"}, // "ok" / "empty_query" / "not_ready"
	)

	RetrainsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrains_total",
			Help:      "Total model retrains by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	RetrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrain_duration_seconds",
			Help:      "Model retrain duration in seconds, including corpus load",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ModelCorpusSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_corpus_size",
			Help:      "Number of recipes in the serving model",
		},
	)

	ModelVocabularySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_vocabulary_size",
			Help:      "Number of distinct ingredient terms in the serving model",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			RecommendationsTotal,
			RetrainsTotal,
			RetrainDuration,
			ModelCorpusSize,
			ModelVocabularySize,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
