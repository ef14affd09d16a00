package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

var (
	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prakriti",
		Name:      "pipeline_duration_seconds",
		Help:      "End-to-end query pipeline latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prakriti",
		Name:      "queries_total",
		Help:      "Processed queries by intent and outcome",
	}, []string{"intent", "status"})

	KGResultsCount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prakriti",
		Name:      "kg_results_count",
		Help:      "Knowledge graph entities matched per query",
		Buckets:   []float64{0, 1, 2, 5, 10, 20},
	})

	ProviderFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prakriti",
		Name:      "provider_fallbacks_total",
		Help:      "Live data provider failures that triggered a fallback",
	}, []string{"feed", "provider"})

	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prakriti",
		Name:      "cache_hits_total",
		Help:      "Temporal cache reads that served a snapshot",
	}, []string{"feed"})

	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prakriti",
		Name:      "cache_misses_total",
		Help:      "Temporal cache reads that found nothing usable",
	}, []string{"feed"})

	SnapshotsSwept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prakriti",
		Name:      "snapshots_swept_total",
		Help:      "Expired live data snapshots deleted by retention sweeps",
	}, []string{"feed"})

	ScheduledRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prakriti",
		Name:      "scheduled_refreshes_total",
		Help:      "Background refresh runs by outcome",
	}, []string{"status"})
)

// Init registers all collectors with the default registry. Call once at
// startup, before Serve.
func Init() {
	prometheus.MustRegister(
		PipelineDuration,
		QueriesTotal,
		KGResultsCount,
		ProviderFallbacks,
		CacheHits,
		CacheMisses,
		SnapshotsSwept,
		ScheduledRefreshes,
	)
}

// Serve exposes /metrics on addr. Blocks; run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("Metrics endpoint listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
