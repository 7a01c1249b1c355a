package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamEmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_stream_emissions_total",
			Help: "Total number of snapshots emitted per engine stream.",
		},
		[]string{"stream"},
	)
	mergeRecomputesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_merge_recomputes_total",
			Help: "Total number of list merge recomputations.",
		},
	)
	mergeRecomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_merge_recompute_duration_seconds",
			Help:    "List merge recomputation latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	mirrorSyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_mirror_syncs_total",
			Help: "Total number of local cache mirror replacements.",
		},
		[]string{"status"},
	)
	mirrorSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_mirror_sync_duration_seconds",
			Help:    "Local cache replace-on-write latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_store_ops_total",
			Help: "Total number of remote store operations by outcome.",
		},
		[]string{"op", "status"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_ws_active_connections",
			Help: "Number of active presentation bridge connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_ws_events_total",
			Help: "Total number of presentation bridge events.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		streamEmissionsTotal,
		mergeRecomputesTotal,
		mergeRecomputeDuration,
		mirrorSyncsTotal,
		mirrorSyncDuration,
		storeOpsTotal,
		amqpPublishErrorsTotal,
		wsActiveConnections,
		wsEventsTotal,
	)
}

func IncStreamEmission(stream string) {
	streamEmissionsTotal.WithLabelValues(stream).Inc()
}

func ObserveMergeRecompute(elapsed time.Duration) {
	mergeRecomputesTotal.Inc()
	mergeRecomputeDuration.Observe(elapsed.Seconds())
}

func ObserveMirrorSync(elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mirrorSyncsTotal.WithLabelValues(status).Inc()
	mirrorSyncDuration.Observe(elapsed.Seconds())
}

func IncStoreOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOpsTotal.WithLabelValues(op, status).Inc()
}

func IncPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}
