package tablecache

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_cache_refresh_total",
			Help: "Total number of table snapshot refreshes by result",
		},
		[]string{"table", "result"},
	)

	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "posts_cache_refresh_duration_seconds",
			Help:    "Duration of remote table fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	snapshotRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "posts_cache_snapshot_records",
			Help: "Number of posts in the current table snapshot",
		},
		[]string{"table"},
	)

	staleServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_cache_stale_served_total",
			Help: "Reads served from a stale snapshot after a failed refresh",
		},
		[]string{"table"},
	)

	decodeSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_cache_decode_skipped_total",
			Help: "Remote records skipped because they could not be decoded",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(refreshTotal)
	prometheus.MustRegister(refreshDuration)
	prometheus.MustRegister(snapshotRecords)
	prometheus.MustRegister(staleServedTotal)
	prometheus.MustRegister(decodeSkippedTotal)
}
