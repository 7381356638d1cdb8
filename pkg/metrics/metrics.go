package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts completed backup runs by outcome (finished, failed).
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsgo_runs_total",
			Help: "Total number of backup runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bsgo_run_duration_seconds",
			Help:    "Time taken to complete a backup run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FileEventsTotal counts appended FileEvents by action.
	FileEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsgo_file_events_total",
			Help: "Total number of file events appended, by action",
		},
		[]string{"action"},
	)

	// BlobsWrittenTotal counts blobs actually written to a store (dedup
	// misses only).
	BlobsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bsgo_blobs_written_total",
			Help: "Total number of blobs written to the active blob store",
		},
	)

	// BlobsDedupedTotal counts content reads that matched an existing blob.
	BlobsDedupedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bsgo_blobs_deduped_total",
			Help: "Total number of file reads that deduplicated against an existing blob",
		},
	)

	BlobBytesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bsgo_blob_bytes_written_total",
			Help: "Total bytes written to the active blob store",
		},
	)

	// QueueDepth reports the JobExecutor's current queue length.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bsgo_job_queue_depth",
			Help: "Current number of jobs waiting in the JobExecutor queue",
		},
	)

	// ConnectionsInUse reports the storage pool's checked-out connections.
	ConnectionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bsgo_connections_in_use",
			Help: "Current number of pooled database connections checked out",
		},
	)

	// BackupRunBytesTotal and BackupRunFilesTotal report the size and file
	// count of the most recently finished backup run, set once at the end
	// of that run by cmd/bsbackup. Plain gauges rather than a run_id-keyed
	// vector, since a run id is unbounded cardinality.
	BackupRunBytesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bsgo_backup_run_bytes_total",
			Help: "Total bytes added or modified in the most recently finished backup run",
		},
	)

	BackupRunFilesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bsgo_backup_run_files_total",
			Help: "Total files added or modified in the most recently finished backup run",
		},
	)

	// RestoreEventsTotal counts FileRestorer outcomes.
	RestoreEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsgo_restore_events_total",
			Help: "Total number of restore events by outcome",
		},
		[]string{"outcome"},
	)

	// APIRequestsTotal and APIRequestDuration instrument the daemon's HTTP
	// surface.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bsgo_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bsgo_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(FileEventsTotal)
	prometheus.MustRegister(BlobsWrittenTotal)
	prometheus.MustRegister(BlobsDedupedTotal)
	prometheus.MustRegister(BlobBytesWrittenTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(ConnectionsInUse)
	prometheus.MustRegister(BackupRunBytesTotal)
	prometheus.MustRegister(BackupRunFilesTotal)
	prometheus.MustRegister(RestoreEventsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
