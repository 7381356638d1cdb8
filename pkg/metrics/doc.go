/*
Package metrics provides Prometheus metrics collection and exposition for the
backup engine.

Metrics are defined and registered with the Prometheus client library at
package init and exposed via an HTTP handler for scraping.

# Metrics Catalog

Run Metrics:

bsgo_runs_total{outcome}:
  - Type: Counter
  - Description: Total backup runs by outcome (finished/failed)

bsgo_run_duration_seconds:
  - Type: Histogram
  - Description: Wall-clock duration of a backup run

File Event Metrics:

bsgo_file_events_total{action}:
  - Type: Counter
  - Description: FileEvents recorded by action (label values are the action
    names: ChangedAdded, ChangedModified, ChangedRemoved, FailedToRead,
    Unsupported, Unchanged)

bsgo_blobs_written_total:
  - Type: Counter
  - Description: Blobs written to a blob store (dedup misses)

bsgo_blobs_deduped_total:
  - Type: Counter
  - Description: Blob writes skipped because the digest was already stored

bsgo_blob_bytes_written_total:
  - Type: Counter
  - Description: Raw bytes written across all blob stores

bsgo_backup_run_bytes_total:
  - Type: Gauge
  - Description: Bytes added or modified in the most recently finished run

bsgo_backup_run_files_total:
  - Type: Gauge
  - Description: Files added or modified in the most recently finished run

bsgo_restore_events_total{outcome}:
  - Type: Counter
  - Description: FileEvents replayed by a restore run, by outcome

Resource Metrics:

bsgo_job_queue_depth:
  - Type: Gauge
  - Description: Pending jobs in the JobExecutor queue

bsgo_connections_in_use:
  - Type: Gauge
  - Description: Database connections currently checked out of the pool

API Metrics:

bsgo_api_requests_total{route, status}:
  - Type: Counter
  - Description: HTTP requests served by bsdaemon, by route and status code

bsgo_api_request_duration_seconds{route}:
  - Type: Histogram
  - Description: bsdaemon request duration by route

# Usage

	import "github.com/cuemby/bsgo/pkg/metrics"

	metrics.RunsTotal.WithLabelValues("finished").Inc()

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.RunDuration)

	http.Handle("/metrics", metrics.Handler())

# Integration Points

  - pkg/adder: increments file event and blob write/dedup counters
  - pkg/restorer: increments restore event counters by outcome
  - pkg/executor: Executor.QueueLen is sampled by Collector (via the
    QueueDepther interface) into the queue-depth gauge
  - pkg/storage: Pool.InUse is sampled by Collector into connections-in-use
  - pkg/api: instruments request count and duration
  - pkg/metrics (this package): also hosts the readiness registry used by
    bsdaemon's /ready route (see health.go)

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, catching accidental re-declaration early.

Label Discipline:
  - Labels are bounded enums (action, outcome, route, status code), never
    path IDs or digests.
*/
package metrics
