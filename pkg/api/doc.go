/*
Package api implements bsdaemon's HTTP surface: health, readiness, Prometheus
metrics, a ping endpoint for smoke-testing connectivity to a running daemon,
and a read-only virtual directory listing.

# Architecture

bsdaemon gives a long-running backup facade an observable front door without
introducing a client/server split in the backup model itself — bsbackup and
bsrestore still open the database directly:

	┌──────────────────────── bsdaemon ───────────────────────────┐
	│                                                                │
	│  ┌──────────────────────────────────────────────┐           │
	│  │              net/http ServeMux                 │           │
	│  │  GET  /health   - liveness                     │           │
	│  │  GET  /ready    - readiness (database+blobstore)│           │
	│  │  GET  /metrics  - Prometheus exposition        │           │
	│  │  POST /ping     - echo, for smoke tests         │           │
	│  │  GET  /browse   - virtual directory listing     │           │
	│  └──────────────────┬───────────────────────────┘           │
	│                     │ instrumented by requestMetrics          │
	│  ┌──────────────────▼───────────────────────────┐           │
	│  │           backup.Facade + blobmanager          │           │
	│  └────────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────────┘

Readiness uses pkg/metrics's health checker (see pkg/metrics/health.go).
NewServer registers the "api" component as ready; refreshComponents probes
and reports the "database" and "blobstore" components once when Start
begins serving and then every 10 seconds (Server.refreshLoop).

# Usage

	facade, _ := backup.Open(dbPath, poolCapacity, manager)
	srv := api.NewServer(facade)
	log.Fatal(srv.Start(":8090").Error())
*/
package api
