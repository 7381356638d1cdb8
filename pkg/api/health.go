package api

import (
	"context"
	"time"

	"github.com/cuemby/bsgo/pkg/backup"
	"github.com/cuemby/bsgo/pkg/metrics"
)

const (
	componentDatabase  = "database"
	componentBlobstore = "blobstore"
)

// refreshComponents probes the facade's connection pool and active blob
// store and reports the result into pkg/metrics's health registry, which
// GetReadiness consults for the "database"/"blobstore" critical components
// (§6, bsdaemon). Grounded on the teacher's readyHandler, which ran the
// equivalent raft-leader and storage probes inline on every /ready request;
// here the probe runs on a timer so /ready itself stays a cheap read of the
// registry.
func refreshComponents(facade *backup.Facade) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := facade.Pool().Acquire(ctx)
	if err != nil {
		metrics.UpdateComponent(componentDatabase, false, err.Error())
	} else {
		conn.Release()
		metrics.UpdateComponent(componentDatabase, true, "")
	}

	if _, err := facade.Manager().Active(); err != nil {
		metrics.UpdateComponent(componentBlobstore, false, err.Error())
	} else {
		metrics.UpdateComponent(componentBlobstore, true, "")
	}
}
