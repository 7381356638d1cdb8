package metrics

import (
	"time"

	"github.com/cuemby/bsgo/pkg/storage"
)

// QueueDepther reports the current depth of a job queue; implemented by
// executor.Executor.
type QueueDepther interface {
	QueueLen() int
}

// Collector periodically samples the connection pool and job queue and
// publishes their state as gauges.
type Collector struct {
	pool  *storage.Pool
	queue QueueDepther

	stopCh chan struct{}
}

// NewCollector creates a collector sampling pool and queue. queue may be
// nil if no executor is wired (e.g. the restore-only CLI).
func NewCollector(pool *storage.Pool, queue QueueDepther) *Collector {
	return &Collector{
		pool:   pool,
		queue:  queue,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting on a 15-second interval, sampling immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.pool != nil {
		ConnectionsInUse.Set(float64(c.pool.InUse()))
	}
	if c.queue != nil {
		QueueDepth.Set(float64(c.queue.QueueLen()))
	}
}
