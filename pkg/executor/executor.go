// Package executor implements the JobExecutor (§4.7, component L): a single
// worker goroutine draining a FIFO queue of jobs, each given a fresh unit of
// work, with per-job fault isolation.
package executor

import (
	"container/list"
	"context"
	"sync"

	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/cuemby/bsgo/pkg/unitofwork"
)

// Job is any operation taking a mutable unit of work and returning when
// done.
type Job func(uow *unitofwork.UnitOfWork) error

// Executor owns one FIFO queue and one worker goroutine. Jobs are executed
// strictly in enqueue order; a job completing implies every earlier job has
// already completed.
type Executor struct {
	pool  *storage.Pool
	store blob.Store

	mu      sync.Mutex
	cond    *sync.Cond
	queue   *list.List
	stopped bool

	done chan struct{}
}

// New constructs an Executor that mints units of work from pool against
// store, and starts its worker goroutine.
func New(pool *storage.Pool, store blob.Store) *Executor {
	e := &Executor{
		pool:  pool,
		store: store,
		queue: list.New(),
		done:  make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Queue appends job to the back of the queue. It is safe to call Queue
// concurrently with Stop; jobs queued after Stop has been called are
// discarded without running.
func (e *Executor) Queue(job Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.queue.PushBack(job)
	e.cond.Signal()
}

// QueueLen reports the number of jobs currently waiting (not counting one
// possibly in flight), for metrics.
func (e *Executor) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// Stop clears the queue, wakes the worker, and blocks until it exits. A job
// already running finishes; queued jobs are discarded.
func (e *Executor) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.queue.Init()
	e.cond.Signal()
	e.mu.Unlock()

	<-e.done
}

func (e *Executor) run() {
	defer close(e.done)

	for {
		job, ok := e.next()
		if !ok {
			return
		}
		e.runJob(job)
	}
}

// next blocks until a job is available or the executor has been stopped
// with an empty queue.
func (e *Executor) next() (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.queue.Len() == 0 {
		if e.stopped {
			return nil, false
		}
		e.cond.Wait()
	}

	front := e.queue.Front()
	e.queue.Remove(front)
	return front.Value.(Job), true
}

// runJob executes job inside a fresh unit of work, catching and logging any
// failure -- including a panic inside job -- so the worker loop continues
// with the next job.
func (e *Executor) runJob(job Job) {
	conn, err := e.pool.Acquire(context.Background())
	if err != nil {
		log.Logger.Error().Err(err).Msg("executor: failed to acquire connection for job")
		return
	}

	uow, err := unitofwork.Begin(conn, e.store)
	if err != nil {
		conn.Release()
		log.Logger.Error().Err(err).Msg("executor: failed to begin unit of work")
		return
	}
	defer uow.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error().Interface("panic", r).Msg("executor: job panicked")
		}
	}()

	if err := job(uow); err != nil {
		log.Logger.Error().Err(err).Msg("executor: job failed")
		return
	}

	if err := uow.Commit(); err != nil {
		log.Logger.Error().Err(err).Msg("executor: job failed to commit")
	}
}
