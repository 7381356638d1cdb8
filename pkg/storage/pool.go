package storage

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// Pool bounds the number of concurrently open units of work against a
// shared BoltDB handle. Acquire either returns an available connection,
// constructs one up to capacity, or blocks in FIFO order until one is
// returned via Release.
type Pool struct {
	db       *bolt.DB
	capacity int

	mu      sync.Mutex
	inUse   int
	waiters *list.List // of chan struct{}
}

// NewPool constructs a pool bounded to capacity concurrent connections
// against db. A non-positive capacity is treated as 1.
func NewPool(db *bolt.DB, capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		db:       db,
		capacity: capacity,
		waiters:  list.New(),
	}
}

// Conn is a handle checked out from the pool. It must be released exactly
// once, by calling Release.
type Conn struct {
	db   *bolt.DB
	pool *Pool
}

// DB returns the underlying BoltDB handle the connection guards access to.
func (c *Conn) DB() *bolt.DB {
	return c.db
}

// Release returns the connection to the pool, waking the longest-waiting
// blocked Acquire call, if any.
func (c *Conn) Release() {
	c.pool.release()
}

// Acquire blocks until a connection is available or ctx is done. Waiters are
// released in the order they called Acquire.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.inUse < p.capacity {
		p.inUse++
		p.mu.Unlock()
		return &Conn{db: p.db, pool: p}, nil
	}

	wake := make(chan struct{})
	elem := p.waiters.PushBack(wake)
	p.mu.Unlock()

	select {
	case <-wake:
		return &Conn{db: p.db, pool: p}, nil
	case <-ctx.Done():
		p.mu.Lock()
		// Remove our waiter if it's still queued; if it was already
		// popped by a concurrent release, drain the handoff so the
		// slot isn't leaked.
		removed := false
		for e := p.waiters.Front(); e != nil; e = e.Next() {
			if e == elem {
				p.waiters.Remove(e)
				removed = true
				break
			}
		}
		p.mu.Unlock()
		if !removed {
			select {
			case <-wake:
				p.release()
			default:
			}
		}
		return nil, fmt.Errorf("storage: acquire connection: %w", ctx.Err())
	}
}

func (p *Pool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	front := p.waiters.Front()
	if front == nil {
		p.inUse--
		return
	}
	p.waiters.Remove(front)
	wake := front.Value.(chan struct{})
	close(wake)
	// inUse is unchanged: the slot is handed directly to the waiter.
}

// InUse reports the number of connections currently checked out, for tests
// and diagnostics.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}
