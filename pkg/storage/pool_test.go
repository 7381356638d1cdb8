package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.Pool()
}

func TestAcquireUpToCapacityDoesNotBlock(t *testing.T) {
	pool := newTestPool(t, 2)

	c1, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	c2, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, pool.InUse())
	c1.Release()
	c2.Release()
	assert.Equal(t, 0, pool.InUse())
}

func TestAcquireBlocksAtCapacityUntilRelease(t *testing.T) {
	pool := newTestPool(t, 1)

	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan *Conn, 1)
	go func() {
		c, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		acquired <- c
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should have blocked while pool is at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	conn.Release()

	select {
	case c := <-acquired:
		c.Release()
	case <-time.After(time.Second):
		t.Fatal("second acquire did not unblock after release")
	}
}

func TestAcquireFIFOOrder(t *testing.T) {
	pool := newTestPool(t, 1)

	holder, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			c, err := pool.Acquire(context.Background())
			require.NoError(t, err)
			order <- i
			time.Sleep(5 * time.Millisecond)
			c.Release()
		}()
		time.Sleep(10 * time.Millisecond) // ensure queueing order is deterministic
	}

	holder.Release()

	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, <-order)
	}
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	pool := newTestPool(t, 1)

	holder, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = pool.Acquire(ctx)
	assert.Error(t, err)
}

func TestAcquireAfterCancellationDoesNotLeakSlot(t *testing.T) {
	pool := newTestPool(t, 1)

	holder, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	require.Error(t, err)

	holder.Release()

	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.InUse())
	c.Release()
}
