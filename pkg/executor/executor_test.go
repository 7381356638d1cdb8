package executor

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/cuemby/bsgo/pkg/unitofwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "test.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e := New(st.Pool(), blob.NewNullStore())
	t.Cleanup(e.Stop)
	return e
}

func TestJobsRunInEnqueueOrder(t *testing.T) {
	e := newTestExecutor(t)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 1; i <= 3; i++ {
		i := i
		wg.Add(1)
		e.Queue(func(uow *unitofwork.UnitOfWork) error {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	waitWithTimeout(t, &wg, time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestFaultIsolationLetsLaterJobsRun(t *testing.T) {
	e := newTestExecutor(t)

	var mu sync.Mutex
	var ran []string
	var wg sync.WaitGroup
	wg.Add(3)

	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		defer wg.Done()
		mu.Lock()
		ran = append(ran, "j1")
		mu.Unlock()
		return nil
	})
	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		defer wg.Done()
		mu.Lock()
		ran = append(ran, "j2")
		mu.Unlock()
		return errors.New("boom")
	})
	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		defer wg.Done()
		mu.Lock()
		ran = append(ran, "j3")
		mu.Unlock()
		return nil
	})

	waitWithTimeout(t, &wg, time.Second)
	assert.Equal(t, []string{"j1", "j2", "j3"}, ran)
}

func TestPanicInJobIsAbsorbedAndLaterJobsRun(t *testing.T) {
	e := newTestExecutor(t)

	var mu sync.Mutex
	var ran []string
	var wg sync.WaitGroup
	wg.Add(3)

	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		defer wg.Done()
		mu.Lock()
		ran = append(ran, "j1")
		mu.Unlock()
		return nil
	})
	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		defer wg.Done()
		mu.Lock()
		ran = append(ran, "j2")
		mu.Unlock()
		panic("boom")
	})
	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		defer wg.Done()
		mu.Lock()
		ran = append(ran, "j3")
		mu.Unlock()
		return nil
	})

	waitWithTimeout(t, &wg, time.Second)
	assert.Equal(t, []string{"j1", "j2", "j3"}, ran)
}

func TestStopDiscardsQueuedJobs(t *testing.T) {
	e := newTestExecutor(t)

	var started sync.WaitGroup
	started.Add(1)
	block := make(chan struct{})

	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		started.Done()
		<-block
		return nil
	})

	var ranSecond bool
	e.Queue(func(uow *unitofwork.UnitOfWork) error {
		ranSecond = true
		return nil
	})

	started.Wait()
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	e.Stop()

	assert.False(t, ranSecond)
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for jobs to complete")
	}
}
