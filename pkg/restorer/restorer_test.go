package restorer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/bsgo/pkg/adder"
	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/cuemby/bsgo/pkg/unitofwork"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*storage.Store, blob.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "test.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	bs, err := blob.NewDirectoryStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	return st, bs
}

func TestRestoreRoundTrip(t *testing.T) {
	st, bs := openTestStore(t)
	run := uuid.New()

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0600))

	conn, err := st.Pool().Acquire(context.Background())
	require.NoError(t, err)
	uow, err := unitofwork.Begin(conn, bs)
	require.NoError(t, err)

	a := adder.New(uow, nil, run)
	events, err := a.Add(srcDir)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())

	outDir := t.TempDir()

	conn2, err := st.Pool().Acquire(context.Background())
	require.NoError(t, err)
	uow2, err := unitofwork.Begin(conn2, bs)
	require.NoError(t, err)
	defer uow2.Close()

	r := New(uow2, nil)
	results, err := r.Restore(events, outDir)
	require.NoError(t, err)
	require.Len(t, results, len(events))

	var fileResult *Result
	for i := range results {
		if results[i].Event.FileType == fileevent.TypeRegularFile {
			fileResult = &results[i]
		}
	}
	require.NotNil(t, fileResult)
	assert.Equal(t, OutcomeRestored, fileResult.Outcome)

	content, err := os.ReadFile(fileResult.Path.Normal())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestRestoreRejectsMissingTarget(t *testing.T) {
	st, bs := openTestStore(t)
	conn, err := st.Pool().Acquire(context.Background())
	require.NoError(t, err)
	uow, err := unitofwork.Begin(conn, bs)
	require.NoError(t, err)
	defer uow.Close()

	r := New(uow, nil)
	_, err = r.Restore(nil, filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, ErrTargetPathNotSupported)
}

func TestRestoreSkipsExistingPath(t *testing.T) {
	st, bs := openTestStore(t)
	run := uuid.New()

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0600))

	conn, err := st.Pool().Acquire(context.Background())
	require.NoError(t, err)
	uow, err := unitofwork.Begin(conn, bs)
	require.NoError(t, err)
	a := adder.New(uow, nil, run)
	events, err := a.Add(srcDir)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())

	outDir := t.TempDir()
	preexisting := filepath.Join(outDir, srcDir[1:], "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(preexisting), 0700))
	require.NoError(t, os.WriteFile(preexisting, []byte("untouched"), 0600))

	conn2, err := st.Pool().Acquire(context.Background())
	require.NoError(t, err)
	uow2, err := unitofwork.Begin(conn2, bs)
	require.NoError(t, err)
	defer uow2.Close()

	r := New(uow2, nil)
	results, err := r.Restore(events, outDir)
	require.NoError(t, err)

	var fileResult *Result
	for i := range results {
		if results[i].Event.FileType == fileevent.TypeRegularFile {
			fileResult = &results[i]
		}
	}
	require.NotNil(t, fileResult)
	assert.Equal(t, OutcomeSkipped, fileResult.Outcome)

	content, err := os.ReadFile(preexisting)
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(content))
}
