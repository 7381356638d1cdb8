package adder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/cuemby/bsgo/pkg/unitofwork"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture wires one Store, one pool connection, and one run id, handing out
// a fresh UnitOfWork (and thus a fresh Adder) per call so tests can observe
// commits across separate transactions like a real backup run would.
type fixture struct {
	t     *testing.T
	store *storage.Store
	blobs blob.Store
	run   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "test.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	blobRoot := filepath.Join(dir, "blobs")
	bs, err := blob.NewDirectoryStore(blobRoot)
	require.NoError(t, err)

	return &fixture{t: t, store: st, blobs: bs, run: uuid.New()}
}

func (f *fixture) add(sourcePath string) []fileevent.Event {
	f.t.Helper()
	conn, err := f.store.Pool().Acquire(context.Background())
	require.NoError(f.t, err)

	uow, err := unitofwork.Begin(conn, f.blobs)
	require.NoError(f.t, err)

	a := New(uow, nil, f.run)
	events, err := a.Add(sourcePath)
	if err != nil {
		require.NoError(f.t, uow.Close())
		f.t.Fatalf("Add(%s): %v", sourcePath, err)
	}
	require.NoError(f.t, uow.Commit())
	return events
}

func (f *fixture) addExpectingError(sourcePath string) error {
	f.t.Helper()
	conn, err := f.store.Pool().Acquire(context.Background())
	require.NoError(f.t, err)

	uow, err := unitofwork.Begin(conn, f.blobs)
	require.NoError(f.t, err)

	a := New(uow, nil, f.run)
	_, addErr := a.Add(sourcePath)
	require.NoError(f.t, uow.Close())
	return addErr
}

func TestAddSingleNewFile(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0600))

	events := f.add(filePath)
	require.Len(t, events, 1)
	assert.Equal(t, fileevent.ActionChangedAdded, events[0].Action)
	assert.Equal(t, fileevent.TypeRegularFile, events[0].FileType)
	require.NotNil(t, events[0].ContentDigest)
	assert.Equal(t, digest.FromContent([]byte("hello")), *events[0].ContentDigest)
}

func TestRescanNoChanges(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0600))

	f.add(filePath)
	events := f.add(dir)

	require.Len(t, events, 2)
	assert.Equal(t, fileevent.ActionChangedAdded, events[0].Action)
	assert.Equal(t, fileevent.TypeDirectory, events[0].FileType)
	assert.Equal(t, fileevent.ActionUnchanged, events[1].Action)
	assert.Equal(t, fileevent.TypeRegularFile, events[1].FileType)
}

func TestModifyContents(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0600))
	f.add(filePath)

	require.NoError(t, os.WriteFile(filePath, []byte("hey"), 0600))
	events := f.add(filePath)

	require.Len(t, events, 1)
	assert.Equal(t, fileevent.ActionChangedModified, events[0].Action)
	assert.Equal(t, digest.FromContent([]byte("hey")), *events[0].ContentDigest)
}

func TestDeleteAndReAddWithChangedType(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0600))
	f.add(filePath)

	require.NoError(t, os.Remove(filePath))
	require.NoError(t, os.Mkdir(filePath, 0700))

	events := f.add(dir)
	require.GreaterOrEqual(t, len(events), 2)

	var removed, added bool
	for i, e := range events {
		if e.Action == fileevent.ActionChangedRemoved && e.FileType == fileevent.TypeRegularFile {
			removed = true
			require.Less(t, i+1, len(events))
			assert.Equal(t, fileevent.ActionChangedAdded, events[i+1].Action)
			assert.Equal(t, fileevent.TypeDirectory, events[i+1].FileType)
			added = true
		}
	}
	assert.True(t, removed, "expected a ChangedRemoved(RegularFile) event")
	assert.True(t, added, "expected the flip to be followed by ChangedAdded(Directory)")
}

func TestLockedFileEmitsFailedToRead(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission-based unreadability is not exercised on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permission bits")
	}

	f := newFixture(t)
	dir := t.TempDir()
	filePath := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("secret"), 0000))
	t.Cleanup(func() { os.Chmod(filePath, 0600) })

	events := f.add(filePath)
	require.Len(t, events, 1)
	assert.Equal(t, fileevent.ActionFailedToRead, events[0].Action)
	assert.Nil(t, events[0].ContentDigest)
}

func TestAddMissingPathFails(t *testing.T) {
	f := newFixture(t)
	err := f.addExpectingError(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, ErrPathNotFound)
}

func TestAddIdempotentOnUnchangedDirectory(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0600))

	f.add(dir)
	events := f.add(dir)

	require.Len(t, events, 1)
	assert.Equal(t, fileevent.ActionUnchanged, events[0].Action)
	assert.Equal(t, fileevent.TypeRegularFile, events[0].FileType)
}
