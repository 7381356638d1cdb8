package fileevent

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/bsgo/pkg/blobinfo"
	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/cuemby/bsgo/pkg/fspath"
	"github.com/cuemby/bsgo/pkg/pathrepo"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "test.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAddEventRejectsUnknownBlob(t *testing.T) {
	st := openTestStore(t)
	d := digest.FromContent([]byte("hello"))

	err := st.DB().Update(func(tx *bolt.Tx) error {
		events := New(tx)
		_, err := events.AddEvent(Event{
			ContentDigest: &d,
			Action:        ActionChangedAdded,
			FileType:      TypeRegularFile,
			RunID:         uuid.New(),
		}, 1)
		return err
	})
	assert.ErrorIs(t, err, ErrAddFileEventFailed)
}

func TestAddEventAssignsMonotonicID(t *testing.T) {
	st := openTestStore(t)
	d := digest.FromContent([]byte("hello"))
	run := uuid.New()

	err := st.DB().Update(func(tx *bolt.Tx) error {
		require.NoError(t, blobinfo.New(tx).Add(blobinfo.Info{Digest: d, SizeBytes: 5}))

		events := New(tx)
		e1, err := events.AddEvent(Event{ContentDigest: &d, Action: ActionChangedAdded, FileType: TypeRegularFile, RunID: run}, 1)
		require.NoError(t, err)
		e2, err := events.AddEvent(Event{ContentDigest: &d, Action: ActionUnchanged, FileType: TypeRegularFile, RunID: run}, 1)
		require.NoError(t, err)
		assert.Less(t, e1.ID, e2.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestFindLastChangedEventIgnoresStatusEvents(t *testing.T) {
	st := openTestStore(t)
	run := uuid.New()

	err := st.DB().Update(func(tx *bolt.Tx) error {
		events := New(tx)
		added, err := events.AddEvent(Event{Action: ActionChangedAdded, FileType: TypeDirectory, RunID: run}, 7)
		require.NoError(t, err)
		_, err = events.AddEvent(Event{Action: ActionUnsupported, FileType: TypeUnsupported, RunID: run}, 7)
		require.NoError(t, err)

		latest, err := events.FindLastChangedEvent(7)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, added.ID, latest.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestLastChangedEventsUnder(t *testing.T) {
	st := openTestStore(t)
	run := uuid.New()

	err := st.DB().Update(func(tx *bolt.Tx) error {
		paths := pathrepo.New(tx)
		cache := map[string]int64{}
		fileID, err := paths.AddPathTree(fspath.New("/tmp/a/b.txt"), cache)
		require.NoError(t, err)
		dirID := cache["/tmp/a/"]

		events := New(tx)
		_, err = events.AddEvent(Event{Action: ActionChangedAdded, FileType: TypeDirectory, RunID: run}, dirID)
		require.NoError(t, err)
		_, err = events.AddEvent(Event{Action: ActionChangedAdded, FileType: TypeRegularFile, RunID: run}, fileID)
		require.NoError(t, err)

		under, err := events.LastChangedEventsUnder(paths, "/tmp/a/")
		require.NoError(t, err)
		assert.Len(t, under, 2)
		assert.Contains(t, under, "/tmp/a/")
		assert.Contains(t, under, "/tmp/a/b.txt")
		return nil
	})
	require.NoError(t, err)
}

func TestStatisticsByRun(t *testing.T) {
	st := openTestStore(t)
	run := uuid.New()
	d := digest.FromContent([]byte("hello"))

	err := st.DB().Update(func(tx *bolt.Tx) error {
		require.NoError(t, blobinfo.New(tx).Add(blobinfo.Info{Digest: d, SizeBytes: 5}))

		events := New(tx)
		_, err := events.AddEvent(Event{ContentDigest: &d, Action: ActionChangedAdded, FileType: TypeRegularFile, RunID: run}, 1)
		require.NoError(t, err)

		stats, err := events.StatisticsByRun([]uuid.UUID{run}, []Action{ActionChangedAdded})
		require.NoError(t, err)
		assert.EqualValues(t, 1, stats[run].Count)
		assert.EqualValues(t, 5, stats[run].TotalSizeBytes)
		return nil
	})
	require.NoError(t, err)
}

func TestStatisticsByRunMissingRunIsZero(t *testing.T) {
	st := openTestStore(t)
	missing := uuid.New()

	err := st.DB().View(func(tx *bolt.Tx) error {
		events := New(tx)
		stats, err := events.StatisticsByRun([]uuid.UUID{missing}, []Action{ActionChangedAdded})
		require.NoError(t, err)
		assert.Equal(t, Stats{}, stats[missing])
		return nil
	})
	require.NoError(t, err)
}
