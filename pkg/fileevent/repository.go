package fileevent

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cuemby/bsgo/pkg/blobinfo"
	"github.com/cuemby/bsgo/pkg/pathrepo"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// ErrAddFileEventFailed is returned by AddEvent when the event's content
// digest does not reference a known blob.
var ErrAddFileEventFailed = errors.New("fileevent: event references unknown blob")

// Repository appends to and queries the event log within a single BoltDB
// transaction.
type Repository struct {
	tx *bolt.Tx
}

// New returns a Repository bound to tx.
func New(tx *bolt.Tx) *Repository {
	return &Repository{tx: tx}
}

func (r *Repository) bucket() *bolt.Bucket {
	return r.tx.Bucket(storage.BucketEvents)
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// AddEvent appends event (whose ID is assigned here) for the given path_id.
// Fails with ErrAddFileEventFailed if a non-nil ContentDigest does not
// reference a row in the blob-info repository.
func (r *Repository) AddEvent(event Event, pathID int64) (Event, error) {
	if event.ContentDigest != nil {
		blobs := blobinfo.New(r.tx)
		ok, err := blobs.Exists(*event.ContentDigest)
		if err != nil {
			return Event{}, err
		}
		if !ok {
			return Event{}, fmt.Errorf("%w: %s", ErrAddFileEventFailed, event.ContentDigest.String())
		}
	}

	b := r.bucket()
	id, err := b.NextSequence()
	if err != nil {
		return Event{}, fmt.Errorf("fileevent: next sequence: %w", err)
	}

	event.ID = int64(id)
	event.PathID = pathID

	data, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("fileevent: marshal: %w", err)
	}
	if err := b.Put(itob(event.ID), data); err != nil {
		return Event{}, fmt.Errorf("fileevent: put: %w", err)
	}
	return event, nil
}

// GetAllEvents returns every event ordered by id ascending.
func (r *Repository) GetAllEvents() ([]Event, error) {
	var events []Event
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("fileevent: unmarshal: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// FindLastChangedEvent returns the event with the largest id for path_id
// whose action is one of the change actions (Added, Modified, Removed), or
// nil if there is none.
func (r *Repository) FindLastChangedEvent(pathID int64) (*Event, error) {
	var latest *Event
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("fileevent: unmarshal: %w", err)
		}
		if e.PathID != pathID || !e.Action.IsChange() {
			continue
		}
		if latest == nil || e.ID > latest.ID {
			ev := e
			latest = &ev
		}
	}
	return latest, nil
}

// latestEvent returns the event with the largest id for path_id regardless
// of action, or nil if path_id has no events. Unlike FindLastChangedEvent,
// this includes Unchanged rows, so it reflects the true latest event for a
// path rather than the latest change.
func (r *Repository) latestEvent(pathID int64) (*Event, error) {
	var latest *Event
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("fileevent: unmarshal: %w", err)
		}
		if e.PathID != pathID {
			continue
		}
		if latest == nil || e.ID > latest.ID {
			ev := e
			latest = &ev
		}
	}
	return latest, nil
}

// LastChangedEventsUnder returns, for rootPath and every descendant path
// known to the path repository, the most recent change event, keyed by full
// path string. If rootPath itself has never been interned, the result is
// empty (nothing has ever been recorded under it).
func (r *Repository) LastChangedEventsUnder(paths *pathrepo.Repository, rootPath string) (map[string]Event, error) {
	rows, err := paths.GetAllPaths()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]pathrepo.Row, len(rows))
	for _, row := range rows {
		byID[row.PathID] = row
	}

	var rootID int64
	rootFound := false
	for _, row := range rows {
		if row.FullPath == rootPath {
			rootID = row.PathID
			rootFound = true
			break
		}
	}
	if !rootFound {
		return map[string]Event{}, nil
	}

	isDescendant := func(id int64) bool {
		for {
			row, ok := byID[id]
			if !ok {
				return false
			}
			if row.PathID == rootID {
				return true
			}
			if row.ParentID == nil {
				return false
			}
			id = *row.ParentID
		}
	}

	result := make(map[string]Event)
	for _, row := range rows {
		if !isDescendant(row.PathID) {
			continue
		}
		event, err := r.FindLastChangedEvent(row.PathID)
		if err != nil {
			return nil, err
		}
		if event != nil {
			result[row.FullPath] = *event
		}
	}
	return result, nil
}

// Stats is the aggregate returned per run by StatisticsByRun.
type Stats struct {
	Count          int64
	TotalSizeBytes int64
}

// StatisticsByRun joins events to blob info by digest and sums sizes for
// rows whose run_id is in runIDs and whose action is in actions. Runs with
// no matching rows return a zero Stats.
func (r *Repository) StatisticsByRun(runIDs []uuid.UUID, actions []Action) (map[uuid.UUID]Stats, error) {
	runSet := make(map[uuid.UUID]bool, len(runIDs))
	for _, id := range runIDs {
		runSet[id] = true
	}
	actionSet := make(map[Action]bool, len(actions))
	for _, a := range actions {
		actionSet[a] = true
	}

	result := make(map[uuid.UUID]Stats, len(runIDs))
	for _, id := range runIDs {
		result[id] = Stats{}
	}

	blobs := blobinfo.New(r.tx)

	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("fileevent: unmarshal: %w", err)
		}
		if !runSet[e.RunID] || !actionSet[e.Action] {
			continue
		}

		stats := result[e.RunID]
		stats.Count++
		if e.ContentDigest != nil {
			info, err := blobs.Find(*e.ContentDigest)
			if err != nil {
				return nil, err
			}
			if info != nil {
				stats.TotalSizeBytes += int64(info.SizeBytes)
			}
		}
		result[e.RunID] = stats
	}
	return result, nil
}

// Criteria narrows Search/CountMatching to a closed set of parameters
// (§4.3): an optional run, an optional action allow-list, and an optional
// parent path_id scope.
type Criteria struct {
	RunID        *uuid.UUID
	Actions      []Action
	ParentPathID *int64
}

func (c Criteria) matches(e Event, paths *pathrepo.Repository) (bool, error) {
	if c.RunID != nil && e.RunID != *c.RunID {
		return false, nil
	}
	if len(c.Actions) > 0 {
		ok := false
		for _, a := range c.Actions {
			if e.Action == a {
				ok = true
				break
			}
		}
		if !ok {
			return false, nil
		}
	}
	if c.ParentPathID != nil {
		row, err := paths.GetRow(e.PathID)
		if err != nil {
			return false, err
		}
		if row == nil || row.ParentID == nil || *row.ParentID != *c.ParentPathID {
			return false, nil
		}
	}
	return true, nil
}

// Search returns up to limit matching events (ordered by id ascending),
// skipping the first skip matches.
func (r *Repository) Search(paths *pathrepo.Repository, criteria Criteria, skip, limit int) ([]Event, error) {
	var matched []Event
	c := r.bucket().Cursor()
	skipped := 0
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("fileevent: unmarshal: %w", err)
		}
		ok, err := criteria.matches(e, paths)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if skipped < skip {
			skipped++
			continue
		}
		matched = append(matched, e)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// CountMatching returns the number of events satisfying criteria.
func (r *Repository) CountMatching(paths *pathrepo.Repository, criteria Criteria) (int, error) {
	count := 0
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return 0, fmt.Errorf("fileevent: unmarshal: %w", err)
		}
		ok, err := criteria.matches(e, paths)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}
