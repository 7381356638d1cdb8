// Package runrepo records Started/Finished events per backup run (§4, G).
package runrepo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Action enumerates backup-run lifecycle events. Encodings are binding (§6).
type Action int

const (
	ActionStarted Action = iota
	ActionFinished
)

// Event is a single row in the backup-run log.
type Event struct {
	ID          int64     `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	DateTimeUTC int64     `json:"datetime_utc"` // seconds since epoch
	Action      Action    `json:"action"`
}

// Repository appends to and queries the backup-run log within a single
// BoltDB transaction.
type Repository struct {
	tx *bolt.Tx
}

// New returns a Repository bound to tx.
func New(tx *bolt.Tx) *Repository {
	return &Repository{tx: tx}
}

func (r *Repository) bucket() *bolt.Bucket {
	return r.tx.Bucket(storage.BucketRuns)
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// AddEvent appends event, assigning its ID.
func (r *Repository) AddEvent(event Event) (Event, error) {
	b := r.bucket()
	id, err := b.NextSequence()
	if err != nil {
		return Event{}, fmt.Errorf("runrepo: next sequence: %w", err)
	}
	event.ID = int64(id)

	data, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("runrepo: marshal: %w", err)
	}
	if err := b.Put(itob(event.ID), data); err != nil {
		return Event{}, fmt.Errorf("runrepo: put: %w", err)
	}
	return event, nil
}

// EventsForRun returns every event for runID, ordered by id ascending.
func (r *Repository) EventsForRun(runID uuid.UUID) ([]Event, error) {
	var events []Event
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("runrepo: unmarshal: %w", err)
		}
		if e.RunID == runID {
			events = append(events, e)
		}
	}
	return events, nil
}

// Recorder is a thin convenience wrapper that stamps Started/Finished
// events with the current time.
type Recorder struct {
	repo *Repository
}

// NewRecorder wraps repo.
func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

// RecordStarted appends a Started event for runID and returns it.
func (rec *Recorder) RecordStarted(runID uuid.UUID) (Event, error) {
	return rec.repo.AddEvent(Event{
		RunID:       runID,
		DateTimeUTC: time.Now().UTC().Unix(),
		Action:      ActionStarted,
	})
}

// RecordFinished appends a Finished event for runID and returns it.
func (rec *Recorder) RecordFinished(runID uuid.UUID) (Event, error) {
	return rec.repo.AddEvent(Event{
		RunID:       runID,
		DateTimeUTC: time.Now().UTC().Unix(),
		Action:      ActionFinished,
	})
}
