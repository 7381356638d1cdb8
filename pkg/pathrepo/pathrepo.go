// Package pathrepo interns every observed filesystem path into a numeric
// path_id and records parent linkage, forming a persistent forest (§4.2).
package pathrepo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cuemby/bsgo/pkg/fspath"
	"github.com/cuemby/bsgo/pkg/storage"
	bolt "go.etcd.io/bbolt"
)

// ErrAddFilePathFailed is returned by AddPath when the path already exists.
var ErrAddFilePathFailed = errors.New("pathrepo: path already exists")

// Row is a single interned path and its parent linkage.
type Row struct {
	PathID   int64  `json:"path_id"`
	FullPath string `json:"full_path"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// Repository interns paths within a single BoltDB transaction.
type Repository struct {
	tx *bolt.Tx
}

// New returns a Repository bound to tx. tx must be writable for AddPath and
// AddPathTree to succeed.
func New(tx *bolt.Tx) *Repository {
	return &Repository{tx: tx}
}

func (r *Repository) bucket() *bolt.Bucket {
	return r.tx.Bucket(storage.BucketPaths)
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// AddPath interns a new path with the given optional parent, failing with
// ErrAddFilePathFailed if the path is already present.
func (r *Repository) AddPath(path fspath.Path, parentID *int64) (int64, error) {
	if existing, err := r.FindPath(path); err != nil {
		return 0, err
	} else if existing != nil {
		return 0, fmt.Errorf("%w: %s", ErrAddFilePathFailed, path.String())
	}

	b := r.bucket()
	id, err := b.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("pathrepo: next sequence: %w", err)
	}
	pathID := int64(id)

	row := Row{PathID: pathID, FullPath: path.String(), ParentID: parentID}
	data, err := json.Marshal(row)
	if err != nil {
		return 0, fmt.Errorf("pathrepo: marshal row: %w", err)
	}
	if err := b.Put(itob(pathID), data); err != nil {
		return 0, fmt.Errorf("pathrepo: put row: %w", err)
	}
	return pathID, nil
}

// FindPath returns the path_id for path, or nil if never interned.
func (r *Repository) FindPath(path fspath.Path) (*int64, error) {
	details, err := r.FindPathDetails(path)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, nil
	}
	id := details.PathID
	return &id, nil
}

// FindPathDetails returns the full row for path, or nil if never interned.
func (r *Repository) FindPathDetails(path fspath.Path) (*Row, error) {
	var found *Row
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var row Row
		if err := json.Unmarshal(v, &row); err != nil {
			return nil, fmt.Errorf("pathrepo: unmarshal row: %w", err)
		}
		if row.FullPath == path.String() {
			found = &row
			break
		}
	}
	return found, nil
}

// AddPathTree interns every intermediate path of path (see
// fspath.Path.IntermediatePaths), reusing cache across repeated calls, and
// returns the leaf path_id. Idempotent across calls sharing the same cache.
func (r *Repository) AddPathTree(path fspath.Path, cache map[string]int64) (int64, error) {
	var parentID *int64
	var leafID int64

	for _, segment := range path.IntermediatePaths() {
		if id, ok := cache[segment.String()]; ok {
			leafID = id
			next := id
			parentID = &next
			continue
		}

		existing, err := r.FindPath(segment)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			cache[segment.String()] = *existing
			leafID = *existing
			next := *existing
			parentID = &next
			continue
		}

		id, err := r.AddPath(segment, parentID)
		if err != nil {
			return 0, err
		}
		cache[segment.String()] = id
		leafID = id
		next := id
		parentID = &next
	}

	return leafID, nil
}

// GetAllPaths returns every interned (path_id, full_path) pair.
func (r *Repository) GetAllPaths() ([]Row, error) {
	var rows []Row
	c := r.bucket().Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var row Row
		if err := json.Unmarshal(v, &row); err != nil {
			return nil, fmt.Errorf("pathrepo: unmarshal row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetRow fetches a single row by path_id, or nil if absent.
func (r *Repository) GetRow(pathID int64) (*Row, error) {
	data := r.bucket().Get(itob(pathID))
	if data == nil {
		return nil, nil
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("pathrepo: unmarshal row: %w", err)
	}
	return &row, nil
}
