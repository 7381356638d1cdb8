// Package blobinfo records the size of every unique blob ever stored,
// deduplicating on insert (§4, component D).
package blobinfo

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/cuemby/bsgo/pkg/storage"
	bolt "go.etcd.io/bbolt"
)

// Info is a single {digest -> size} record. Inserted once per unique
// digest; never mutated.
type Info struct {
	Digest    digest.Digest `json:"digest"`
	SizeBytes uint64        `json:"size_bytes"`
}

// Repository records blob metadata within a single BoltDB transaction.
type Repository struct {
	tx *bolt.Tx
}

// New returns a Repository bound to tx.
func New(tx *bolt.Tx) *Repository {
	return &Repository{tx: tx}
}

func (r *Repository) bucket() *bolt.Bucket {
	return r.tx.Bucket(storage.BucketBlobs)
}

// Find returns the Info for d, or nil if no blob with that digest has been
// recorded.
func (r *Repository) Find(d digest.Digest) (*Info, error) {
	data := r.bucket().Get(d.Bytes())
	if data == nil {
		return nil, nil
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("blobinfo: unmarshal: %w", err)
	}
	return &info, nil
}

// Add records a new blob. Callers are expected to have checked Find first;
// Add simply overwrites, since a duplicate insert at this layer indicates a
// caller bug rather than a condition to recover from.
func (r *Repository) Add(info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("blobinfo: marshal: %w", err)
	}
	return r.bucket().Put(info.Digest.Bytes(), data)
}

// Exists reports whether a blob with digest d has been recorded.
func (r *Repository) Exists(d digest.Digest) (bool, error) {
	info, err := r.Find(d)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}
