// Package storage provides the embedded, transactional key-value-plus-query
// store that backs every repository in the backup engine: a single BoltDB
// file holding one bucket per table named in the data model, plus a bounded
// connection pool used by units of work.
package storage

import (
	"errors"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"
)

// ErrDatabaseExists is returned by Create when a file already exists at the
// requested path (§7, storage precondition: database already present on
// create).
var ErrDatabaseExists = errors.New("storage: database already exists")

// ErrDatabaseNotFound is returned by OpenExisting when no file exists at the
// requested path (§7, storage precondition: database absent on open).
var ErrDatabaseNotFound = errors.New("storage: database not found")

// Bucket names, one per logical table in the data model (§6).
var (
	BucketPaths  = []byte("paths")
	BucketBlobs  = []byte("blobs")
	BucketEvents = []byte("events")
	BucketRuns   = []byte("runs")
)

var allBuckets = [][]byte{BucketPaths, BucketBlobs, BucketEvents, BucketRuns}

// Store owns the BoltDB file and the bounded pool of handles acquired to
// open units of work against it.
type Store struct {
	db   *bolt.DB
	pool *Pool
}

// Open creates (if missing) or opens the database file at path, ensures all
// buckets exist, and returns a Store with a pool of the given capacity.
func Open(path string, poolCapacity int) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("storage: failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:   db,
		pool: NewPool(db, poolCapacity),
	}, nil
}

// Create opens a fresh database file at path, failing with ErrDatabaseExists
// if one is already present. Used by bsbackup, whose precondition is that it
// is starting a new backup database.
func Create(path string, poolCapacity int) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrDatabaseExists
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("storage: failed to stat database: %w", err)
	}
	return Open(path, poolCapacity)
}

// OpenExisting opens the database file at path, failing with
// ErrDatabaseNotFound if none exists. Used by bsrestore and bsdaemon, whose
// precondition is that a backup database already exists.
func OpenExisting(path string, poolCapacity int) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrDatabaseNotFound
	} else if err != nil {
		return nil, fmt.Errorf("storage: failed to stat database: %w", err)
	}
	return Open(path, poolCapacity)
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying BoltDB handle, for callers (such as the
// repository tests) that need direct, non-pooled access.
func (s *Store) DB() *bolt.DB {
	return s.db
}

// Pool returns the connection pool used to bound concurrent units of work.
func (s *Store) Pool() *Pool {
	return s.pool
}
