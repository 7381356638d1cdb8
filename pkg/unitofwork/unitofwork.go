// Package unitofwork scopes one BoltDB transaction across the repositories
// and blob store it takes part in (§4.6, component J). A unit of work is
// minted by the Backup facade against a pooled connection; commit() commits
// the underlying transaction, and failing to commit before Close rolls it
// back.
package unitofwork

import (
	"errors"
	"fmt"

	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/blobinfo"
	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/cuemby/bsgo/pkg/fileevent"
	"github.com/cuemby/bsgo/pkg/pathrepo"
	"github.com/cuemby/bsgo/pkg/runrepo"
	"github.com/cuemby/bsgo/pkg/storage"
	bolt "go.etcd.io/bbolt"
)

// ErrAlreadyClosed is returned by Commit or Rollback when the unit of work
// has already been committed or rolled back.
var ErrAlreadyClosed = errors.New("unitofwork: already closed")

// UnitOfWork holds one open BoltDB transaction, the repositories built on
// top of it, and the blob store active for the duration of the call. It is
// not safe for concurrent use by multiple goroutines.
type UnitOfWork struct {
	conn  *storage.Conn
	tx    *bolt.Tx
	store blob.Store

	Paths     *pathrepo.Repository
	BlobInfo  *blobinfo.Repository
	FileEvent *fileevent.Repository
	Runs      *runrepo.Repository

	done bool
}

// Begin acquires conn's transaction (read-write) and constructs a
// UnitOfWork scoped to it and to store. The caller must Commit or Close
// (directly, or via defer) exactly once.
func Begin(conn *storage.Conn, store blob.Store) (*UnitOfWork, error) {
	tx, err := conn.DB().Begin(true)
	if err != nil {
		return nil, fmt.Errorf("unitofwork: failed to begin transaction: %w", err)
	}

	return &UnitOfWork{
		conn:      conn,
		tx:        tx,
		store:     store,
		Paths:     pathrepo.New(tx),
		BlobInfo:  blobinfo.New(tx),
		FileEvent: fileevent.New(tx),
		Runs:      runrepo.New(tx),
	}, nil
}

// GetBlob is a shortcut to the active blob store's GetBlob.
func (u *UnitOfWork) GetBlob(d digest.Digest) ([]byte, error) {
	return u.store.GetBlob(d)
}

// Store returns the blob store active for this unit of work.
func (u *UnitOfWork) Store() blob.Store {
	return u.store
}

// Commit commits the underlying transaction and releases the pooled
// connection. After Commit, the UnitOfWork must not be used again.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return ErrAlreadyClosed
	}
	u.done = true
	defer u.conn.Release()

	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("unitofwork: failed to commit: %w", err)
	}
	return nil
}

// Rollback aborts the underlying transaction and releases the pooled
// connection. It is safe to call Rollback after a failed Commit; it is a
// no-op (returning ErrAlreadyClosed) if already committed or rolled back.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return ErrAlreadyClosed
	}
	u.done = true
	defer u.conn.Release()

	if err := u.tx.Rollback(); err != nil {
		return fmt.Errorf("unitofwork: failed to roll back: %w", err)
	}
	return nil
}

// Close rolls back the transaction if it has not already been committed or
// rolled back. Callers defer Close immediately after Begin so that any
// early return rolls back; a prior successful Commit makes Close a no-op.
func (u *UnitOfWork) Close() error {
	if u.done {
		return nil
	}
	return u.Rollback()
}
