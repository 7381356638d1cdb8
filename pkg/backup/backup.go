// Package backup implements the Backup facade (§4.6, component K): it owns
// the database file, the pooled connections against it, and the set of
// configured blob stores, minting units of work on demand.
package backup

import (
	"context"
	"fmt"

	"github.com/cuemby/bsgo/pkg/blobmanager"
	"github.com/cuemby/bsgo/pkg/storage"
	"github.com/cuemby/bsgo/pkg/unitofwork"
)

// Facade owns the database handle pool and the configured blob stores for
// one backup database; units of work it mints hold shared references whose
// lifetime must not outlive the Facade.
type Facade struct {
	store   *storage.Store
	manager *blobmanager.Manager
}

// Open opens (creating if necessary) the BoltDB file at dbPath with a
// connection pool bounded to poolCapacity, and wires it to manager, which
// supplies the blob store active for units of work minted from this Facade.
func Open(dbPath string, poolCapacity int, manager *blobmanager.Manager) (*Facade, error) {
	store, err := storage.Open(dbPath, poolCapacity)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to open database: %w", err)
	}
	return &Facade{store: store, manager: manager}, nil
}

// Create opens a fresh database at dbPath, failing with
// storage.ErrDatabaseExists if one is already present. Used by bsbackup.
func Create(dbPath string, poolCapacity int, manager *blobmanager.Manager) (*Facade, error) {
	store, err := storage.Create(dbPath, poolCapacity)
	if err != nil {
		return nil, err
	}
	return &Facade{store: store, manager: manager}, nil
}

// OpenExisting opens the database at dbPath, failing with
// storage.ErrDatabaseNotFound if none exists. Used by bsrestore and
// bsdaemon.
func OpenExisting(dbPath string, poolCapacity int, manager *blobmanager.Manager) (*Facade, error) {
	store, err := storage.OpenExisting(dbPath, poolCapacity)
	if err != nil {
		return nil, err
	}
	return &Facade{store: store, manager: manager}, nil
}

// Close closes the underlying database handle. All units of work minted
// from this Facade must have already been committed or closed.
func (f *Facade) Close() error {
	return f.store.Close()
}

// CreateUnitOfWork begins a transaction on a pooled connection (blocking in
// FIFO order if the pool is at capacity) against the manager's currently
// active blob store, and returns a UnitOfWork exposing the repositories plus
// a GetBlob shortcut; adders and restorers are built on it with adder.New
// and restorer.New.
func (f *Facade) CreateUnitOfWork(ctx context.Context) (*unitofwork.UnitOfWork, error) {
	activeStore, err := f.manager.Active()
	if err != nil {
		return nil, fmt.Errorf("backup: cannot start unit of work: %w", err)
	}

	conn, err := f.store.Pool().Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to acquire connection: %w", err)
	}

	uow, err := unitofwork.Begin(conn, activeStore)
	if err != nil {
		conn.Release()
		return nil, err
	}
	return uow, nil
}

// Manager returns the blob-store manager backing this Facade.
func (f *Facade) Manager() *blobmanager.Manager {
	return f.manager
}

// Pool exposes the underlying connection pool, e.g. for wiring a JobExecutor.
func (f *Facade) Pool() *storage.Pool {
	return f.store.Pool()
}
