// Package blob defines the pluggable backing store for raw blob bytes
// (§4.4, component C) plus a directory-backed and a null implementation.
package blob

import (
	"errors"
	"io"

	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/google/uuid"
)

// ErrBlobRead is returned by Store.GetBlob when a blob cannot be read.
var ErrBlobRead = errors.New("blob: failed to read blob")

// Store persists raw bytes keyed by content digest.
type Store interface {
	// TypeString names the store implementation, e.g. "directory".
	TypeString() string

	// ID returns the store's identity, used by the blob-store manager and
	// recorded alongside its settings.
	ID() uuid.UUID

	// CreateBlob writes content under digest. Idempotent only insofar as
	// the caller has already checked the blob-info repository; a store
	// may overwrite, but must end with content addressable under digest.
	CreateBlob(d digest.Digest, content []byte) error

	// GetBlob returns the bytes stored under digest, or ErrBlobRead if
	// they cannot be read.
	GetBlob(d digest.Digest) ([]byte, error)

	// CreateNamedBlob copies the whole file at sourcePath into the store
	// under a non-digest name (used for database-copy sidecars).
	CreateNamedBlob(name string, sourcePath string) error

	// SaveSettings serializes this store's configuration to sink.
	SaveSettings(sink io.Writer) error
}
