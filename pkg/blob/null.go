package blob

import (
	"io"

	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/google/uuid"
)

// NullTypeString is the TypeString of NullStore.
const NullTypeString = "null"

// NullStore accepts writes and returns empty bytes on read. Used for tests
// and for a daemon's metadata-only mode.
type NullStore struct {
	id uuid.UUID
}

// NewNullStore constructs a NullStore with a fresh id.
func NewNullStore() *NullStore {
	return &NullStore{id: uuid.New()}
}

// TypeString implements Store.
func (s *NullStore) TypeString() string {
	return NullTypeString
}

// ID implements Store.
func (s *NullStore) ID() uuid.UUID {
	return s.id
}

// CreateBlob implements Store; it is a no-op.
func (s *NullStore) CreateBlob(d digest.Digest, content []byte) error {
	return nil
}

// GetBlob implements Store; it always returns an empty slice.
func (s *NullStore) GetBlob(d digest.Digest) ([]byte, error) {
	return []byte{}, nil
}

// CreateNamedBlob implements Store; it is a no-op.
func (s *NullStore) CreateNamedBlob(name string, sourcePath string) error {
	return nil
}

// SaveSettings implements Store; it writes only the store's id.
func (s *NullStore) SaveSettings(sink io.Writer) error {
	_, err := sink.Write([]byte("id: " + s.id.String() + "\n"))
	return err
}
