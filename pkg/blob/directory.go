package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cuemby/bsgo/pkg/digest"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DirectoryTypeString is the TypeString of DirectoryStore.
const DirectoryTypeString = "directory"

// DirectoryStore persists one file per digest under root/<40-hex>.
type DirectoryStore struct {
	root string
	id   uuid.UUID
}

// NewDirectoryStore creates a directory-backed blob store rooted at root,
// minting a fresh id. The directory is created if it does not exist.
func NewDirectoryStore(root string) (*DirectoryStore, error) {
	return NewDirectoryStoreWithID(root, uuid.New())
}

// NewDirectoryStoreWithID is like NewDirectoryStore but with an explicit id,
// used when restoring a store's identity from persisted settings.
func NewDirectoryStoreWithID(root string, id uuid.UUID) (*DirectoryStore, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("blob: failed to create root %s: %w", root, err)
	}
	return &DirectoryStore{root: root, id: id}, nil
}

// TypeString implements Store.
func (s *DirectoryStore) TypeString() string {
	return DirectoryTypeString
}

// ID implements Store.
func (s *DirectoryStore) ID() uuid.UUID {
	return s.id
}

func (s *DirectoryStore) pathFor(d digest.Digest) string {
	return filepath.Join(s.root, d.String())
}

// CreateBlob implements Store.
func (s *DirectoryStore) CreateBlob(d digest.Digest, content []byte) error {
	if err := os.WriteFile(s.pathFor(d), content, 0600); err != nil {
		return fmt.Errorf("blob: failed to write blob %s: %w", d.String(), err)
	}
	return nil
}

// GetBlob implements Store.
func (s *DirectoryStore) GetBlob(d digest.Digest) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(d))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBlobRead, d.String(), err)
	}
	return data, nil
}

// CreateNamedBlob implements Store.
func (s *DirectoryStore) CreateNamedBlob(name string, sourcePath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("blob: failed to open source %s: %w", sourcePath, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.root, name))
	if err != nil {
		return fmt.Errorf("blob: failed to create named blob %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("blob: failed to copy named blob %s: %w", name, err)
	}
	return nil
}

// directorySettings is the serialized form saved by SaveSettings, matching
// the blob-store-manager's settings document (§6): the store's own body
// under its type_string key.
type directorySettings struct {
	ID   string `yaml:"id"`
	Root string `yaml:"root"`
}

// SaveSettings implements Store.
func (s *DirectoryStore) SaveSettings(sink io.Writer) error {
	settings := directorySettings{ID: s.id.String(), Root: s.root}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("blob: failed to marshal settings: %w", err)
	}
	_, err = sink.Write(data)
	return err
}
