// Package blobmanager persists the set of configured blob stores and their
// settings, and guards that list for safe runtime add/remove (§4, component
// N; settings format §6).
package blobmanager

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manager guards the active set of blob stores with a mutex; adding or
// removing a store takes effect on the next blob operation, never
// mid-operation.
type Manager struct {
	mu     sync.Mutex
	stores []blob.Store
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{}
}

// Add registers store, making it available to subsequent blob operations.
func (m *Manager) Add(store blob.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = append(m.stores, store)
}

// Remove unregisters the store with the given id, if present.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.stores {
		if s.ID() == id {
			m.stores = append(m.stores[:i], m.stores[i+1:]...)
			return
		}
	}
}

// Stores returns a snapshot of the currently registered stores.
func (m *Manager) Stores() []blob.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]blob.Store, len(m.stores))
	copy(snapshot, m.stores)
	return snapshot
}

// Active returns the single store used for reads/writes: the first
// registered store. Fails if none are registered.
func (m *Manager) Active() (blob.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stores) == 0 {
		return nil, fmt.Errorf("blobmanager: no active blob store configured")
	}
	return m.stores[0], nil
}

// document is the top-level settings-file shape: one "stores" element
// keyed by type_string, each holding that store's own serialized body.
type document struct {
	Stores map[string]yaml.Node `yaml:"stores"`
}

// SaveSettings writes every registered store's settings to path, creating
// parent directories as needed.
func (m *Manager) SaveSettings(path string) error {
	m.mu.Lock()
	stores := make([]blob.Store, len(m.stores))
	copy(stores, m.stores)
	m.mu.Unlock()

	doc := document{Stores: make(map[string]yaml.Node, len(stores))}
	for _, s := range stores {
		var buf bytes.Buffer
		if err := s.SaveSettings(&buf); err != nil {
			return fmt.Errorf("blobmanager: failed to save settings for %s: %w", s.TypeString(), err)
		}
		var node yaml.Node
		if err := yaml.Unmarshal(buf.Bytes(), &node); err != nil {
			return fmt.Errorf("blobmanager: failed to parse settings for %s: %w", s.TypeString(), err)
		}
		if len(node.Content) > 0 {
			doc.Stores[s.TypeString()] = *node.Content[0]
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("blobmanager: failed to marshal settings document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("blobmanager: failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("blobmanager: failed to write settings file: %w", err)
	}
	return nil
}
