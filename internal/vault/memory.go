package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// MemoryVault keeps exported objects in memory. Useful for testing.
// Safe for concurrent use.
type MemoryVault struct {
	name    string
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{name: name, objects: make(map[string][]byte)}
}

// Put stores an object. Re-storing a name overwrites it.
func (m *MemoryVault) Put(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading object: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

// Get retrieves an object and writes it to w.
func (m *MemoryVault) Get(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[name]
	if !ok {
		return fmt.Errorf("object not found: %s", name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing object: %w", err)
	}
	return nil
}

// List returns the names of all stored objects, sorted.
func (m *MemoryVault) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup always succeeds for an in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ snapshot.Vault = (*MemoryVault)(nil)
