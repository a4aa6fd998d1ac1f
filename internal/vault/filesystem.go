package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// FileSystemVault stores exported snapshot objects as flat files under a root
// directory, typically on a different physical volume than the snapshot
// directory.
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating vault root: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

// Put stores an object. Writes go through a temp file and rename so a failed
// upload never leaves a truncated object.
func (v *FileSystemVault) Put(name string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.root, name)

	tmp, err := os.CreateTemp(v.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Get retrieves an object and writes it to w.
func (v *FileSystemVault) Get(name string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object not found: %s", name)
		}
		return fmt.Errorf("opening object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading object: %w", err)
	}
	return nil
}

// List returns the names of all stored objects, sorted.
func (v *FileSystemVault) List() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("reading vault root: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup verifies that the vault root is an accessible directory.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

var _ snapshot.Vault = (*FileSystemVault)(nil)
