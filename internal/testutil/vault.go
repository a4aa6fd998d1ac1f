package testutil

import (
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
	"github.com/rmacfarlane24/archivist-sub002/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() snapshot.Vault {
	return vault.NewMemoryVault("test-vault")
}
