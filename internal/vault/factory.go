package vault

import (
	"context"
	"fmt"

	"github.com/rmacfarlane24/archivist-sub002/internal/config"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config
// type. An empty type means no vault is configured and nil is returned.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (snapshot.Vault, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		return NewS3Vault(ctx, cfg)
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
