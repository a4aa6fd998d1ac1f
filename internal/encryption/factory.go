package encryption

import (
	"fmt"

	"github.com/rmacfarlane24/archivist-sub002/internal/config"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (snapshot.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewMarkerEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
