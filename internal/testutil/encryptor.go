package testutil

import (
	"github.com/rmacfarlane24/archivist-sub002/internal/encryption"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// NewTestEncryptor returns the keyless marker encryptor for engine tests.
func NewTestEncryptor() snapshot.Encryptor {
	return encryption.NewMarkerEncryptor()
}
