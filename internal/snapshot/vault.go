package snapshot

import "io"

// Vault is an offsite storage backend for exported snapshot files.
// All operations stream through io.Reader/io.Writer so whole database files
// never have to fit in memory.
type Vault interface {
	// Put stores an object under name. Storing the same name twice
	// overwrites; snapshot files are immutable so the bytes are identical.
	// size is the number of bytes that will be read from r.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves the object stored under name and writes it to w.
	Get(name string, w io.Writer) error

	// List returns the names of all stored objects.
	List() ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}

// Encryptor handles encryption of exported snapshots and unlocking for
// decryption. Encryption uses the public key only; decryption requires a
// passphrase to unlock the private key, producing a DecryptionContext for
// the session.
type Encryptor interface {
	// Setup performs one-time key generation: stores the public key in
	// plaintext and the private key encrypted with the passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext valid for the duration of the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the duration
// of an import session. The unlocked key is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
