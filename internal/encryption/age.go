package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/rmacfarlane24/archivist-sub002/internal/config"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// AgeEncryptor encrypts exported snapshots with an X25519 key pair. The
// recipient (public) key sits on disk in plaintext so Export never needs a
// passphrase; the identity (private) key is itself age-encrypted under a
// passphrase-derived scrypt key, so a copied key file cannot decrypt anything
// on its own.
type AgeEncryptor struct {
	recipientPath string
	identityPath  string
}

var _ snapshot.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		recipientPath: cfg.PublicKeyPath,
		identityPath:  cfg.PrivateKeyPath,
	}
}

// IsConfigured reports whether both key files exist on disk.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.recipientPath, e.identityPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Setup generates a fresh key pair and writes both halves, the identity
// wrapped with the passphrase.
func (e *AgeEncryptor) Setup(passphrase string) error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	if err := e.writeRecipient(identity.Recipient()); err != nil {
		return err
	}
	return e.writeIdentity(identity, passphrase)
}

func (e *AgeEncryptor) writeRecipient(r *age.X25519Recipient) error {
	if err := os.MkdirAll(filepath.Dir(e.recipientPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(e.recipientPath, []byte(r.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient key: %w", err)
	}
	return nil
}

func (e *AgeEncryptor) writeIdentity(id *age.X25519Identity, passphrase string) error {
	if err := os.MkdirAll(filepath.Dir(e.identityPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	f, err := os.OpenFile(e.identityPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	wrap, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("deriving passphrase key: %w", err)
	}
	w, err := age.Encrypt(f, wrap)
	if err != nil {
		return fmt.Errorf("wrapping identity: %w", err)
	}
	if _, err := io.WriteString(w, id.String()+"\n"); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	return nil
}

// Encrypt streams plaintext from r into w as age ciphertext for the stored
// recipient key.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	raw, err := os.ReadFile(e.recipientPath)
	if err != nil {
		return fmt.Errorf("reading recipient key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parsing recipient key: %w", err)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("recipient key file %s holds no keys", e.recipientPath)
	}

	cw, err := age.Encrypt(w, recipients[0])
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(cw, r); err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("sealing ciphertext: %w", err)
	}
	return nil
}

// Unlock unwraps the identity file with the passphrase and returns a
// decryption context holding the live identity. The identity never touches
// disk in unwrapped form.
func (e *AgeEncryptor) Unlock(passphrase string) (snapshot.DecryptionContext, error) {
	raw, err := os.ReadFile(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	wrap, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase key: %w", err)
	}
	plain, err := age.Decrypt(bytes.NewReader(raw), wrap)
	if err != nil {
		return nil, fmt.Errorf("unwrapping identity: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("identity file %s holds no keys", e.identityPath)
	}
	return &unlockedIdentity{identity: identities[0]}, nil
}

// unlockedIdentity is the decryption context returned by Unlock.
type unlockedIdentity struct {
	identity age.Identity
}

var _ snapshot.DecryptionContext = (*unlockedIdentity)(nil)

func (u *unlockedIdentity) Decrypt(r io.Reader, w io.Writer) error {
	plain, err := age.Decrypt(r, u.identity)
	if err != nil {
		return fmt.Errorf("opening ciphertext: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("decrypting: %w", err)
	}
	return nil
}
