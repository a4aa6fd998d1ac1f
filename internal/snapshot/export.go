package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// encryptedExt marks age-encrypted vault objects.
const encryptedExt = ".age"

// ErrNoVault is returned when offsite operations run without a configured
// vault.
var ErrNoVault = errors.New("no vault configured")

// ExportSnapshot copies a snapshot file into the offsite vault and returns
// the stored object name. When an encryptor is configured the object is
// age-encrypted and suffixed ".age"; the local snapshot file is never
// transformed. Export is user-initiated like restore, so it fails fast.
func (e *Engine) ExportSnapshot(id string) (string, error) {
	if e.vault == nil {
		return "", ErrNoVault
	}
	if _, ok := ParseSnapshotFilename(id + dbExt); !ok {
		return "", fmt.Errorf("%w: %s is not a snapshot id", ErrNotFound, id)
	}

	path := e.SnapshotPath(id)
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	objectName := id + dbExt

	if e.encryptor != nil && e.encryptor.IsConfigured() {
		return e.exportEncrypted(path, objectName)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if err := e.vault.Put(objectName, f, fi.Size()); err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}

	e.logger.Info("snapshot exported", "id", id, "object", objectName)
	return objectName, nil
}

// exportEncrypted encrypts the snapshot into a temp file first: the vault
// needs the ciphertext size up front, and age output length is not knowable
// without producing it.
func (e *Engine) exportEncrypted(path, objectName string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "archivist-export-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	defer tmp.Close()

	if err := e.encryptor.Encrypt(src, tmp); err != nil {
		return "", fmt.Errorf("encrypting snapshot: %w", err)
	}

	fi, err := tmp.Stat()
	if err != nil {
		return "", fmt.Errorf("sizing ciphertext: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewinding ciphertext: %w", err)
	}

	objectName += encryptedExt
	if err := e.vault.Put(objectName, tmp, fi.Size()); err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}

	e.logger.Info("snapshot exported encrypted", "object", objectName)
	return objectName, nil
}

// ImportSnapshot retrieves an exported object back into the snapshot
// directory and returns the resulting snapshot id. Encrypted objects require
// an unlocked DecryptionContext.
func (e *Engine) ImportSnapshot(objectName string, decrypt DecryptionContext) (string, error) {
	if e.vault == nil {
		return "", ErrNoVault
	}

	filename := objectName
	encrypted := strings.HasSuffix(objectName, encryptedExt)
	if encrypted {
		if decrypt == nil {
			return "", fmt.Errorf("object %s is encrypted but no passphrase was provided", objectName)
		}
		filename = strings.TrimSuffix(objectName, encryptedExt)
	}

	if _, ok := ParseSnapshotFilename(filename); !ok {
		return "", fmt.Errorf("object %s is not a snapshot", objectName)
	}

	if err := os.MkdirAll(e.snapshotDir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(e.snapshotDir, ".import-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := e.vault.Get(objectName, tmp); err != nil {
		return "", fmt.Errorf("downloading object: %w", err)
	}

	if encrypted {
		if _, err := tmp.Seek(0, 0); err != nil {
			return "", fmt.Errorf("rewinding download: %w", err)
		}
		plainPath, err := e.decryptImport(tmp, decrypt)
		if err != nil {
			return "", err
		}
		os.Remove(tmpPath)
		tmpPath = plainPath
	}

	destPath := filepath.Join(e.snapshotDir, filename)
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("placing snapshot: %w", err)
	}

	success = true
	id := strings.TrimSuffix(filename, dbExt)
	e.logger.Info("snapshot imported", "object", objectName, "id", id)
	return id, nil
}

func (e *Engine) decryptImport(src *os.File, decrypt DecryptionContext) (string, error) {
	out, err := os.CreateTemp(e.snapshotDir, ".import-plain-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	outPath := out.Name()

	if err := decrypt.Decrypt(src, out); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("decrypting object: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("closing decrypted file: %w", err)
	}
	return outPath, nil
}

// VaultSnapshots lists the objects stored in the offsite vault.
func (e *Engine) VaultSnapshots() ([]string, error) {
	if e.vault == nil {
		return nil, ErrNoVault
	}
	names, err := e.vault.List()
	if err != nil {
		return nil, fmt.Errorf("listing vault: %w", err)
	}
	return names, nil
}
