package snapshot_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
	"github.com/rmacfarlane24/archivist-sub002/internal/testutil"
)

// newExportEngine builds an engine wired to an in-memory vault. encrypted
// selects whether the deterministic test encryptor is attached.
func newExportEngine(t *testing.T, encrypted bool) (*engineFixture, snapshot.Vault, snapshot.Encryptor) {
	t.Helper()

	f := &engineFixture{
		snapshotDir: t.TempDir(),
		dataDir:     t.TempDir(),
		catalog:     testutil.NewFakeCatalog(),
		clock:       testutil.FixedClock(),
	}
	v := testutil.NewTestVault()
	var enc snapshot.Encryptor
	if encrypted {
		enc = testutil.NewTestEncryptor()
	}
	f.engine = snapshot.NewEngine(f.snapshotDir, f.dataDir, f.catalog, v, enc,
		snapshot.NewNopLogger(), f.clock)
	return f, v, enc
}

func TestExportSnapshot(t *testing.T) {
	t.Run("uploads the snapshot bytes", func(t *testing.T) {
		f, v, _ := newExportEngine(t, false)
		path := testutil.WriteDriveSnapshot(t, f.snapshotDir, testutil.DriveSnapshotSpec{
			DriveID: "drive1", Suffix: "init",
		})

		objectName, err := f.engine.ExportSnapshot("snapshot_drive1_init")
		if err != nil {
			t.Fatalf("ExportSnapshot() error = %v", err)
		}
		if objectName != "snapshot_drive1_init.db" {
			t.Errorf("objectName = %q", objectName)
		}

		want, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var got bytes.Buffer
		if err := v.Get(objectName, &got); err != nil {
			t.Fatalf("vault.Get() error = %v", err)
		}
		if !bytes.Equal(got.Bytes(), want) {
			t.Error("vault object differs from snapshot file")
		}
	})

	t.Run("encrypts when an encryptor is configured", func(t *testing.T) {
		f, v, _ := newExportEngine(t, true)
		path := testutil.WriteDriveSnapshot(t, f.snapshotDir, testutil.DriveSnapshotSpec{
			DriveID: "drive1", Suffix: "init",
		})

		objectName, err := f.engine.ExportSnapshot("snapshot_drive1_init")
		if err != nil {
			t.Fatalf("ExportSnapshot() error = %v", err)
		}
		if !strings.HasSuffix(objectName, ".age") {
			t.Errorf("objectName = %q, want .age suffix", objectName)
		}

		plain, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var stored bytes.Buffer
		if err := v.Get(objectName, &stored); err != nil {
			t.Fatalf("vault.Get() error = %v", err)
		}
		if bytes.Equal(stored.Bytes(), plain) {
			t.Error("stored object equals plaintext, want ciphertext")
		}
		// The local snapshot file is never transformed.
		after, _ := os.ReadFile(path)
		if !bytes.Equal(after, plain) {
			t.Error("local snapshot file was modified by export")
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		f, _, _ := newExportEngine(t, false)
		_, err := f.engine.ExportSnapshot("snapshot_ghost_init")
		if !errors.Is(err, snapshot.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("id with path separators", func(t *testing.T) {
		f, _, _ := newExportEngine(t, false)
		_, err := f.engine.ExportSnapshot("snapshot_x/../../secret")
		if !errors.Is(err, snapshot.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("no vault configured", func(t *testing.T) {
		f := newTestEngine(t)
		_, err := f.engine.ExportSnapshot("snapshot_drive1_init")
		if !errors.Is(err, snapshot.ErrNoVault) {
			t.Errorf("error = %v, want ErrNoVault", err)
		}
	})
}

func TestImportSnapshot(t *testing.T) {
	t.Run("round trips an unencrypted export", func(t *testing.T) {
		f, _, _ := newExportEngine(t, false)
		path := testutil.WriteDriveSnapshot(t, f.snapshotDir, testutil.DriveSnapshotSpec{
			DriveID: "drive1", Suffix: "init",
			Files: []testutil.FileSpec{{Name: "a.txt", Path: "/a.txt"}},
		})
		want, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}

		objectName, err := f.engine.ExportSnapshot("snapshot_drive1_init")
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}

		id, err := f.engine.ImportSnapshot(objectName, nil)
		if err != nil {
			t.Fatalf("ImportSnapshot() error = %v", err)
		}
		if id != "snapshot_drive1_init" {
			t.Errorf("id = %q", id)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading imported snapshot: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Error("imported snapshot differs from the original")
		}
	})

	t.Run("round trips an encrypted export", func(t *testing.T) {
		f, _, enc := newExportEngine(t, true)
		path := testutil.WriteDriveSnapshot(t, f.snapshotDir, testutil.DriveSnapshotSpec{
			DriveID: "drive1", Suffix: "init",
		})
		want, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}

		objectName, err := f.engine.ExportSnapshot("snapshot_drive1_init")
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}

		decrypt, err := enc.Unlock("passphrase")
		if err != nil {
			t.Fatal(err)
		}

		id, err := f.engine.ImportSnapshot(objectName, decrypt)
		if err != nil {
			t.Fatalf("ImportSnapshot() error = %v", err)
		}
		if id != "snapshot_drive1_init" {
			t.Errorf("id = %q", id)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading imported snapshot: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Error("decrypted import differs from the original")
		}
	})

	t.Run("encrypted object without a decryption context", func(t *testing.T) {
		f, v, _ := newExportEngine(t, false)
		if err := v.Put("snapshot_drive1_init.db.age", strings.NewReader("ciphertext"), 10); err != nil {
			t.Fatal(err)
		}

		if _, err := f.engine.ImportSnapshot("snapshot_drive1_init.db.age", nil); err == nil {
			t.Error("ImportSnapshot() succeeded without a decryption context")
		}
	})

	t.Run("rejects objects that are not snapshots", func(t *testing.T) {
		f, v, _ := newExportEngine(t, false)
		if err := v.Put("notes.db", strings.NewReader("x"), 1); err != nil {
			t.Fatal(err)
		}

		if _, err := f.engine.ImportSnapshot("notes.db", nil); err == nil {
			t.Error("ImportSnapshot() accepted a non-snapshot object")
		}
	})
}

func TestVaultSnapshots(t *testing.T) {
	t.Run("lists exported objects", func(t *testing.T) {
		f, _, _ := newExportEngine(t, false)
		testutil.WriteDriveSnapshot(t, f.snapshotDir, testutil.DriveSnapshotSpec{
			DriveID: "drive1", Suffix: "init",
		})
		if _, err := f.engine.ExportSnapshot("snapshot_drive1_init"); err != nil {
			t.Fatal(err)
		}

		names, err := f.engine.VaultSnapshots()
		if err != nil {
			t.Fatalf("VaultSnapshots() error = %v", err)
		}
		if len(names) != 1 || names[0] != "snapshot_drive1_init.db" {
			t.Errorf("names = %v", names)
		}
	})

	t.Run("no vault configured", func(t *testing.T) {
		f := newTestEngine(t)
		if _, err := f.engine.VaultSnapshots(); !errors.Is(err, snapshot.ErrNoVault) {
			t.Errorf("error = %v, want ErrNoVault", err)
		}
	})
}
