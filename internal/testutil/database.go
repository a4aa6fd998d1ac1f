package testutil

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapdb"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// FileSpec is one row to seed into a fixture drive database.
type FileSpec struct {
	Name        string
	Path        string
	ParentPath  string
	Size        int64
	IsDirectory bool
	Modified    time.Time
	Deleted     bool
}

// DriveSnapshotSpec describes a drive snapshot database fixture. Exactly one
// metadata shape is written: Info (current generation), LegacyMeta (legacy
// key/value generation), or neither (bare file table).
type DriveSnapshotSpec struct {
	DriveID    string
	Suffix     string // "" writes the legacy sequence-less filename
	Files      []FileSpec
	Info       *snapdb.DriveInfo
	LegacyMeta map[string]any
}

// WriteDriveSnapshot synthesizes a drive snapshot database file in dir and
// returns its path.
func WriteDriveSnapshot(t *testing.T, dir string, spec DriveSnapshotSpec) string {
	t.Helper()
	ctx := context.Background()

	filename := snapshot.DriveSnapshotFilename(spec.DriveID, spec.Suffix)
	if spec.Suffix == "" {
		filename = "snapshot_" + spec.DriveID + ".db"
	}
	path := filepath.Join(dir, filename)

	db, err := snapdb.Open(path)
	if err != nil {
		t.Fatalf("opening fixture database: %v", err)
	}
	defer db.Close()

	if err := snapdb.EnsureFilesSchema(ctx, db); err != nil {
		t.Fatalf("creating files schema: %v", err)
	}

	for _, f := range spec.Files {
		isDir := 0
		if f.IsDirectory {
			isDir = 1
		}
		deleted := 0
		if f.Deleted {
			deleted = 1
		}
		_, err := db.ExecContext(ctx,
			"INSERT INTO files (name, path, parent_path, size, is_directory, modified, deleted) VALUES (?, ?, ?, ?, ?, ?, ?)",
			f.Name, f.Path, f.ParentPath, f.Size, isDir, f.Modified.Unix(), deleted)
		if err != nil {
			t.Fatalf("inserting fixture file %s: %v", f.Path, err)
		}
	}

	if spec.Info != nil {
		if err := snapdb.EnsureDriveInfoTable(ctx, db); err != nil {
			t.Fatalf("creating drive_info table: %v", err)
		}
		if err := snapdb.InsertDriveInfo(ctx, db, spec.Info); err != nil {
			t.Fatalf("inserting drive_info row: %v", err)
		}
	}

	if spec.LegacyMeta != nil {
		if _, err := db.ExecContext(ctx,
			"CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT)"); err != nil {
			t.Fatalf("creating metadata table: %v", err)
		}
		for k, v := range spec.LegacyMeta {
			value, ok := v.(string)
			if !ok {
				encoded, err := json.Marshal(v)
				if err != nil {
					t.Fatalf("encoding metadata value %s: %v", k, err)
				}
				value = string(encoded)
			}
			if _, err := db.ExecContext(ctx,
				"INSERT INTO metadata (key, value) VALUES (?, ?)", k, value); err != nil {
				t.Fatalf("inserting metadata %s: %v", k, err)
			}
		}
	}

	return path
}

// WriteCatalogSnapshot synthesizes a catalog snapshot database file in dir,
// named for the capture time, and returns its path.
func WriteCatalogSnapshot(t *testing.T, dir string, at time.Time) string {
	t.Helper()

	path := filepath.Join(dir, snapshot.CatalogSnapshotFilename(at))
	db, err := snapdb.Open(path)
	if err != nil {
		t.Fatalf("opening fixture catalog: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE drives (id TEXT PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("creating drives table: %v", err)
	}
	return path
}
