package snapdb

import (
	"context"
	"database/sql"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureFilesSchema(context.Background(), db); err != nil {
		t.Fatalf("creating files schema: %v", err)
	}
	return db
}

// newLegacySchemaDB mirrors drive databases written by older scanners, which
// declared parent_path without a NOT NULL constraint and stored NULL at the
// root. The read queries must tolerate that shape; external snapshot files do
// not carry this package's constraints.
func newLegacySchemaDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	const schema = `
CREATE TABLE files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	parent_path TEXT,
	size INTEGER NOT NULL DEFAULT 0,
	is_directory INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL DEFAULT 0,
	modified INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0
)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating legacy files schema: %v", err)
	}
	return db
}

func insertFile(t *testing.T, db *sql.DB, name, path string, parent any, isDir, deleted bool) {
	t.Helper()
	d, dir := 0, 0
	if deleted {
		d = 1
	}
	if isDir {
		dir = 1
	}
	_, err := db.Exec(
		"INSERT INTO files (name, path, parent_path, size, is_directory, deleted) VALUES (?, ?, ?, 0, ?, ?)",
		name, path, parent, dir, d)
	if err != nil {
		t.Fatalf("inserting %s: %v", path, err)
	}
}

func TestTableInspection(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tables, err := TableNames(ctx, db)
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	found := false
	for _, name := range tables {
		if name == FilesTable {
			found = true
		}
	}
	if !found {
		t.Errorf("TableNames() = %v, want to contain %s", tables, FilesTable)
	}

	if ok, err := HasTable(ctx, db, FilesTable); err != nil || !ok {
		t.Errorf("HasTable(files) = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := HasTable(ctx, db, "no_such_table"); err != nil || ok {
		t.Errorf("HasTable(no_such_table) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestCountActiveFiles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	insertFile(t, db, "a.txt", "/a.txt", "", false, false)
	insertFile(t, db, "b.txt", "/b.txt", "", false, false)
	insertFile(t, db, "gone.txt", "/gone.txt", "", false, true)

	count, err := CountActiveFiles(ctx, db)
	if err != nil {
		t.Fatalf("CountActiveFiles() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountActiveFiles() = %d, want 2", count)
	}
}

func TestQueryRootFiles(t *testing.T) {
	ctx := context.Background()
	db := newLegacySchemaDB(t)

	insertFile(t, db, "zeta.txt", "/zeta.txt", "", false, false)
	insertFile(t, db, "docs", "/docs", "", true, false)
	insertFile(t, db, "nested.txt", "/docs/nested.txt", "/docs", false, false)
	insertFile(t, db, "gone.txt", "/gone.txt", "", false, true)
	// Older scanners wrote NULL instead of an empty parent path.
	insertFile(t, db, "legacy.txt", "/legacy.txt", nil, false, false)

	rows, err := QueryRootFiles(ctx, db, 100)
	if err != nil {
		t.Fatalf("QueryRootFiles() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("QueryRootFiles() = %d rows, want 3", len(rows))
	}
	// Directories first, then names ascending.
	want := []string{"docs", "legacy.txt", "zeta.txt"}
	for i, name := range want {
		if rows[i].Name != name {
			t.Errorf("rows[%d].Name = %q, want %q", i, rows[i].Name, name)
		}
	}
	if !rows[0].IsDirectory {
		t.Error("docs should be reported as a directory")
	}
}

func TestQueryChildFiles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		insertFile(t, db, name, "/docs/"+name, "/docs", false, false)
	}
	insertFile(t, db, "other.txt", "/docs2/other.txt", "/docs2", false, false)

	rows, err := QueryChildFiles(ctx, db, "/docs", 2, 0)
	if err != nil {
		t.Fatalf("QueryChildFiles() error = %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "a.txt" || rows[1].Name != "b.txt" {
		t.Errorf("first page = %v", rows)
	}

	rows, err = QueryChildFiles(ctx, db, "/docs", 2, 2)
	if err != nil {
		t.Fatalf("QueryChildFiles() offset error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "c.txt" {
		t.Errorf("second page = %v", rows)
	}
}

func TestQueryAllFiles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	insertFile(t, db, "a.txt", "/a.txt", "", false, false)
	insertFile(t, db, "gone.txt", "/gone.txt", "", false, true)

	rows, err := QueryAllFiles(ctx, db, 100)
	if err != nil {
		t.Fatalf("QueryAllFiles() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "a.txt" {
		t.Errorf("QueryAllFiles() = %v, want only a.txt", rows)
	}
}

func TestDriveInfo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := EnsureDriveInfoTable(ctx, db); err != nil {
		t.Fatalf("EnsureDriveInfoTable() error = %v", err)
	}

	t.Run("empty table reads nil", func(t *testing.T) {
		info, err := ReadDriveInfo(ctx, db)
		if err != nil {
			t.Fatalf("ReadDriveInfo() error = %v", err)
		}
		if info != nil {
			t.Errorf("ReadDriveInfo() = %+v, want nil", info)
		}
	})

	t.Run("insert and read back", func(t *testing.T) {
		want := &DriveInfo{
			DriveID:       "drive1",
			DriveName:     "My Drive",
			TotalCapacity: 1000,
			UsedSpace:     400,
			FreeSpace:     600,
			FormatType:    "NTFS",
			AddedDate:     1700000000,
			LastUpdated:   1710000000,
			FileCount:     42,
			ReconciledAt:  1710000001,
		}
		if err := InsertDriveInfo(ctx, db, want); err != nil {
			t.Fatalf("InsertDriveInfo() error = %v", err)
		}

		got, err := ReadDriveInfo(ctx, db)
		if err != nil {
			t.Fatalf("ReadDriveInfo() error = %v", err)
		}
		if got == nil || *got != *want {
			t.Errorf("ReadDriveInfo() = %+v, want %+v", got, want)
		}

		count, err := CountDriveInfoRows(ctx, db, "drive1")
		if err != nil || count != 1 {
			t.Errorf("CountDriveInfoRows() = (%d, %v), want (1, nil)", count, err)
		}
	})

	t.Run("file count update leaves capacity untouched", func(t *testing.T) {
		if err := UpdateDriveInfoFileCount(ctx, db, "drive1", 7, 1720000000); err != nil {
			t.Fatalf("UpdateDriveInfoFileCount() error = %v", err)
		}

		got, err := ReadDriveInfo(ctx, db)
		if err != nil || got == nil {
			t.Fatalf("ReadDriveInfo() = (%+v, %v)", got, err)
		}
		if got.FileCount != 7 || got.ReconciledAt != 1720000000 {
			t.Errorf("updated row = %+v, want fileCount 7 reconciledAt 1720000000", got)
		}
		if got.TotalCapacity != 1000 || got.UsedSpace != 400 {
			t.Errorf("capacity fields changed: %+v", got)
		}
	})
}

func TestReadLegacyMetadata(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := db.Exec("CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT)"); err != nil {
		t.Fatal(err)
	}
	// driveId is a bare string that is not valid JSON; the others decode as
	// a JSON number, object, and quoted string.
	rows := map[string]any{
		"driveId":   "drive1",
		"fileCount": "42",
		"stats":     `{"used": 10}`,
		"quoted":    `"hello world"`,
	}
	for k, v := range rows {
		if _, err := db.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", k, v); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.Exec("INSERT INTO metadata (key, value) VALUES ('nothing', NULL)"); err != nil {
		t.Fatal(err)
	}

	kv, err := ReadLegacyMetadata(ctx, db)
	if err != nil {
		t.Fatalf("ReadLegacyMetadata() error = %v", err)
	}

	if got, ok := kv["driveId"].(string); !ok || got != "drive1" {
		t.Errorf("driveId = %v, want string drive1", kv["driveId"])
	}
	if got, ok := kv["fileCount"].(float64); !ok || got != 42 {
		t.Errorf("fileCount = %v, want float64 42", kv["fileCount"])
	}
	if got, ok := kv["stats"].(map[string]any); !ok || got["used"] != float64(10) {
		t.Errorf("stats = %v, want parsed object", kv["stats"])
	}
	if got, ok := kv["quoted"].(string); !ok || got != "hello world" {
		t.Errorf("quoted = %v, want unquoted string", kv["quoted"])
	}
	if _, present := kv["nothing"]; present {
		t.Error("NULL value should be skipped")
	}
}
