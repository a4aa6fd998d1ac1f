package snapdb

import (
	"context"
	"database/sql"
	"fmt"
)

// FilesTable is the file-entry table a drive database exposes.
const FilesTable = "files"

// filesSchema is the per-drive file table. The scanner owns the write path;
// the engine only reads it, except when reinitializing an empty live database
// after restore. Timestamps are unix seconds.
const filesSchema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	parent_path TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	is_directory INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL DEFAULT 0,
	modified INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_files_parent_path ON files(parent_path);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
`

// EnsureFilesSchema creates the file table and its indexes if missing.
func EnsureFilesSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, filesSchema); err != nil {
		return fmt.Errorf("creating files schema: %w", err)
	}
	return nil
}

// FileRow is one row of the file table. Rows marked deleted are excluded by
// every query in this file.
type FileRow struct {
	ID          int64
	Name        string
	Path        string
	ParentPath  string
	Size        int64
	IsDirectory bool
	Created     int64
	Modified    int64
}

// CountActiveFiles counts the non-deleted rows of the file table. This is the
// authoritative file count for a snapshot; metadata-supplied counts can be
// stale relative to the scan results frozen in the file table.
func CountActiveFiles(ctx context.Context, db *sql.DB) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE deleted = 0").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return count, nil
}

// parent_path may be NULL in databases written by older scanners.
const fileColumns = "id, name, path, COALESCE(parent_path, ''), size, is_directory, created, modified"

// QueryRootFiles returns non-deleted entries with an empty or absent parent
// path, directories first then name ascending, capped at limit rows.
func QueryRootFiles(ctx context.Context, db *sql.DB, limit int) ([]FileRow, error) {
	return queryFiles(ctx, db,
		"SELECT "+fileColumns+" FROM files WHERE deleted = 0 AND COALESCE(parent_path, '') = '' "+
			"ORDER BY is_directory DESC, name ASC LIMIT ?", limit)
}

// QueryChildFiles returns non-deleted entries whose parent path equals parent
// exactly, directories first then name ascending.
func QueryChildFiles(ctx context.Context, db *sql.DB, parent string, limit, offset int) ([]FileRow, error) {
	return queryFiles(ctx, db,
		"SELECT "+fileColumns+" FROM files WHERE deleted = 0 AND parent_path = ? "+
			"ORDER BY is_directory DESC, name ASC LIMIT ? OFFSET ?", parent, limit, offset)
}

// QueryAllFiles returns every non-deleted entry, directories first then name
// ascending, capped at limit rows.
func QueryAllFiles(ctx context.Context, db *sql.DB, limit int) ([]FileRow, error) {
	return queryFiles(ctx, db,
		"SELECT "+fileColumns+" FROM files WHERE deleted = 0 "+
			"ORDER BY is_directory DESC, name ASC LIMIT ?", limit)
}

func queryFiles(ctx context.Context, db *sql.DB, query string, args ...any) ([]FileRow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var r FileRow
		var isDir int
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.ParentPath, &r.Size, &isDir, &r.Created, &r.Modified); err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}
		r.IsDirectory = isDir != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
