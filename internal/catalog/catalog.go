// Package catalog implements the live catalog/storage collaborator: the
// database tracking all known drives, the live per-drive database layout, and
// the per-drive search index.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rmacfarlane24/archivist-sub002/internal/catalog/migrations"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapdb"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// CatalogFilename is the central catalog database inside the data directory.
const CatalogFilename = "catalog.db"

// IDGenerator abstracts drive id generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// Catalog is the SQLite-backed live catalog. It satisfies
// snapshot.LiveCatalog for the restore orchestrator and gives the rest of the
// application drive registration and lookup.
type Catalog struct {
	db      *sql.DB
	dataDir string
	logger  snapshot.Logger
	ids     IDGenerator
}

var _ snapshot.LiveCatalog = (*Catalog)(nil)

// Open opens (creating if needed) the catalog database inside dataDir and
// brings its schema up to date.
func Open(dataDir string, logger snapshot.Logger, ids IDGenerator) (*Catalog, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := snapdb.Open(filepath.Join(dataDir, CatalogFilename))
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}

	return &Catalog{db: db, dataDir: dataDir, logger: logger, ids: ids}, nil
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the catalog database file path, the input to catalog snapshot
// capture.
func (c *Catalog) Path() string {
	return filepath.Join(c.dataDir, CatalogFilename)
}

// DataDir returns the directory holding the live per-drive databases.
func (c *Catalog) DataDir() string {
	return c.dataDir
}

// CreateDrive registers a new drive with a fresh id and an empty live
// database, returning the catalog row.
func (c *Catalog) CreateDrive(ctx context.Context, name, path string) (*snapshot.DriveDescriptor, error) {
	drive := &snapshot.DriveDescriptor{
		ID:        c.ids.New(),
		Name:      name,
		Path:      path,
		AddedDate: time.Now(),
		Status:    "active",
	}

	if err := c.AddDrive(ctx, drive); err != nil {
		return nil, err
	}
	if err := c.InitializeDriveDatabase(ctx, drive.ID); err != nil {
		return nil, err
	}
	return drive, nil
}

// AddDrive inserts or replaces a drive row. Idempotent by drive id, as the
// restore orchestrator requires.
func (c *Catalog) AddDrive(ctx context.Context, drive *snapshot.DriveDescriptor) error {
	status := drive.Status
	if status == "" {
		status = "active"
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO drives (id, name, path, total_capacity, used_space, free_space,
		                     format_type, added_date, last_updated, file_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   path = excluded.path,
		   total_capacity = excluded.total_capacity,
		   used_space = excluded.used_space,
		   free_space = excluded.free_space,
		   format_type = excluded.format_type,
		   added_date = excluded.added_date,
		   last_updated = excluded.last_updated,
		   file_count = excluded.file_count,
		   status = excluded.status`,
		drive.ID, drive.Name, drive.Path, drive.TotalCapacity, drive.UsedSpace,
		drive.FreeSpace, drive.FormatType, unixOrZero(drive.AddedDate),
		unixOrZero(drive.LastUpdated), drive.FileCount, status)
	if err != nil {
		return fmt.Errorf("inserting drive %s: %w", drive.ID, err)
	}

	c.logger.Info("drive added to catalog", "drive", drive.ID, "name", drive.Name)
	return nil
}

const driveColumns = `id, name, path, total_capacity, used_space, free_space,
                      format_type, added_date, last_updated, file_count, status`

// GetDrive returns the drive row, or nil when the catalog has no such drive.
func (c *Catalog) GetDrive(ctx context.Context, driveID string) (*snapshot.DriveDescriptor, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT "+driveColumns+" FROM drives WHERE id = ?", driveID)

	drive, err := scanDrive(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding drive %s: %w", driveID, err)
	}
	return drive, nil
}

// ListDrives returns all drives, most recently updated first.
func (c *Catalog) ListDrives(ctx context.Context) ([]*snapshot.DriveDescriptor, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT "+driveColumns+" FROM drives ORDER BY last_updated DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing drives: %w", err)
	}
	defer rows.Close()

	var drives []*snapshot.DriveDescriptor
	for rows.Next() {
		drive, err := scanDrive(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning drive row: %w", err)
		}
		drives = append(drives, drive)
	}
	return drives, rows.Err()
}

// RemoveDrive deletes a drive row from the catalog. The caller is expected to
// have captured a snapshot first.
func (c *Catalog) RemoveDrive(ctx context.Context, driveID string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM drives WHERE id = ?", driveID); err != nil {
		return fmt.Errorf("removing drive %s: %w", driveID, err)
	}
	return nil
}

// DriveDatabasePath inspects the live storage layout and returns the drive's
// current database path: the highest-sequence generation present, the legacy
// name when that is all there is.
func (c *Catalog) DriveDatabasePath(driveID string) (string, error) {
	entries, err := os.ReadDir(c.dataDir)
	if err != nil {
		return "", fmt.Errorf("reading data directory: %w", err)
	}

	best := ""
	bestSeq := -2 // below legacy's -1 so a legacy file still wins over nothing
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, suffix, ok := snapshot.ParseLiveDatabaseName(entry.Name())
		if !ok || id != driveID {
			continue
		}
		seq := -1
		if suffix != "" {
			seq = snapshot.SequenceForSuffix(suffix)
		}
		if seq > bestSeq {
			bestSeq = seq
			best = filepath.Join(c.dataDir, entry.Name())
		}
	}

	if best == "" {
		return "", fmt.Errorf("no live database for drive %s", driveID)
	}
	return best, nil
}

// InitializeDriveDatabase (re)opens the drive's live database and ensures the
// file table schema exists. A drive with no live database yet gets a fresh
// init-generation file.
func (c *Catalog) InitializeDriveDatabase(ctx context.Context, driveID string) error {
	path, err := c.DriveDatabasePath(driveID)
	if err != nil {
		path = filepath.Join(c.dataDir, snapshot.LiveDatabaseFilename(driveID, snapshot.SuffixInit))
	}

	db, err := snapdb.Open(path)
	if err != nil {
		return fmt.Errorf("opening live database for drive %s: %w", driveID, err)
	}
	defer db.Close()

	if err := snapdb.EnsureFilesSchema(ctx, db); err != nil {
		return fmt.Errorf("initializing live database for drive %s: %w", driveID, err)
	}

	c.logger.Debug("live database initialized", "drive", driveID, "path", path)
	return nil
}

// RebuildSearchIndex drops and repopulates the drive's search index from the
// non-deleted rows of its live file table.
func (c *Catalog) RebuildSearchIndex(ctx context.Context, driveID string) error {
	path, err := c.DriveDatabasePath(driveID)
	if err != nil {
		return err
	}

	db, err := snapdb.Open(path)
	if err != nil {
		return fmt.Errorf("opening live database for drive %s: %w", driveID, err)
	}
	defer db.Close()

	const rebuild = `
DROP TABLE IF EXISTS search_index;
CREATE TABLE search_index (
	file_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	path TEXT NOT NULL
);
CREATE INDEX idx_search_index_name ON search_index(name);
INSERT INTO search_index (file_id, name, path)
	SELECT id, lower(name), path FROM files WHERE deleted = 0;
`
	if _, err := db.ExecContext(ctx, rebuild); err != nil {
		return fmt.Errorf("rebuilding search index for drive %s: %w", driveID, err)
	}

	c.logger.Info("search index rebuilt", "drive", driveID)
	return nil
}

// SetSetting stores an application setting in the catalog.
func (c *Catalog) SetSetting(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("saving setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns an application setting, or "" when unset.
func (c *Catalog) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func scanDrive(scan func(dest ...any) error) (*snapshot.DriveDescriptor, error) {
	var d snapshot.DriveDescriptor
	var added, updated int64
	err := scan(&d.ID, &d.Name, &d.Path, &d.TotalCapacity, &d.UsedSpace, &d.FreeSpace,
		&d.FormatType, &added, &updated, &d.FileCount, &d.Status)
	if err != nil {
		return nil, err
	}
	d.AddedDate = timeOrZero(added)
	d.LastUpdated = timeOrZero(updated)
	return &d, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
