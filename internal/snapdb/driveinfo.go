package snapdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DriveInfoTable is the current-generation single-row descriptor table
// embedded in a drive database.
const DriveInfoTable = "drive_info"

const driveInfoSchema = `
CREATE TABLE IF NOT EXISTS drive_info (
	drive_id TEXT PRIMARY KEY,
	drive_name TEXT NOT NULL DEFAULT '',
	total_capacity INTEGER NOT NULL DEFAULT 0,
	used_space INTEGER NOT NULL DEFAULT 0,
	free_space INTEGER NOT NULL DEFAULT 0,
	format_type TEXT NOT NULL DEFAULT '',
	added_date INTEGER NOT NULL DEFAULT 0,
	last_updated INTEGER NOT NULL DEFAULT 0,
	file_count INTEGER NOT NULL DEFAULT 0,
	reconciled_at INTEGER NOT NULL DEFAULT 0
)
`

// DriveInfo is the embedded drive descriptor row. Timestamps are unix
// seconds; zero means unknown.
type DriveInfo struct {
	DriveID       string
	DriveName     string
	TotalCapacity int64
	UsedSpace     int64
	FreeSpace     int64
	FormatType    string
	AddedDate     int64
	LastUpdated   int64
	FileCount     int64
	ReconciledAt  int64
}

// EnsureDriveInfoTable creates the descriptor table if missing.
func EnsureDriveInfoTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, driveInfoSchema); err != nil {
		return fmt.Errorf("creating drive_info table: %w", err)
	}
	return nil
}

// ReadDriveInfo returns the descriptor row, or nil when the table is empty.
// The caller is expected to have checked that the table exists.
func ReadDriveInfo(ctx context.Context, db *sql.DB) (*DriveInfo, error) {
	row := db.QueryRowContext(ctx,
		`SELECT drive_id, drive_name, total_capacity, used_space, free_space,
		        format_type, added_date, last_updated, file_count, reconciled_at
		 FROM drive_info LIMIT 1`)

	var info DriveInfo
	err := row.Scan(&info.DriveID, &info.DriveName, &info.TotalCapacity, &info.UsedSpace,
		&info.FreeSpace, &info.FormatType, &info.AddedDate, &info.LastUpdated,
		&info.FileCount, &info.ReconciledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading drive_info: %w", err)
	}
	return &info, nil
}

// CountDriveInfoRows counts descriptor rows for a drive id.
func CountDriveInfoRows(ctx context.Context, db *sql.DB, driveID string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM drive_info WHERE drive_id = ?", driveID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting drive_info rows: %w", err)
	}
	return count, nil
}

// InsertDriveInfo inserts the descriptor row.
func InsertDriveInfo(ctx context.Context, db *sql.DB, info *DriveInfo) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO drive_info (drive_id, drive_name, total_capacity, used_space, free_space,
		                         format_type, added_date, last_updated, file_count, reconciled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.DriveID, info.DriveName, info.TotalCapacity, info.UsedSpace, info.FreeSpace,
		info.FormatType, info.AddedDate, info.LastUpdated, info.FileCount, info.ReconciledAt)
	if err != nil {
		return fmt.Errorf("inserting drive_info: %w", err)
	}
	return nil
}

// UpdateDriveInfoFileCount refreshes the recomputed file count and the
// reconciliation timestamp. Capacity and usage fields reflect the point in
// time the snapshot was taken, so they are deliberately left untouched.
func UpdateDriveInfoFileCount(ctx context.Context, db *sql.DB, driveID string, fileCount, reconciledAt int64) error {
	_, err := db.ExecContext(ctx,
		"UPDATE drive_info SET file_count = ?, reconciled_at = ? WHERE drive_id = ?",
		fileCount, reconciledAt, driveID)
	if err != nil {
		return fmt.Errorf("updating drive_info file count: %w", err)
	}
	return nil
}
