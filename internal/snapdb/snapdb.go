// Package snapdb provides low-level access to the SQLite files the snapshot
// engine works with: per-drive databases (live or frozen in a snapshot) and
// the central catalog database.
package snapdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Core catalog table names. A catalog snapshot must expose at least one of
// them to pass validation.
const (
	CatalogDrivesTable   = "drives"
	CatalogSettingsTable = "settings"
)

// Open opens a per-drive or catalog database for reading and writing.
// path can be a file path or ":memory:" for an in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Wait for locks instead of failing immediately; snapshot files are
	// immutable but live databases may be held briefly by the scanner.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// OpenReadOnly opens a database file without the ability to write to it.
// Browsing and validation go through here so a snapshot is never mutated.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening database read-only: %w", err)
	}
	return db, nil
}

// TableNames returns the user tables in the database.
func TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// HasTable reports whether the database contains the named user table.
func HasTable(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking for table %s: %w", name, err)
	}
	return count > 0, nil
}
