package snapshot

import "context"

// LiveCatalog is the external catalog/storage collaborator the restore
// orchestrator writes through. The engine never mutates the live catalog
// directly; everything beyond the snapshot directory and the copied database
// file goes through this interface.
type LiveCatalog interface {
	// AddDrive reinserts a drive row into the live catalog. Implementations
	// must be idempotent for the same drive id.
	AddDrive(ctx context.Context, drive *DriveDescriptor) error

	// InitializeDriveDatabase (re)opens the drive's live database and ensures
	// its schema is usable.
	InitializeDriveDatabase(ctx context.Context, driveID string) error

	// RebuildSearchIndex rebuilds the full-text search index for a drive from
	// its live database.
	RebuildSearchIndex(ctx context.Context, driveID string) error

	// GetDrive returns the drive row, or nil when the catalog has no such
	// drive.
	GetDrive(ctx context.Context, driveID string) (*DriveDescriptor, error)
}
