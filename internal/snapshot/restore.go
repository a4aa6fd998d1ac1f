package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapdb"
)

// RestoreResult reports a completed restore: the drive that came back and the
// files written on disk along the way.
type RestoreResult struct {
	DriveID      string
	DriveName    string
	FilesWritten []string
}

// Restore re-materializes a drive snapshot into the live system: the snapshot
// bytes are copied back to the live storage location, the drive is reinserted
// into the live catalog, and the collaborator reinitializes the live database
// and rebuilds the search index. Restore is user-initiated recovery, so it is
// fail-fast: each step's error comes back as a *RestoreError naming the step.
//
// Steps already completed are not rolled back. A failure after
// ReinsertIntoCatalog leaves the drive usable but possibly un-searchable; the
// whole operation is idempotent, so retrying the restore repairs that state.
// The snapshot itself is only ever read.
func (e *Engine) Restore(ctx context.Context, id string) (*RestoreResult, error) {
	// Validate.
	name, ok := ParseSnapshotFilename(id + dbExt)
	if !ok || name.Kind != KindDrive {
		return nil, restoreFailed(StepValidate, fmt.Errorf("%w: %s is not a drive snapshot", ErrSchemaMismatch, id))
	}
	path := e.SnapshotPath(id)
	if _, err := os.Stat(path); err != nil {
		return nil, restoreFailed(StepValidate, fmt.Errorf("%w: %s", ErrNotFound, path))
	}

	unlock := e.locks.acquire(driveLockKey(name.DriveID))
	defer unlock()

	e.logger.Info("restore started", "snapshot", id)

	// ResolveIdentity: same fallback chain as listing. Nothing is written
	// before identity is known.
	db, err := snapdb.OpenReadOnly(path)
	if err != nil {
		db = nil
	} else {
		defer db.Close()
	}

	meta := e.resolveDriveMeta(ctx, db, name)
	if meta == nil || meta.driveID == "" {
		return nil, restoreFailed(StepResolveIdentity, ErrIdentityUnresolvable)
	}
	driveID := meta.driveID

	// CopyToLiveLocation. The suffix parsed off the snapshot filename is
	// preserved so the live naming convention stays consistent after restore;
	// legacy snapshots restore to the legacy live name.
	livePath := filepath.Join(e.dataDir, LiveDatabaseFilename(driveID, name.Suffix))
	if err := os.MkdirAll(filepath.Dir(livePath), 0755); err != nil {
		return nil, restoreFailed(StepCopy, fmt.Errorf("creating live directory: %w", err))
	}
	if err := copyFileAtomic(path, livePath); err != nil {
		return nil, restoreFailed(StepCopy, err)
	}
	filesWritten := []string{livePath}

	// ReinsertIntoCatalog.
	drive := driveDescriptorFromMeta(meta, livePath)
	if err := e.catalog.AddDrive(ctx, drive); err != nil {
		return nil, restoreFailed(StepReinsert, err)
	}

	// ReinitializeLiveDatabase.
	if err := e.catalog.InitializeDriveDatabase(ctx, driveID); err != nil {
		return nil, restoreFailed(StepReinitialize, err)
	}

	// RebuildSearchIndex.
	if err := e.catalog.RebuildSearchIndex(ctx, driveID); err != nil {
		return nil, restoreFailed(StepRebuildIndex, err)
	}

	// VerifyReinsertion: the drive's presence in the catalog is the success
	// signal.
	got, err := e.catalog.GetDrive(ctx, driveID)
	if err != nil {
		return nil, restoreFailed(StepVerify, err)
	}
	if got == nil {
		return nil, restoreFailed(StepVerify, fmt.Errorf("drive %s missing from catalog after reinsert", driveID))
	}

	e.logger.Info("restore complete", "drive", driveID, "livePath", livePath)
	return &RestoreResult{
		DriveID:      driveID,
		DriveName:    got.Name,
		FilesWritten: filesWritten,
	}, nil
}

// driveDescriptorFromMeta reconstructs the catalog's drive shape from
// snapshot metadata.
func driveDescriptorFromMeta(meta *resolvedMeta, livePath string) *DriveDescriptor {
	drive := &DriveDescriptor{
		ID:     meta.driveID,
		Name:   meta.driveName,
		Path:   meta.drivePath,
		Status: "active",
	}
	if drive.Path == "" {
		drive.Path = livePath
	}
	if meta.stats != nil {
		drive.TotalCapacity = meta.stats.TotalCapacity
		drive.UsedSpace = meta.stats.UsedSpace
		drive.FreeSpace = meta.stats.FreeSpace
		drive.FormatType = meta.stats.FormatType
		drive.AddedDate = meta.stats.AddedDate
		drive.LastUpdated = meta.stats.LastUpdated
		drive.FileCount = meta.stats.FileCount
	}
	return drive
}
