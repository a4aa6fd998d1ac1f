package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CaptureDriveSnapshot copies the drive's live database into the snapshot
// directory and backfills its embedded descriptor. It is called before any
// destructive operation (drive deletion, re-sync), so it must never block the
// triggering operation: every failure is logged and reported as false, and a
// failed capture leaves no partial snapshot behind.
//
// The sequence suffix is taken from the live database's own filename, which
// encodes whether it is an init or syncN generation.
func (e *Engine) CaptureDriveSnapshot(ctx context.Context, driveID, driveName, liveDBPath string, hint *DriveStats) bool {
	unlock := e.locks.acquire(driveLockKey(driveID))
	defer unlock()

	if _, err := os.Stat(liveDBPath); err != nil {
		e.logger.Error("capture skipped, live database missing", "drive", driveID, "path", liveDBPath, "error", err)
		return false
	}

	suffix := suffixFromLiveName(filepath.Base(liveDBPath))
	destPath := filepath.Join(e.snapshotDir, DriveSnapshotFilename(driveID, suffix))

	if err := e.copySnapshotFile(liveDBPath, destPath); err != nil {
		e.logger.Error("capture failed", "drive", driveID, "error", err)
		return false
	}

	e.RegisterDriveHint(driveID, driveName, hint)
	e.reconcileDriveMetadata(ctx, destPath, driveID, driveName, hint)

	e.logger.Info("drive snapshot captured", "drive", driveID, "snapshot", destPath)
	return true
}

// CaptureCatalogSnapshot copies the central catalog database into the
// snapshot directory. Catalog snapshots are self-describing by their own
// schema, so no metadata backfill happens.
func (e *Engine) CaptureCatalogSnapshot(ctx context.Context, liveCatalogPath string) bool {
	unlock := e.locks.acquire(catalogLockKey)
	defer unlock()

	if _, err := os.Stat(liveCatalogPath); err != nil {
		e.logger.Error("catalog capture skipped, catalog missing", "path", liveCatalogPath, "error", err)
		return false
	}

	destPath := filepath.Join(e.snapshotDir, CatalogSnapshotFilename(e.clock.Now()))
	if err := e.copySnapshotFile(liveCatalogPath, destPath); err != nil {
		e.logger.Error("catalog capture failed", "error", err)
		return false
	}

	e.logger.Info("catalog snapshot captured", "snapshot", destPath)
	return true
}

// DeleteSnapshot removes a snapshot file by id.
func (e *Engine) DeleteSnapshot(ctx context.Context, id string) bool {
	info, ok := ParseSnapshotFilename(id + dbExt)
	if !ok {
		e.logger.Error("delete refused, not a snapshot id", "id", id)
		return false
	}

	if info.Kind == KindDrive {
		unlock := e.locks.acquire(driveLockKey(info.DriveID))
		defer unlock()
	}

	if err := os.Remove(e.SnapshotPath(id)); err != nil {
		e.logger.Error("delete failed", "id", id, "error", err)
		return false
	}

	e.logger.Info("snapshot deleted", "id", id)
	return true
}

// copySnapshotFile copies src byte-for-byte into the snapshot directory.
func (e *Engine) copySnapshotFile(src, dest string) error {
	if err := os.MkdirAll(e.snapshotDir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	return copyFileAtomic(src, dest)
}

// copyFileAtomic copies src to dest via a temp file in dest's directory and a
// rename, so a failed copy never leaves a partial file behind.
func copyFileAtomic(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copying snapshot bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// suffixFromLiveName derives the sequence suffix from a live database
// filename. Files that encode no recognizable suffix count as the initial
// generation.
func suffixFromLiveName(name string) string {
	stem := strings.TrimSuffix(name, dbExt)
	if idx := strings.LastIndex(stem, "_"); idx >= 0 {
		if tail := stem[idx+1:]; suffixPattern.MatchString(tail) {
			return tail
		}
	}
	return SuffixInit
}
