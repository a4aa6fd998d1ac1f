package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rmacfarlane24/archivist-sub002/internal/catalog"
	"github.com/rmacfarlane24/archivist-sub002/internal/config"
	"github.com/rmacfarlane24/archivist-sub002/internal/encryption"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
	"github.com/rmacfarlane24/archivist-sub002/internal/vault"
)

// App is the application layer between the CLI and the snapshot engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string arguments, and manages the catalog DB lifecycle on
// Close.
type App struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	engine    *snapshot.Engine
	encryptor snapshot.Encryptor
	logCloser io.Closer

	// mutating marks operations that change the live catalog; Close captures
	// a catalog snapshot after them so the catalog itself is always
	// recoverable to its pre-change state on the next mutation.
	mutating bool
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Capture", "Restore").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	logger, logCloser, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	cat, err := catalog.Open(cfg.DataDir, log, catalog.UUIDGenerator{})
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	v, err := vault.NewVaultFromConfig(context.Background(), cfg.Vault)
	if err != nil {
		cat.Close()
		logCloser.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		cat.Close()
		logCloser.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	engine := snapshot.NewEngine(cfg.SnapshotDir, cfg.DataDir, cat, v, enc, log, snapshot.RealClock{})

	return &App{
		cfg:       cfg,
		catalog:   cat,
		engine:    engine,
		encryptor: enc,
		logCloser: logCloser,
	}, nil
}

// Engine exposes the snapshot engine for read-side commands.
func (a *App) Engine() *snapshot.Engine { return a.engine }

// Encryptor exposes the configured encryptor for key setup and import unlock.
func (a *App) Encryptor() snapshot.Encryptor { return a.encryptor }

// CreateDrive registers a new drive in the live catalog with a fresh id and
// an initialized live database.
func (a *App) CreateDrive(ctx context.Context, name, path string) (*snapshot.DriveDescriptor, error) {
	a.mutating = true
	return a.catalog.CreateDrive(ctx, name, path)
}

// Drives lists the drives known to the live catalog.
func (a *App) Drives(ctx context.Context) ([]*snapshot.DriveDescriptor, error) {
	return a.catalog.ListDrives(ctx)
}

// CaptureDrive snapshots a drive's live database. The live path and the
// drive's display name and stats come from the live catalog, so the caller
// only names the drive.
func (a *App) CaptureDrive(ctx context.Context, driveID string) (bool, error) {
	drive, err := a.catalog.GetDrive(ctx, driveID)
	if err != nil {
		return false, err
	}
	if drive == nil {
		return false, fmt.Errorf("unknown drive: %s", driveID)
	}

	livePath, err := a.catalog.DriveDatabasePath(driveID)
	if err != nil {
		return false, err
	}

	hint := &snapshot.DriveStats{
		TotalCapacity: drive.TotalCapacity,
		UsedSpace:     drive.UsedSpace,
		FreeSpace:     drive.FreeSpace,
		FormatType:    drive.FormatType,
		AddedDate:     drive.AddedDate,
		LastUpdated:   drive.LastUpdated,
		FileCount:     drive.FileCount,
	}
	return a.engine.CaptureDriveSnapshot(ctx, driveID, drive.Name, livePath, hint), nil
}

// CaptureCatalog snapshots the central catalog database.
func (a *App) CaptureCatalog(ctx context.Context) bool {
	return a.engine.CaptureCatalogSnapshot(ctx, a.catalog.Path())
}

// RemoveDrive captures a final snapshot of the drive and then deletes it from
// the live catalog. The snapshot is best-effort: a failed capture is reported
// but does not block the removal.
func (a *App) RemoveDrive(ctx context.Context, driveID string) (snapshotTaken bool, err error) {
	a.mutating = true

	snapshotTaken, err = a.CaptureDrive(ctx, driveID)
	if err != nil {
		snapshotTaken = false
	}

	if err := a.catalog.RemoveDrive(ctx, driveID); err != nil {
		return snapshotTaken, err
	}
	return snapshotTaken, nil
}

// Restore re-materializes a drive snapshot into the live system.
func (a *App) Restore(ctx context.Context, snapshotID string) (*snapshot.RestoreResult, error) {
	a.mutating = true
	return a.engine.Restore(ctx, snapshotID)
}

// Close releases all resources. After a mutating operation it first captures
// a catalog snapshot, so there is always a recovery point for the catalog
// itself.
func (a *App) Close() error {
	if a.mutating {
		a.engine.CaptureCatalogSnapshot(context.Background(), a.catalog.Path())
	}

	var firstErr error
	if err := a.catalog.Close(); err != nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log: %w", err)
		}
	}
	return firstErr
}
