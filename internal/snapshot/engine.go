package snapshot

import (
	"path/filepath"
	"sync"
)

// Engine is the snapshot lifecycle engine: it creates, enumerates, validates,
// browses, and restores point-in-time copies of drive databases and of the
// central catalog database.
//
// All side effects of capture, delete, and cleanup are confined to the
// snapshot directory. Restore additionally writes the live database file and
// calls through the LiveCatalog collaborator.
type Engine struct {
	snapshotDir string
	dataDir     string
	catalog     LiveCatalog
	vault       Vault     // nil disables export/import
	encryptor   Encryptor // nil disables encrypted export
	logger      Logger
	clock       Clock
	locks       *driveLocks

	mu    sync.RWMutex
	hints map[string]driveHint
}

// NewEngine creates an Engine. snapshotDir holds the snapshot files; dataDir
// is where live per-drive databases are materialized on restore. vault and
// encryptor may be nil when offsite export is not configured.
func NewEngine(snapshotDir, dataDir string, catalog LiveCatalog, vault Vault, encryptor Encryptor, logger Logger, clock Clock) *Engine {
	return &Engine{
		snapshotDir: snapshotDir,
		dataDir:     dataDir,
		catalog:     catalog,
		vault:       vault,
		encryptor:   encryptor,
		logger:      logger,
		clock:       clock,
		locks:       newDriveLocks(),
		hints:       make(map[string]driveHint),
	}
}

// RegisterDriveHint records in-memory knowledge about a drive (display name,
// capacity stats). Hints are the last resort of the metadata fallback chain
// when a snapshot embeds neither schema generation.
func (e *Engine) RegisterDriveHint(driveID, driveName string, stats *DriveStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hints[driveID] = driveHint{name: driveName, stats: stats}
}

func (e *Engine) hintFor(driveID string) (driveHint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.hints[driveID]
	return h, ok
}

// SnapshotPath resolves a snapshot id back to its file path. The id is the
// filename minus the .db extension, so the mapping is mechanical.
func (e *Engine) SnapshotPath(id string) string {
	return filepath.Join(e.snapshotDir, id+dbExt)
}
