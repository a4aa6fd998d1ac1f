package snapshot

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapdb"
)

// reconcileDriveMetadata backfills the embedded descriptor of a freshly
// copied drive snapshot. The snapshot file itself is the valuable artifact;
// metadata is best-effort enrichment, so every failure here is logged and
// swallowed rather than failing the capture.
//
// The file count is always recomputed from the file table. A caller- or
// metadata-supplied count can be stale relative to the scan results now
// frozen in the snapshot.
func (e *Engine) reconcileDriveMetadata(ctx context.Context, path, driveID, driveName string, hint *DriveStats) {
	db, err := snapdb.Open(path)
	if err != nil {
		e.logger.Warn("metadata reconcile skipped", "snapshot", path, "error", err)
		return
	}
	defer db.Close()

	count, err := snapdb.CountActiveFiles(ctx, db)
	if err != nil {
		e.logger.Warn("metadata reconcile failed counting files", "snapshot", path, "error", err)
		return
	}

	hasTable, err := snapdb.HasTable(ctx, db, snapdb.DriveInfoTable)
	if err != nil {
		e.logger.Warn("metadata reconcile failed inspecting schema", "snapshot", path, "error", err)
		return
	}

	now := e.clock.Now().Unix()

	if !hasTable {
		if err := snapdb.EnsureDriveInfoTable(ctx, db); err != nil {
			e.logger.Warn("metadata reconcile failed creating drive_info", "snapshot", path, "error", err)
			return
		}
	}

	rows := int64(0)
	if hasTable {
		rows, err = snapdb.CountDriveInfoRows(ctx, db, driveID)
		if err != nil {
			e.logger.Warn("metadata reconcile failed reading drive_info", "snapshot", path, "error", err)
			return
		}
	}

	if rows == 0 {
		// Populate from the caller-supplied hint plus the recomputed count.
		// Without a hint, capacity/usage stay at zero: identity is still
		// recoverable from the invocation parameters.
		info := &snapdb.DriveInfo{
			DriveID:      driveID,
			DriveName:    driveName,
			FileCount:    count,
			ReconciledAt: now,
		}
		if hint != nil {
			info.TotalCapacity = hint.TotalCapacity
			info.UsedSpace = hint.UsedSpace
			info.FreeSpace = hint.FreeSpace
			info.FormatType = hint.FormatType
			info.AddedDate = unixOrZero(hint.AddedDate)
			info.LastUpdated = unixOrZero(hint.LastUpdated)
		}
		if err := snapdb.InsertDriveInfo(ctx, db, info); err != nil {
			e.logger.Warn("metadata reconcile failed inserting descriptor", "snapshot", path, "error", err)
		}
		return
	}

	// A row already exists: refresh only the file count and the reconcile
	// timestamp. Capacity/usage reflect the moment the snapshot was taken.
	if err := snapdb.UpdateDriveInfoFileCount(ctx, db, driveID, count, now); err != nil {
		e.logger.Warn("metadata reconcile failed updating file count", "snapshot", path, "error", err)
	}
}

// resolvedMeta is what the fallback chain recovers about the drive a snapshot
// belongs to.
type resolvedMeta struct {
	driveID     string
	driveName   string
	drivePath   string
	stats       *DriveStats
	addedDate   time.Time
	lastUpdated time.Time
}

// metadataResolver is one strategy of the fallback chain. It returns nil when
// its source is unavailable so the next resolver is tried. Keeping the chain
// as an ordered list keeps it extensible if a third schema generation is ever
// introduced.
type metadataResolver func(ctx context.Context, db *sql.DB, name NameInfo) (*resolvedMeta, error)

// resolveDriveMeta runs the fallback chain against an opened snapshot:
// the current descriptor table, then the legacy key/value table, then the
// filename-derived drive id plus the in-memory hint. db may be nil when the
// file could not be opened, in which case only the hint resolver runs.
func (e *Engine) resolveDriveMeta(ctx context.Context, db *sql.DB, name NameInfo) *resolvedMeta {
	if db != nil {
		embedded := []metadataResolver{
			e.resolveFromDriveInfo,
			e.resolveFromLegacyMetadata,
		}
		for _, resolve := range embedded {
			meta, err := resolve(ctx, db, name)
			if err != nil {
				e.logger.Debug("metadata resolver failed", "drive", name.DriveID, "error", err)
				continue
			}
			if meta != nil {
				return meta
			}
		}
	}

	if meta, _ := e.resolveFromHint(ctx, nil, name); meta != nil {
		return meta
	}
	return nil
}

func (e *Engine) resolveFromDriveInfo(ctx context.Context, db *sql.DB, name NameInfo) (*resolvedMeta, error) {
	has, err := snapdb.HasTable(ctx, db, snapdb.DriveInfoTable)
	if err != nil || !has {
		return nil, err
	}
	info, err := snapdb.ReadDriveInfo(ctx, db)
	if err != nil || info == nil {
		return nil, err
	}

	return &resolvedMeta{
		driveID:   info.DriveID,
		driveName: info.DriveName,
		stats: &DriveStats{
			TotalCapacity: info.TotalCapacity,
			UsedSpace:     info.UsedSpace,
			FreeSpace:     info.FreeSpace,
			FormatType:    info.FormatType,
			AddedDate:     timeOrZero(info.AddedDate),
			LastUpdated:   timeOrZero(info.LastUpdated),
			FileCount:     info.FileCount,
		},
		addedDate:   timeOrZero(info.AddedDate),
		lastUpdated: timeOrZero(info.LastUpdated),
	}, nil
}

func (e *Engine) resolveFromLegacyMetadata(ctx context.Context, db *sql.DB, name NameInfo) (*resolvedMeta, error) {
	has, err := snapdb.HasTable(ctx, db, snapdb.LegacyMetadataTable)
	if err != nil || !has {
		return nil, err
	}
	kv, err := snapdb.ReadLegacyMetadata(ctx, db)
	if err != nil {
		return nil, err
	}

	driveID := metaString(kv, "driveId")
	if driveID == "" {
		return nil, nil
	}

	meta := &resolvedMeta{
		driveID:   driveID,
		driveName: metaString(kv, "driveName"),
		drivePath: metaString(kv, "path"),
		stats: &DriveStats{
			TotalCapacity: metaInt(kv, "totalCapacity"),
			UsedSpace:     metaInt(kv, "usedSpace"),
			FreeSpace:     metaInt(kv, "freeSpace"),
			FormatType:    metaString(kv, "formatType"),
			AddedDate:     metaTime(kv, "addedDate"),
			LastUpdated:   metaTime(kv, "lastUpdated"),
			FileCount:     metaInt(kv, "fileCount"),
		},
	}
	meta.addedDate = meta.stats.AddedDate
	meta.lastUpdated = meta.stats.LastUpdated
	return meta, nil
}

func (e *Engine) resolveFromHint(_ context.Context, _ *sql.DB, name NameInfo) (*resolvedMeta, error) {
	if name.DriveID == "" {
		return nil, nil
	}
	meta := &resolvedMeta{driveID: name.DriveID}
	if hint, ok := e.hintFor(name.DriveID); ok {
		meta.driveName = hint.name
		meta.stats = hint.stats
		if hint.stats != nil {
			meta.addedDate = hint.stats.AddedDate
			meta.lastUpdated = hint.stats.LastUpdated
		}
	}
	return meta, nil
}

// capturedAt derives the point in time a snapshot represents: the metadata
// date appropriate to the snapshot's role (creation date for the initial
// snapshot, last-update for sync snapshots), falling back to the snapshot
// file's own modification time.
func capturedAt(meta *resolvedMeta, name NameInfo, fileModTime time.Time) time.Time {
	if meta != nil {
		switch {
		case name.Sequence == 0 && !meta.addedDate.IsZero():
			return meta.addedDate
		case name.Sequence > 0 && !meta.lastUpdated.IsZero():
			return meta.lastUpdated
		case name.Sequence < 0:
			if !meta.lastUpdated.IsZero() {
				return meta.lastUpdated
			}
			if !meta.addedDate.IsZero() {
				return meta.addedDate
			}
		}
	}
	return fileModTime
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

func metaString(kv map[string]any, key string) string {
	if s, ok := kv[key].(string); ok {
		return s
	}
	return ""
}

func metaInt(kv map[string]any, key string) int64 {
	switch v := kv[key].(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func metaTime(kv map[string]any, key string) time.Time {
	switch v := kv[key].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
