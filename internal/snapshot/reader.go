package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapdb"
)

// ListSnapshots turns the snapshot directory into structured descriptors,
// sorted by capture time descending (newest first). Listing is advisory:
// unreadable files are skipped with a log line, and any failure yields an
// empty result rather than an error.
func (e *Engine) ListSnapshots(ctx context.Context) []*Descriptor {
	entries, err := os.ReadDir(e.snapshotDir)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("listing snapshots failed", "dir", e.snapshotDir, "error", err)
		}
		return nil
	}

	var out []*Descriptor
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		desc := e.describeSnapshot(ctx, entry.Name())
		if desc != nil {
			out = append(out, desc)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	return out
}

// describeSnapshot builds one descriptor, resolving fields through the
// fallback chain: embedded descriptor table, legacy key/value table, then the
// filename-derived id plus the in-memory hint.
func (e *Engine) describeSnapshot(ctx context.Context, filename string) *Descriptor {
	name, ok := ParseSnapshotFilename(filename)
	if !ok {
		return nil
	}

	path := filepath.Join(e.snapshotDir, filename)
	fi, err := os.Stat(path)
	if err != nil {
		e.logger.Warn("snapshot unreadable", "file", filename, "error", err)
		return nil
	}

	desc := &Descriptor{
		ID:          strings.TrimSuffix(filename, dbExt),
		Kind:        name.Kind,
		Sequence:    name.Sequence,
		SizeBytes:   fi.Size(),
		StoragePath: path,
	}

	if name.Kind == KindCatalog {
		desc.CapturedAt = name.Captured
		if desc.CapturedAt.IsZero() {
			desc.CapturedAt = fi.ModTime()
		}
		return desc
	}

	db, err := snapdb.OpenReadOnly(path)
	if err != nil {
		e.logger.Debug("snapshot metadata unreadable", "file", filename, "error", err)
		db = nil
	} else {
		defer db.Close()
	}

	meta := e.resolveDriveMeta(ctx, db, name)
	desc.DriveID = name.DriveID
	if meta != nil {
		if meta.driveID != "" {
			desc.DriveID = meta.driveID
		}
		desc.DriveName = meta.driveName
		desc.Stats = meta.stats
	}
	desc.CapturedAt = capturedAt(meta, name, fi.ModTime())
	return desc
}

// GroupByDrive groups drive snapshots by drive for the recover view. Within a
// group, snapshots sort by sequence ascending; sequence-less (legacy) names
// sort last, ordered among themselves by capture time so the group's last
// element, its Latest, is the highest sequence, or the most recent when no
// sequence is available. Groups sort by their Latest capture time, newest
// first.
func (e *Engine) GroupByDrive(ctx context.Context) []*DriveGroup {
	byDrive := make(map[string]*DriveGroup)
	var order []string

	for _, desc := range e.ListSnapshots(ctx) {
		if desc.Kind != KindDrive {
			continue
		}
		g, ok := byDrive[desc.DriveID]
		if !ok {
			g = &DriveGroup{DriveID: desc.DriveID}
			byDrive[desc.DriveID] = g
			order = append(order, desc.DriveID)
		}
		if g.DriveName == "" {
			g.DriveName = desc.DriveName
		}
		g.Snapshots = append(g.Snapshots, desc)
	}

	groups := make([]*DriveGroup, 0, len(byDrive))
	for _, id := range order {
		g := byDrive[id]
		sort.SliceStable(g.Snapshots, func(i, j int) bool {
			a, b := g.Snapshots[i], g.Snapshots[j]
			switch {
			case a.Sequence >= 0 && b.Sequence >= 0:
				return a.Sequence < b.Sequence
			case a.Sequence >= 0:
				return true // sequenced before legacy
			case b.Sequence >= 0:
				return false
			default:
				return a.CapturedAt.Before(b.CapturedAt)
			}
		})
		g.Count = len(g.Snapshots)
		g.Latest = g.Snapshots[len(g.Snapshots)-1]
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Latest.CapturedAt.After(groups[j].Latest.CapturedAt)
	})
	return groups
}

// CleanupOlderThan deletes every snapshot captured more than maxAgeDays ago
// and returns the number of files actually removed. Deletions are
// independent: one failure never aborts the rest.
func (e *Engine) CleanupOlderThan(ctx context.Context, maxAgeDays int) int {
	cutoff := e.clock.Now().AddDate(0, 0, -maxAgeDays)

	deleted := 0
	for _, desc := range e.ListSnapshots(ctx) {
		if !desc.CapturedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(desc.StoragePath); err != nil {
			e.logger.Warn("cleanup failed for snapshot", "id", desc.ID, "error", err)
			continue
		}
		e.logger.Info("expired snapshot removed", "id", desc.ID, "capturedAt", desc.CapturedAt)
		deleted++
	}
	return deleted
}

// UsageSummary aggregates physical usage over all snapshots.
func (e *Engine) UsageSummary(ctx context.Context) Usage {
	var u Usage
	for _, desc := range e.ListSnapshots(ctx) {
		u.TotalSizeBytes += desc.SizeBytes
		u.FileCount++
	}
	return u
}

// Validate opens the snapshot read-only and confirms it exposes the schema
// shape expected for its kind: drive snapshots a non-empty table set, catalog
// snapshots at least one of the two core catalog tables. Missing or
// unreadable files (including zero-byte or non-database files) are invalid,
// never an error.
func (e *Engine) Validate(ctx context.Context, desc *Descriptor) bool {
	if desc == nil {
		return false
	}
	if _, err := os.Stat(desc.StoragePath); err != nil {
		return false
	}

	db, err := snapdb.OpenReadOnly(desc.StoragePath)
	if err != nil {
		return false
	}
	defer db.Close()

	switch desc.Kind {
	case KindCatalog:
		for _, table := range []string{snapdb.CatalogDrivesTable, snapdb.CatalogSettingsTable} {
			if ok, err := snapdb.HasTable(ctx, db, table); err == nil && ok {
				return true
			}
		}
		return false
	default:
		tables, err := snapdb.TableNames(ctx, db)
		return err == nil && len(tables) > 0
	}
}
