package snapshot

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapdb"
)

// Browsing caps. A preview never needs more; the live UI paginates.
const (
	rootListingCap = 1000
	fullTreeCap    = 5000
)

// ListRoot returns the snapshot's top-level entries: non-deleted rows with an
// empty parent path, directories first then name ascending, capped at 1000.
// Browsing is advisory, so failures yield an empty result.
func (e *Engine) ListRoot(ctx context.Context, id string) []FileEntry {
	db, ok := e.openForBrowsing(id)
	if !ok {
		return nil
	}
	defer db.Close()

	rows, err := snapdb.QueryRootFiles(ctx, db, rootListingCap)
	if err != nil {
		e.logger.Warn("root listing failed", "snapshot", id, "error", err)
		return nil
	}
	return toFileEntries(rows, id)
}

// ListChildren returns one page of a directory's children: non-deleted rows
// whose parent path equals parentPath exactly. It fetches limit+1 rows to
// determine HasMore without a second count query, then trims the page.
func (e *Engine) ListChildren(ctx context.Context, id, parentPath string, limit, offset int) ChildPage {
	if limit <= 0 {
		return ChildPage{}
	}

	db, ok := e.openForBrowsing(id)
	if !ok {
		return ChildPage{}
	}
	defer db.Close()

	rows, err := snapdb.QueryChildFiles(ctx, db, parentPath, limit+1, offset)
	if err != nil {
		e.logger.Warn("children listing failed", "snapshot", id, "parent", parentPath, "error", err)
		return ChildPage{}
	}

	page := ChildPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	page.Entries = toFileEntries(rows, id)
	return page
}

// FullTree returns every non-deleted entry in the snapshot, capped at 5000,
// with each entry's depth computed from the number of path separators in its
// parent path.
func (e *Engine) FullTree(ctx context.Context, id string) []FileEntry {
	db, ok := e.openForBrowsing(id)
	if !ok {
		return nil
	}
	defer db.Close()

	rows, err := snapdb.QueryAllFiles(ctx, db, fullTreeCap)
	if err != nil {
		e.logger.Warn("tree dump failed", "snapshot", id, "error", err)
		return nil
	}

	entries := toFileEntries(rows, id)
	for i := range entries {
		entries[i].Depth = pathDepth(entries[i].ParentPath)
	}
	return entries
}

func (e *Engine) openForBrowsing(id string) (*sql.DB, bool) {
	if _, ok := ParseSnapshotFilename(id + dbExt); !ok {
		e.logger.Warn("not a snapshot id", "snapshot", id)
		return nil, false
	}
	db, err := snapdb.OpenReadOnly(e.SnapshotPath(id))
	if err != nil {
		e.logger.Warn("snapshot not browsable", "snapshot", id, "error", err)
		return nil, false
	}
	return db, true
}

// toFileEntries converts raw rows into the shape the UI consumes. A snapshot
// is browsed independently of any live drive, so DriveID carries the snapshot
// id and downstream rendering treats snapshot contents uniformly with live
// contents.
func toFileEntries(rows []snapdb.FileRow, snapshotID string) []FileEntry {
	entries := make([]FileEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, FileEntry{
			ID:          r.ID,
			Name:        r.Name,
			Path:        r.Path,
			ParentPath:  r.ParentPath,
			Size:        r.Size,
			IsDirectory: r.IsDirectory,
			Created:     timeOrZero(r.Created),
			Modified:    timeOrZero(r.Modified),
			DriveID:     snapshotID,
		})
	}
	return entries
}

func pathDepth(parentPath string) int {
	return strings.Count(parentPath, "/")
}
