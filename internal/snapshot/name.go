package snapshot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Filename contract. Later code orders snapshots by the sequence encoded
// here, so the naming must stay bit-exact:
//
//	snapshot_<driveId>_<suffix>.db   suffix ∈ {init, sync1, sync2, ...}
//	snapshot_<driveId>.db            legacy, no sequence encoded
//	catalog_snapshot_<unixMillis>.db
const (
	drivePrefix   = "snapshot_"
	catalogPrefix = "catalog_snapshot_"
	dbExt         = ".db"

	// SuffixInit marks the snapshot of a drive's initial full scan.
	SuffixInit = "init"
)

var suffixPattern = regexp.MustCompile(`^(init|sync[0-9]+)$`)

// NameInfo is the result of parsing a snapshot filename.
type NameInfo struct {
	Kind     Kind
	DriveID  string
	Suffix   string    // "" for legacy and catalog names
	Sequence int       // -1 when the name encodes none
	Captured time.Time // catalog names only, from the embedded millis
}

// DriveSnapshotFilename builds the filename for a drive snapshot.
func DriveSnapshotFilename(driveID, suffix string) string {
	return drivePrefix + driveID + "_" + suffix + dbExt
}

// CatalogSnapshotFilename builds the filename for a catalog snapshot taken at t.
func CatalogSnapshotFilename(t time.Time) string {
	return fmt.Sprintf("%s%d%s", catalogPrefix, t.UnixMilli(), dbExt)
}

// SuffixForSequence returns the filename suffix for a sequence ordinal.
func SuffixForSequence(seq int) string {
	if seq <= 0 {
		return SuffixInit
	}
	return "sync" + strconv.Itoa(seq)
}

// SequenceForSuffix returns the ordinal a suffix encodes, or -1 if the
// suffix is not part of the naming scheme.
func SequenceForSuffix(suffix string) int {
	if suffix == SuffixInit {
		return 0
	}
	if n, ok := strings.CutPrefix(suffix, "sync"); ok {
		if seq, err := strconv.Atoi(n); err == nil && seq > 0 {
			return seq
		}
	}
	return -1
}

// ParseSnapshotFilename classifies a filename from the snapshot directory.
// It returns false for files that are not snapshots. Snapshot names are bare
// filenames; anything containing a path separator is rejected so that ids
// handed in from outside can never address a file outside the snapshot
// directory.
func ParseSnapshotFilename(name string) (NameInfo, bool) {
	if strings.ContainsAny(name, `/\`) {
		return NameInfo{}, false
	}
	if !strings.HasSuffix(name, dbExt) {
		return NameInfo{}, false
	}
	stem := strings.TrimSuffix(name, dbExt)

	if millis, ok := strings.CutPrefix(stem, catalogPrefix); ok {
		info := NameInfo{Kind: KindCatalog, Sequence: -1}
		if ms, err := strconv.ParseInt(millis, 10, 64); err == nil && ms > 0 {
			info.Captured = time.UnixMilli(ms)
		}
		return info, true
	}

	body, ok := strings.CutPrefix(stem, drivePrefix)
	if !ok || body == "" {
		return NameInfo{}, false
	}

	// The drive id may itself contain underscores, so only the final
	// segment is considered a suffix, and only when it matches the scheme.
	if idx := strings.LastIndex(body, "_"); idx > 0 {
		tail := body[idx+1:]
		if suffixPattern.MatchString(tail) {
			return NameInfo{
				Kind:     KindDrive,
				DriveID:  body[:idx],
				Suffix:   tail,
				Sequence: SequenceForSuffix(tail),
			}, true
		}
	}

	// Legacy naming: no sequence encoded.
	return NameInfo{Kind: KindDrive, DriveID: body, Sequence: -1}, true
}

// ParseLiveDatabaseName extracts the drive id and suffix from a live
// per-drive database filename (drive_<driveId>_<suffix>.db, legacy
// drive_<driveId>.db).
func ParseLiveDatabaseName(name string) (driveID, suffix string, ok bool) {
	if !strings.HasSuffix(name, dbExt) {
		return "", "", false
	}
	body, found := strings.CutPrefix(strings.TrimSuffix(name, dbExt), "drive_")
	if !found || body == "" {
		return "", "", false
	}
	if idx := strings.LastIndex(body, "_"); idx > 0 {
		tail := body[idx+1:]
		if suffixPattern.MatchString(tail) {
			return body[:idx], tail, true
		}
	}
	return body, "", true
}

// LiveDatabaseFilename builds the live per-drive database filename. An empty
// suffix produces the legacy name, preserving the old convention end to end.
func LiveDatabaseFilename(driveID, suffix string) string {
	if suffix == "" {
		return "drive_" + driveID + dbExt
	}
	return "drive_" + driveID + "_" + suffix + dbExt
}
