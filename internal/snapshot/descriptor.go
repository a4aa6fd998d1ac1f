package snapshot

import "time"

// Kind distinguishes the two classes of snapshot the engine manages.
type Kind string

const (
	// KindDrive is a point-in-time copy of one drive's database.
	KindDrive Kind = "drive"
	// KindCatalog is a point-in-time copy of the central catalog database.
	KindCatalog Kind = "catalog"
)

// Descriptor is the unit the snapshot engine manages. The ID is derived from
// the snapshot filename (the name minus its .db extension) and is stable
// across listings.
type Descriptor struct {
	ID          string
	Kind        Kind
	DriveID     string
	DriveName   string
	Sequence    int // 0 for init, 1..N for syncN, -1 when the filename encodes none
	CapturedAt  time.Time
	SizeBytes   int64
	StoragePath string
	Stats       *DriveStats // nil when no source could recover them
}

// DriveStats is the capacity/usage descriptor embedded inside a drive
// snapshot. Zero values mean the field could not be recovered.
type DriveStats struct {
	TotalCapacity int64
	UsedSpace     int64
	FreeSpace     int64
	FormatType    string
	AddedDate     time.Time
	LastUpdated   time.Time
	FileCount     int64
}

// DriveDescriptor is the live catalog's view of a drive. The engine
// reconstructs this shape from snapshot metadata during restore.
type DriveDescriptor struct {
	ID            string
	Name          string
	Path          string
	TotalCapacity int64
	UsedSpace     int64
	FreeSpace     int64
	FormatType    string
	AddedDate     time.Time
	LastUpdated   time.Time
	FileCount     int64
	Status        string
}

// FileEntry is one row of a snapshot's file table as served to browsing
// callers. DriveID is synthetic: it carries the snapshot id so downstream
// rendering can treat snapshot contents uniformly with live contents.
type FileEntry struct {
	ID          int64
	Name        string
	Path        string
	ParentPath  string
	Size        int64
	IsDirectory bool
	Created     time.Time
	Modified    time.Time
	DriveID     string
	Depth       int
}

// ChildPage is one page of a children listing.
type ChildPage struct {
	Entries []FileEntry
	HasMore bool
}

// DriveGroup collects one drive's snapshots for the recover view.
type DriveGroup struct {
	DriveID   string
	DriveName string
	Snapshots []*Descriptor
	Latest    *Descriptor
	Count     int
}

// Usage aggregates physical usage over all snapshots.
type Usage struct {
	TotalSizeBytes int64
	FileCount      int
}

// driveHint carries whatever the caller already knew about a drive when a
// snapshot was captured. It is the last resort of the metadata fallback chain.
type driveHint struct {
	name  string
	stats *DriveStats
}
