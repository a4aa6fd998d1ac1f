package snapshot_test

import (
	"testing"
	"time"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

func TestParseSnapshotFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantOK   bool
		want     snapshot.NameInfo
	}{
		{
			name:     "init drive snapshot",
			filename: "snapshot_abc123_init.db",
			wantOK:   true,
			want:     snapshot.NameInfo{Kind: snapshot.KindDrive, DriveID: "abc123", Suffix: "init", Sequence: 0},
		},
		{
			name:     "sync drive snapshot",
			filename: "snapshot_abc123_sync7.db",
			wantOK:   true,
			want:     snapshot.NameInfo{Kind: snapshot.KindDrive, DriveID: "abc123", Suffix: "sync7", Sequence: 7},
		},
		{
			name:     "drive id containing underscores",
			filename: "snapshot_my_ext_drive_sync2.db",
			wantOK:   true,
			want:     snapshot.NameInfo{Kind: snapshot.KindDrive, DriveID: "my_ext_drive", Suffix: "sync2", Sequence: 2},
		},
		{
			name:     "legacy drive snapshot without suffix",
			filename: "snapshot_abc123.db",
			wantOK:   true,
			want:     snapshot.NameInfo{Kind: snapshot.KindDrive, DriveID: "abc123", Sequence: -1},
		},
		{
			name:     "legacy name whose last segment is not a suffix",
			filename: "snapshot_drive_backup.db",
			wantOK:   true,
			want:     snapshot.NameInfo{Kind: snapshot.KindDrive, DriveID: "drive_backup", Sequence: -1},
		},
		{
			name:     "catalog snapshot",
			filename: "catalog_snapshot_1718458245123.db",
			wantOK:   true,
			want: snapshot.NameInfo{
				Kind:     snapshot.KindCatalog,
				Sequence: -1,
				Captured: time.UnixMilli(1718458245123),
			},
		},
		{
			name:     "wrong extension",
			filename: "snapshot_abc123_init.txt",
			wantOK:   false,
		},
		{
			name:     "unrelated file",
			filename: "notes.db",
			wantOK:   false,
		},
		{
			name:     "prefix only",
			filename: "snapshot_.db",
			wantOK:   false,
		},
		{
			name:     "path traversal in drive id",
			filename: "snapshot_x/../../victim.db",
			wantOK:   false,
		},
		{
			name:     "windows separator in drive id",
			filename: `snapshot_x\..\victim.db`,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snapshot.ParseSnapshotFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ParseSnapshotFilename(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("ParseSnapshotFilename(%q) = %+v, want %+v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDriveSnapshotFilename_roundTrip(t *testing.T) {
	for _, suffix := range []string{"init", "sync1", "sync42"} {
		name := snapshot.DriveSnapshotFilename("drive_a", suffix)
		info, ok := snapshot.ParseSnapshotFilename(name)
		if !ok {
			t.Fatalf("ParseSnapshotFilename(%q) not recognized", name)
		}
		if info.DriveID != "drive_a" || info.Suffix != suffix {
			t.Errorf("round trip of %q: got drive %q suffix %q", name, info.DriveID, info.Suffix)
		}
	}
}

func TestCatalogSnapshotFilename_roundTrip(t *testing.T) {
	at := time.Date(2024, 6, 15, 14, 30, 45, 123e6, time.UTC)
	name := snapshot.CatalogSnapshotFilename(at)

	info, ok := snapshot.ParseSnapshotFilename(name)
	if !ok {
		t.Fatalf("ParseSnapshotFilename(%q) not recognized", name)
	}
	if info.Kind != snapshot.KindCatalog {
		t.Errorf("Kind = %v, want catalog", info.Kind)
	}
	if !info.Captured.Equal(at) {
		t.Errorf("Captured = %v, want %v", info.Captured, at)
	}
}

func TestSuffixSequenceMapping(t *testing.T) {
	tests := []struct {
		suffix string
		seq    int
	}{
		{"init", 0},
		{"sync1", 1},
		{"sync15", 15},
		{"sync0", -1},
		{"full", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := snapshot.SequenceForSuffix(tt.suffix); got != tt.seq {
			t.Errorf("SequenceForSuffix(%q) = %d, want %d", tt.suffix, got, tt.seq)
		}
	}

	if got := snapshot.SuffixForSequence(0); got != "init" {
		t.Errorf("SuffixForSequence(0) = %q, want init", got)
	}
	if got := snapshot.SuffixForSequence(3); got != "sync3" {
		t.Errorf("SuffixForSequence(3) = %q, want sync3", got)
	}
}

func TestLiveDatabaseNames(t *testing.T) {
	t.Run("suffixed round trip", func(t *testing.T) {
		name := snapshot.LiveDatabaseFilename("abc", "sync3")
		id, suffix, ok := snapshot.ParseLiveDatabaseName(name)
		if !ok || id != "abc" || suffix != "sync3" {
			t.Errorf("ParseLiveDatabaseName(%q) = (%q, %q, %v)", name, id, suffix, ok)
		}
	})

	t.Run("legacy name has empty suffix", func(t *testing.T) {
		name := snapshot.LiveDatabaseFilename("abc", "")
		if name != "drive_abc.db" {
			t.Fatalf("LiveDatabaseFilename legacy = %q", name)
		}
		id, suffix, ok := snapshot.ParseLiveDatabaseName(name)
		if !ok || id != "abc" || suffix != "" {
			t.Errorf("ParseLiveDatabaseName(%q) = (%q, %q, %v)", name, id, suffix, ok)
		}
	})

	t.Run("rejects other files", func(t *testing.T) {
		if _, _, ok := snapshot.ParseLiveDatabaseName("catalog.db"); ok {
			t.Error("catalog.db should not parse as a live drive database")
		}
	})
}
