package testutil

import (
	"context"
	"sync"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// FakeCatalog is an in-memory snapshot.LiveCatalog. Each collaborator call is
// recorded, and per-method errors can be injected to exercise failure paths.
type FakeCatalog struct {
	mu     sync.Mutex
	drives map[string]*snapshot.DriveDescriptor

	// Injected failures. A nil error means the call succeeds.
	AddDriveErr     error
	InitializeErr   error
	RebuildIndexErr error
	GetDriveErr     error

	// Recorded calls, in order of arrival.
	AddedDrives     []*snapshot.DriveDescriptor
	InitializedIDs  []string
	RebuiltIndexIDs []string
}

var _ snapshot.LiveCatalog = (*FakeCatalog)(nil)

// NewFakeCatalog creates an empty FakeCatalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{drives: make(map[string]*snapshot.DriveDescriptor)}
}

func (f *FakeCatalog) AddDrive(ctx context.Context, drive *snapshot.DriveDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AddDriveErr != nil {
		return f.AddDriveErr
	}
	f.drives[drive.ID] = drive
	f.AddedDrives = append(f.AddedDrives, drive)
	return nil
}

func (f *FakeCatalog) InitializeDriveDatabase(ctx context.Context, driveID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitializeErr != nil {
		return f.InitializeErr
	}
	f.InitializedIDs = append(f.InitializedIDs, driveID)
	return nil
}

func (f *FakeCatalog) RebuildSearchIndex(ctx context.Context, driveID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RebuildIndexErr != nil {
		return f.RebuildIndexErr
	}
	f.RebuiltIndexIDs = append(f.RebuiltIndexIDs, driveID)
	return nil
}

func (f *FakeCatalog) GetDrive(ctx context.Context, driveID string) (*snapshot.DriveDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetDriveErr != nil {
		return nil, f.GetDriveErr
	}
	return f.drives[driveID], nil
}

// Drive returns the stored descriptor, or nil.
func (f *FakeCatalog) Drive(driveID string) *snapshot.DriveDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drives[driveID]
}
