package snapshot

import "sync"

// catalogLockKey serializes catalog snapshot captures; it cannot collide with
// a drive id because drive keys are prefixed.
const catalogLockKey = "catalog"

// driveLocks serializes capture and restore per drive. A capture racing a
// restore (or two concurrent restores) on the same drive is not safe; unrelated
// drives must not serialize against each other, so the lock is keyed rather
// than global. There is no timeout-based release: a stuck step surfaces as an
// error from the step itself, never as a silent unlock.
type driveLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDriveLocks() *driveLocks {
	return &driveLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns the release function.
// Entries are never removed; the map is bounded by the number of drives seen.
func (d *driveLocks) acquire(key string) func() {
	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &sync.Mutex{}
		d.locks[key] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func driveLockKey(driveID string) string { return "drive:" + driveID }
