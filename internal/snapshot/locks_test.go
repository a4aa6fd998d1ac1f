package snapshot

import (
	"testing"
	"time"
)

func TestDriveLocks(t *testing.T) {
	t.Run("same key serializes", func(t *testing.T) {
		locks := newDriveLocks()
		unlock := locks.acquire(driveLockKey("drive1"))

		acquired := make(chan struct{})
		go func() {
			u := locks.acquire(driveLockKey("drive1"))
			close(acquired)
			u()
		}()

		select {
		case <-acquired:
			t.Fatal("second acquire succeeded while the key was held")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second acquire never succeeded after release")
		}
	})

	t.Run("different keys do not serialize", func(t *testing.T) {
		locks := newDriveLocks()
		unlock1 := locks.acquire(driveLockKey("drive1"))
		defer unlock1()

		acquired := make(chan struct{})
		go func() {
			u := locks.acquire(driveLockKey("drive2"))
			close(acquired)
			u()
		}()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("unrelated key blocked")
		}
	})

	t.Run("catalog key is distinct from drive keys", func(t *testing.T) {
		if driveLockKey("catalog") == catalogLockKey {
			t.Error("a drive literally named catalog collides with the catalog lock")
		}
	})
}
