package univar

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sock")

	l, err := AcquireLock(path, time.Second, false)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestAcquireLockTimesOutWhenHeld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sock")

	l1, err := AcquireLock(path, time.Second, false)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	defer l1.Release()

	_, err = AcquireLock(path, 50*time.Millisecond, false)
	if err == nil {
		t.Fatalf("expected the second acquisition to time out while the lock is held")
	}
}

func TestAcquireLockForceStealsStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sock")

	l1, err := AcquireLock(path, time.Second, false)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	_ = l1 // simulate a crashed holder: never released

	l2, err := AcquireLock(path, 50*time.Millisecond, true)
	if err != nil {
		t.Fatalf("forced AcquireLock should steal the stale lock, got %v", err)
	}
	l2.Release()
}
