package lockfile

import (
	"errors"
	"path/filepath"
	"testing"
)

// A second Acquire on the same path while the first lock is held must
// fail fast with ErrBusy rather than block, so an embedder can report
// the problem instead of hanging.
func TestAcquireSecondFailsFast(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "store.jsonl")

	l1, err := Acquire(db, "", TokenXXH3)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer l1.Release()

	_, err = Acquire(db, "", TokenXXH3)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire = %v, want ErrBusy", err)
	}
	if err == nil || !contains(err.Error(), "Lockfile is in use") {
		t.Fatalf("error %v must mention 'Lockfile is in use'", err)
	}
}

// After Release, a new Acquire on the same path must succeed — the
// lock is not held beyond the process that released it.
func TestAcquireAfterRelease(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "store.jsonl")

	l1, err := Acquire(db, "", TokenXXH3)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2, err := Acquire(db, "", TokenXXH3)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer l2.Release()
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
