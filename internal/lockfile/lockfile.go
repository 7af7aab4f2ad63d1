// Package lockfile gives a single process exclusive ownership of a
// database path via a sidecar "<basename>.lock" file rather than
// flocking the database file itself — the log file is reopened and
// replaced wholesale during compaction, so the lock needs to outlive
// any single *os.File handle on the data file.
package lockfile

import (
	"errors"
	"fmt"
	"os"
)

// ErrBusy is returned by Acquire when another process already holds
// the lock. Its message intentionally contains "Lockfile is in use"
// so callers and tests can match on that text.
var ErrBusy = errors.New("lockfile: Lockfile is in use")

// TokenAlgorithm selects how Lock derives the short owner token it
// writes into the lockfile body.
type TokenAlgorithm int

const (
	TokenXXH3 TokenAlgorithm = iota
	TokenBlake2b
)

// Lock represents a held exclusive lock on path's sidecar lockfile.
type Lock struct {
	file  *os.File
	path  string
	mu    fileMutex
	token string
}

// Path returns the sidecar lockfile path this Lock guards.
func (l *Lock) Path() string { return l.path }

// Token returns the owner token written into the lockfile body.
func (l *Lock) Token() string { return l.token }

// Acquire creates (if needed) and exclusively locks "<basename>.lock"
// next to dbPath, or under lockDir if non-empty. It does not block:
// if another process already holds the lock, it returns ErrBusy
// immediately so an embedder can report the problem instead of
// hanging.
func Acquire(dbPath, lockDir string, alg TokenAlgorithm) (*Lock, error) {
	if lockDir != "" {
		if err := os.MkdirAll(lockDir, 0o755); err != nil {
			return nil, fmt.Errorf("lockfile: mkdir %s: %w", lockDir, err)
		}
	}
	path := lockPath(dbPath, lockDir)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	l := &Lock{file: f, path: path}
	l.mu.setFile(f)

	if err := l.mu.tryLock(); err != nil {
		f.Close()
		if errors.Is(err, errWouldBlock) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("lockfile: lock %s: %w", path, err)
	}

	l.token = token(dbPath, alg)
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(l.token+"\n"), 0)
		_ = f.Sync()
	}
	return l, nil
}

// Release unlocks and closes the lockfile handle. The sidecar file
// itself is left on disk: removing it would race a concurrent Acquire
// that just opened it but has not yet locked it.
func (l *Lock) Release() error {
	_ = l.mu.unlock()
	l.mu.setFile(nil)
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func lockPath(dbPath, lockDir string) string {
	base := dbPath + ".lock"
	if lockDir == "" {
		return base
	}
	return lockDir + "/" + baseName(dbPath) + ".lock"
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
