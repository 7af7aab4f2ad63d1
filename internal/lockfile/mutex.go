// fileMutex wraps a mutex-guarded *os.File used for OS-level locking,
// with setFile(nil) draining any in-flight syscall before the handle
// is torn down. It only ever needs a single exclusive, non-blocking
// attempt: no shared-lock mode, no blocking wait.
package lockfile

import (
	"errors"
	"os"
	"sync"
)

var errWouldBlock = errors.New("lockfile: would block")

type fileMutex struct {
	mu sync.Mutex
	f  *os.File
}

func (m *fileMutex) setFile(f *os.File) {
	m.mu.Lock()
	m.f = f
	m.mu.Unlock()
}

func (m *fileMutex) tryLock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.f == nil {
		return nil
	}
	return tryFlock(m.f)
}

func (m *fileMutex) unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.f == nil {
		return nil
	}
	return unflock(m.f)
}
