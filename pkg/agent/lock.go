package agent

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is the advisory, process-wide lock file backing each agent.
// It is the one cross-process shared resource in this design (spec §5);
// all other state belongs exclusively to the in-process handle.
type fileLock struct {
	f *os.File
}

// BadLockFileError wraps a failure to open or flock the advisory lock file.
type BadLockFileError struct {
	Path string
	Err  error
}

func (e *BadLockFileError) Error() string {
	return fmt.Sprintf("agent: bad lock file %s: %v", e.Path, e.Err)
}

func (e *BadLockFileError) Unwrap() error { return e.Err }

// openLock opens (creating if needed) the lock file at path. It does not
// acquire the lock — callers acquire per-event via Acquire/Release so the
// file descriptor, not a held flock, is what's shared across the agent's
// lifetime.
func openLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &BadLockFileError{Path: path, Err: err}
	}
	return &fileLock{f: f}, nil
}

// Acquire blocks until the advisory lock is held.
func (l *fileLock) Acquire() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_EX); err != nil {
		return &BadLockFileError{Path: l.f.Name(), Err: err}
	}
	return nil
}

// Release drops the advisory lock. Safe to call even if Acquire was never
// called (flock on an unheld lock is a no-op per flock(2)).
func (l *fileLock) Release() error {
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}

func (l *fileLock) Close() error {
	return l.f.Close()
}
