package lock

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
)

// compile-time interface check.
var _ Locker = (*FileLock)(nil)

// FileLock implements Locker with flock(2) on a lock file inside the
// working folder.
type FileLock struct {
	fl *flock.Flock
}

// New creates a FileLock for the given lock-file path.
func New(path string) *FileLock {
	return &FileLock{fl: flock.New(path)}
}

// TryLock attempts a non-blocking acquisition.
func (l *FileLock) TryLock(_ context.Context) (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.fl.Path(), err)
	}
	return ok, nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock(_ context.Context) error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.fl.Path(), err)
	}
	return nil
}
