// Package lock guards the working folder against concurrent servicing runs.
//
// Only one run may hold the mount point and the offline hive aliases at a
// time. The lock is advisory and cross-process; a second run fails fast
// instead of corrupting the first run's mounted state.
package lock

import "context"

// Locker provides mutual exclusion over a working folder.
type Locker interface {
	// TryLock attempts a non-blocking acquisition. Returns (false, nil) when
	// another run holds the lock.
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock.
	Unlock(ctx context.Context) error
}
