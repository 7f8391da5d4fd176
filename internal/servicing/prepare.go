package servicing

import (
	"fmt"
	"os"
)

// PreparePhase readies the mount-point folder and takes the run lock.
//
// The mount-point folder is created if absent and reused unchanged if
// present. The lock is non-blocking: a second concurrent run on the same
// working folder fails here instead of fighting over the mount point.
type PreparePhase struct{}

// Name implements Phase.
func (PreparePhase) Name() string { return "prepare" }

// Run implements Phase.
func (PreparePhase) Run(ctx *Context) error {
	mountDir := ctx.Options.MountPath()

	info, err := os.Stat(mountDir)
	switch {
	case err == nil && info.IsDir():
		ctx.State.MountDirExisted = true
	case err == nil:
		return fmt.Errorf("mount point %s exists but is not a folder", mountDir)
	default:
		if err := os.MkdirAll(mountDir, 0o755); err != nil {
			return fmt.Errorf("failed to create mount point %s: %w", mountDir, err)
		}
	}
	ctx.State.MountDir = mountDir

	if ctx.Lock != nil {
		ok, err := ctx.Lock.TryLock(ctx)
		if err != nil {
			return fmt.Errorf("failed to lock working folder: %w", err)
		}
		if !ok {
			return fmt.Errorf("another servicing run holds %s", ctx.Options.WorkingDir)
		}
	}

	return nil
}
