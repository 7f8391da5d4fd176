package servicing

import "fmt"

// CleanupPhase asks the image servicer to discard stale mount state left by
// earlier failed runs. Its outcome is recorded but never fatal: the mount
// phase that follows is the real arbiter of whether the mount point is usable.
type CleanupPhase struct{}

// Name implements Phase.
func (CleanupPhase) Name() string { return "cleanup" }

// Run implements Phase.
func (CleanupPhase) Run(ctx *Context) error {
	if err := ctx.Image.CleanupMounts(ctx); err != nil {
		LogWarning(ctx, "cleanup", fmt.Errorf("stale mount cleanup failed: %w", err))
	}
	return nil
}

// MountPhase mounts the image read/write at the mount-point folder.
type MountPhase struct{}

// Name implements Phase.
func (MountPhase) Name() string { return "mount" }

// Run implements Phase.
func (MountPhase) Run(ctx *Context) error {
	opts := ctx.Options
	if err := ctx.Image.Mount(ctx, opts.ImagePath(), opts.ImageIndex, opts.MountPath()); err != nil {
		return fmt.Errorf("failed to mount %s (index %d): %w", opts.ImagePath(), opts.ImageIndex, err)
	}
	ctx.State.Mounted = true
	return nil
}
