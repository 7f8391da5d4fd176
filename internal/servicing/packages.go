package servicing

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/wimserv/wimserv/internal/packlist"
)

// PackagesPhase removes provisioned app packages whose display name matches
// any pattern in the removal list.
//
// The set removed is exactly the union of matches across all patterns. A
// pattern matching nothing is logged and skipped; a removal that the
// servicing tool rejects is recorded as a warning so the operator can still
// discard at the disposition prompt.
type PackagesPhase struct{}

// Name implements Phase.
func (PackagesPhase) Name() string { return "packages" }

// Run implements Phase.
func (PackagesPhase) Run(ctx *Context) error {
	list, err := packlist.Load(ctx.Options.PackageListPath())
	if err != nil {
		return err
	}
	if list.Empty() {
		ctx.Observer.Printf("[packages] removal list is empty, nothing to do")
		return nil
	}

	mountDir := ctx.Options.MountPath()
	provisioned, err := ctx.Packages.ListProvisioned(ctx, mountDir)
	if err != nil {
		return fmt.Errorf("failed to enumerate provisioned packages: %w", err)
	}
	ctx.Observer.Printf("[packages] %d provisioned packages, %d removal patterns", len(provisioned), len(list.Patterns))

	for i, pattern := range list.Patterns {
		matches := lo.Filter(provisioned, func(p ProvisionedPackage, _ int) bool {
			return pattern.Match(p.DisplayName)
		})
		if len(matches) == 0 {
			ctx.State.UnmatchedPatterns = append(ctx.State.UnmatchedPatterns, pattern.Raw)
			LogPatternUnmatched(ctx.Observer, pattern.Raw)
			continue
		}

		for _, pkg := range matches {
			// A package may match several patterns; remove it once.
			if lo.Contains(ctx.State.RemovedPackages, pkg.PackageName) {
				continue
			}
			if err := ctx.Packages.RemoveProvisioned(ctx, mountDir, pkg.PackageName); err != nil {
				LogWarning(ctx, "packages", fmt.Errorf("failed to remove %s: %w", pkg.PackageName, err))
				continue
			}
			ctx.State.RemovedPackages = append(ctx.State.RemovedPackages, pkg.PackageName)
			LogPackageRemoved(ctx.Observer, pattern.Raw, pkg.PackageName)
		}
		ctx.Observer.Progress("packages", i+1, len(list.Patterns))
	}

	return nil
}
