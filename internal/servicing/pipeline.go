package servicing

import (
	"fmt"
	"time"

	"github.com/wimserv/wimserv/internal/config"
)

// BuildPhases assembles the phase sequence for the requested actions.
// The optional phases appear only when their action file was supplied;
// everything else is unconditional and order is fixed.
func BuildPhases(opts *config.Options) []Phase {
	phases := []Phase{
		PreparePhase{},
		CleanupPhase{},
		MountPhase{},
	}
	if opts.RemovePackages() {
		phases = append(phases, PackagesPhase{})
	}
	if opts.ApplyRegistry() {
		phases = append(phases, RegistryPhase{})
	}
	return append(phases, DispositionPhase{}, UnmountPhase{})
}

// Run executes all servicing phases sequentially.
//
// The first phase error aborts the run; nothing here retries or unwinds.
// A failed run may leave the mount point or hive aliases dangling, and the
// cleanup phase of the next run is the recovery mechanism for that.
func Run(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting servicing with %d phases...", len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		ctx.Observer.Printf("[%s] starting", name)

		if err := phase.Run(ctx); err != nil {
			ctx.Observer.Printf("[%s] failed: %v", name, err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(phaseStart).Round(time.Millisecond))
	}

	ctx.Observer.Printf("Servicing completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
