package servicing

import (
	"context"

	"github.com/wimserv/wimserv/internal/config"
	"github.com/wimserv/wimserv/internal/lock"
)

// Warning records a non-fatal problem surfaced during a phase. Warnings are
// shown to the operator before the disposition prompt so a degraded run can
// still be discarded deliberately.
type Warning struct {
	Phase string
	Err   error
}

// State holds the shared results of servicing phases.
// It is progressively populated as each phase completes and is inspected by
// later phases and by the final report.
type State struct {
	// Prepare results
	MountDir        string
	MountDirExisted bool // true when the mount-point folder was reused

	// Mount results
	Mounted bool

	// Package results
	RemovedPackages   []string // full package names, in removal order
	UnmatchedPatterns []string // patterns that matched no provisioned package

	// Registry results
	HivesLoaded   []string // alias names, in load order
	HivesUnloaded []string // alias names, in unload order

	// Finalization
	Disposition Disposition

	// Warnings from best-effort steps (cleanup, import, unload, removal).
	Warnings []Warning
}

// NewState creates an empty servicing state.
func NewState() *State {
	return &State{Disposition: DispositionUnknown}
}

// AddWarning records a non-fatal problem for later surfacing.
func (s *State) AddWarning(phase string, err error) {
	s.Warnings = append(s.Warnings, Warning{Phase: phase, Err: err})
}

// Context wraps all dependencies and state needed by servicing phases.
type Context struct {
	context.Context
	Options  *config.Options
	State    *State
	Image    ImageServicer
	Packages PackageManager
	Hives    HiveServicer
	Registry RegistryImporter
	Operator Operator
	Lock     lock.Locker
	Observer Observer
}

// NewContext creates a servicing context with a console observer.
func NewContext(
	ctx context.Context,
	opts *config.Options,
	image ImageServicer,
	packages PackageManager,
	hives HiveServicer,
	registry RegistryImporter,
	operator Operator,
	locker lock.Locker,
) *Context {
	return &Context{
		Context:  ctx,
		Options:  opts,
		State:    NewState(),
		Image:    image,
		Packages: packages,
		Hives:    hives,
		Registry: registry,
		Operator: operator,
		Lock:     locker,
		Observer: NewConsoleObserver(),
	}
}
