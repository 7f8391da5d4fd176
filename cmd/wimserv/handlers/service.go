// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework; external tool adapters are created through factory
// variables that tests replace with fakes.
package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"

	"github.com/wimserv/wimserv/internal/config"
	"github.com/wimserv/wimserv/internal/lock"
	"github.com/wimserv/wimserv/internal/platform/dism"
	"github.com/wimserv/wimserv/internal/platform/reg"
	"github.com/wimserv/wimserv/internal/servicing"
	"github.com/wimserv/wimserv/internal/ui"
	"github.com/wimserv/wimserv/internal/util/prerequisites"
)

// lockFileName is the run-lock file created inside the working folder.
const lockFileName = ".wimserv.lock"

// imageTool is the image-side capability bundle one adapter provides.
type imageTool interface {
	servicing.ImageServicer
	servicing.PackageManager
}

// registryTool is the registry-side capability bundle one adapter provides.
type registryTool interface {
	servicing.HiveServicer
	servicing.RegistryImporter
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newImageTool creates the image-servicing adapter.
	newImageTool = func() imageTool {
		return dism.NewClient()
	}

	// newRegistryTool creates the registry-servicing adapter.
	newRegistryTool = func() registryTool {
		return reg.NewClient()
	}

	// newOperator creates the operator interaction surface.
	newOperator = func() servicing.Operator {
		return ui.NewConsoleOperator()
	}

	// newLocker creates the working-folder run lock.
	newLocker = func(path string) lock.Locker {
		return lock.New(path)
	}

	// checkPrereqs runs the external-tool prerequisite check.
	checkPrereqs = prerequisites.CheckServicing
)

// Service runs one offline-servicing pass over the working folder's image.
//
// The workflow:
//  1. Merges the optional per-folder profile into the options and validates
//     them (no-action, missing folder, missing image all halt here, before
//     anything is mounted).
//  2. Verifies the external servicing tools resolve in PATH.
//  3. Runs the servicing phases: prepare, cleanup, mount, optional package
//     removal, optional registry modification, disposition, unmount.
//  4. Reports the final image location.
//
// Every exit path, success or failure, ends at the operator acknowledgement
// gate so output is not lost when the hosting console closes on exit.
func Service(ctx context.Context, opts *config.Options) error {
	operator := newOperator()

	state, err := service(ctx, opts, operator)
	if err != nil {
		if errors.Is(err, config.ErrNoActionRequested) {
			ui.Warn("%v", err)
			ui.Dim("Nothing would change; refusing to mount the image for no reason.")
		} else {
			ui.Fail("Servicing failed: %v", err)
		}
		_ = operator.Acknowledge(ctx, "")
		return err
	}

	reportSuccess(opts, state)
	return operator.Acknowledge(ctx, "")
}

func service(ctx context.Context, opts *config.Options, operator servicing.Operator) (*servicing.State, error) {
	if profilePath := config.FindProfile(opts.WorkingDir); profilePath != "" {
		profile, err := config.LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		opts.Merge(profile)
		ui.Dim("Using profile %s", profilePath)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if results := checkPrereqs(); results.HasErrors() {
		return nil, results.Error()
	}

	image := newImageTool()
	registry := newRegistryTool()
	locker := newLocker(filepath.Join(opts.WorkingDir, lockFileName))

	sctx := servicing.NewContext(ctx, opts, image, image, registry, registry, operator, locker)
	defer func() {
		_ = locker.Unlock(ctx)
	}()

	if err := servicing.Run(sctx, servicing.BuildPhases(opts)); err != nil {
		return sctx.State, err
	}
	return sctx.State, nil
}

// reportSuccess prints the final outcome of a completed run.
func reportSuccess(opts *config.Options, state *servicing.State) {
	size := ""
	if fi, err := os.Stat(opts.ImagePath()); err == nil {
		size = " (" + units.HumanSize(float64(fi.Size())) + ")"
	}

	switch state.Disposition {
	case servicing.DispositionCommit:
		ui.OK("Changes committed to %s%s", opts.ImagePath(), size)
	case servicing.DispositionDiscard:
		ui.OK("Changes discarded; %s%s is unchanged", opts.ImagePath(), size)
	}

	if n := len(state.RemovedPackages); n > 0 {
		ui.Info("Removed %d provisioned package(s)", n)
	}
	for _, p := range state.UnmatchedPatterns {
		ui.Dim("Pattern %q matched no provisioned package", p)
	}
	if len(state.Warnings) > 0 {
		ui.Warn("%d warning(s) occurred during servicing; review the output above", len(state.Warnings))
	}

	ui.Info("Image location: %s", opts.ImagePath())
}
