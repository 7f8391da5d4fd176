// Package servicing orchestrates one offline-servicing run over a mounted
// Windows image.
//
// The run is organized as a fixed sequence of phases:
//   - prepare: mount-point folder and run lock
//   - cleanup: best-effort recovery of stale mounts from earlier runs
//   - mount: mount the image read/write
//   - packages: remove provisioned app packages matching the removal list
//   - registry: apply registry edits against the offline hives
//   - disposition: operator chooses Commit or Discard
//   - unmount: unmount with the chosen disposition
//
// This root package contains the phase runner, the shared state, and the
// narrow interfaces the orchestrator depends on. Real adapters over the
// platform servicing tools live in internal/platform.
package servicing

import "context"

// Phase defines the interface for a single servicing phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Run executes the phase against the shared context.
	Run(ctx *Context) error
}

// Disposition is the operator's choice of what to do with the mounted changes.
type Disposition int

const (
	// DispositionUnknown means no choice has been made yet.
	DispositionUnknown Disposition = iota
	// DispositionCommit persists all changes into the image file.
	DispositionCommit
	// DispositionDiscard abandons all changes made to the mounted view.
	DispositionDiscard
)

// String returns the disposition name as shown to the operator.
func (d Disposition) String() string {
	switch d {
	case DispositionCommit:
		return "commit"
	case DispositionDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// ProvisionedPackage is one pre-provisioned app package inside the image.
type ProvisionedPackage struct {
	// DisplayName is the human-facing name removal patterns match against.
	DisplayName string

	// PackageName is the full identity passed to the removal operation.
	PackageName string

	// Version is informational only.
	Version string
}

// ImageServicer drives the image mount engine.
// Implemented by internal/platform/dism.Client.
type ImageServicer interface {
	// CleanupMounts discards stale mount state left by earlier failed runs.
	CleanupMounts(ctx context.Context) error

	// Mount mounts image index of imagePath read/write at mountDir.
	Mount(ctx context.Context, imagePath string, index int, mountDir string) error

	// Unmount unmounts mountDir, committing or discarding per disposition.
	Unmount(ctx context.Context, mountDir string, disposition Disposition) error
}

// PackageManager enumerates and removes provisioned packages in a mounted
// image. Implemented by internal/platform/dism.Client.
type PackageManager interface {
	// ListProvisioned returns the packages currently provisioned in the
	// image mounted at mountDir.
	ListProvisioned(ctx context.Context, mountDir string) ([]ProvisionedPackage, error)

	// RemoveProvisioned removes a single provisioned package by its full
	// package name.
	RemoveProvisioned(ctx context.Context, mountDir, packageName string) error
}

// HiveServicer loads and unloads offline registry hives at alias names.
// Implemented by internal/platform/reg.Client.
type HiveServicer interface {
	// LoadHive binds the hive file at hivePath to the given alias.
	LoadHive(ctx context.Context, alias, hivePath string) error

	// UnloadHive releases the hive bound to alias.
	UnloadHive(ctx context.Context, alias string) error
}

// RegistryImporter applies a registry-modification file against the
// currently loaded hives. Implemented by internal/platform/reg.Client.
type RegistryImporter interface {
	Import(ctx context.Context, regFilePath string) error
}

// Operator is the capability surface for interacting with the human running
// the tool. A console implementation lives in internal/ui; tests supply
// scripted doubles.
type Operator interface {
	// ChooseDisposition asks for Commit or Discard, retrying until the
	// operator supplies a valid choice. There is no default.
	ChooseDisposition(ctx context.Context) (Disposition, error)

	// Acknowledge shows a message and blocks until the operator reacts.
	Acknowledge(ctx context.Context, message string) error
}
