// Package config defines the servicing run options and their validation.
//
// A run is described by a working folder plus up to two optional action
// files resolved relative to it. Fixed names (image file, mount subfolder)
// have defaults matching the deployment-share layout this tool services.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultImageName is the image file expected inside the working folder.
	DefaultImageName = "install.wim"

	// DefaultMountDirName is the mount-point subfolder created inside the
	// working folder.
	DefaultMountDirName = "WIM-OFFLINESERVICING"

	// DefaultImageIndex is the image index serviced when none is given.
	DefaultImageIndex = 1
)

// Sentinel errors for the validation taxonomy. Handlers match on these to
// decide between usage help and plain failure output.
var (
	// ErrNoActionRequested means neither a package list nor a registry file
	// was supplied, so the run would mount and unmount for nothing.
	ErrNoActionRequested = errors.New("no servicing action requested: supply a package list, a registry file, or both")

	// ErrWorkingDirNotFound means the working folder does not exist.
	ErrWorkingDirNotFound = errors.New("working folder not found")

	// ErrImageNotFound means the image file is missing from the working folder.
	ErrImageNotFound = errors.New("image file not found in working folder")

	// ErrActionFileNotFound means a supplied optional action file is missing.
	ErrActionFileNotFound = errors.New("action file not found in working folder")
)

// Options describes a single servicing run.
type Options struct {
	// WorkingDir is the folder holding the image and action files. Required.
	WorkingDir string

	// ImageName is the image file name inside WorkingDir.
	ImageName string

	// ImageIndex selects which image inside the file is mounted.
	ImageIndex int

	// MountDirName is the mount-point subfolder name inside WorkingDir.
	MountDirName string

	// PackageListFile names the package-removal list, relative to WorkingDir.
	// Empty means no package removal.
	PackageListFile string

	// RegistryFile names the registry-modification file, relative to
	// WorkingDir. Empty means no registry edits.
	RegistryFile string
}

// NewOptions returns Options for the working folder with defaults applied.
func NewOptions(workingDir string) *Options {
	o := &Options{WorkingDir: workingDir}
	o.ApplyDefaults()
	return o
}

// ApplyDefaults fills empty fixed names with their defaults.
func (o *Options) ApplyDefaults() {
	if o.ImageName == "" {
		o.ImageName = DefaultImageName
	}
	if o.MountDirName == "" {
		o.MountDirName = DefaultMountDirName
	}
	if o.ImageIndex == 0 {
		o.ImageIndex = DefaultImageIndex
	}
}

// ImagePath returns the path to the image file.
func (o *Options) ImagePath() string {
	return filepath.Join(o.WorkingDir, o.ImageName)
}

// MountPath returns the path to the mount-point folder.
func (o *Options) MountPath() string {
	return filepath.Join(o.WorkingDir, o.MountDirName)
}

// PackageListPath returns the resolved package-list path, or "" if unset.
func (o *Options) PackageListPath() string {
	if !o.RemovePackages() {
		return ""
	}
	return filepath.Join(o.WorkingDir, strings.TrimSpace(o.PackageListFile))
}

// RegistryFilePath returns the resolved registry-file path, or "" if unset.
func (o *Options) RegistryFilePath() string {
	if !o.ApplyRegistry() {
		return ""
	}
	return filepath.Join(o.WorkingDir, strings.TrimSpace(o.RegistryFile))
}

// RemovePackages reports whether package removal was requested.
// A name that is empty or all whitespace counts as unset.
func (o *Options) RemovePackages() bool {
	return strings.TrimSpace(o.PackageListFile) != ""
}

// ApplyRegistry reports whether registry modification was requested.
func (o *Options) ApplyRegistry() bool {
	return strings.TrimSpace(o.RegistryFile) != ""
}

// Validate checks the run is actionable before anything touches the image.
//
// Order matters: the no-action check comes first so an operator who forgot
// both parameters gets usage guidance rather than a filesystem error.
func (o *Options) Validate() error {
	o.ApplyDefaults()

	if !o.RemovePackages() && !o.ApplyRegistry() {
		return ErrNoActionRequested
	}

	if o.WorkingDir == "" {
		return fmt.Errorf("%w: no path given", ErrWorkingDirNotFound)
	}
	info, err := os.Stat(o.WorkingDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrWorkingDirNotFound, o.WorkingDir)
	}

	if _, err := os.Stat(o.ImagePath()); err != nil {
		return fmt.Errorf("%w: %s", ErrImageNotFound, o.ImagePath())
	}

	if o.ImageIndex < 1 {
		return fmt.Errorf("image index must be >= 1, got %d", o.ImageIndex)
	}

	// Fail on missing action files here, before the image is mounted, rather
	// than midway through servicing with a dangling mount.
	if o.RemovePackages() {
		if _, err := os.Stat(o.PackageListPath()); err != nil {
			return fmt.Errorf("%w: %s", ErrActionFileNotFound, o.PackageListPath())
		}
	}
	if o.ApplyRegistry() {
		if _, err := os.Stat(o.RegistryFilePath()); err != nil {
			return fmt.Errorf("%w: %s", ErrActionFileNotFound, o.RegistryFilePath())
		}
	}

	return nil
}
