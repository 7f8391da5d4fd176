package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ProfileName is the optional per-folder profile consulted when the operator
// does not pass action flags explicitly.
const ProfileName = "wimserv.yaml"

// Profile mirrors the YAML profile an operator may drop next to the image.
type Profile struct {
	Image    string `mapstructure:"image"`
	Index    int    `mapstructure:"index"`
	MountDir string `mapstructure:"mountDir"`
	Packages string `mapstructure:"packages"`
	Registry string `mapstructure:"registry"`
}

// LoadProfile reads and parses the profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var p Profile
	if err := mapstructure.Decode(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &p, nil
}

// FindProfile returns the profile path inside the working folder if one
// exists, or "" when the folder carries no profile.
func FindProfile(workingDir string) string {
	path := filepath.Join(workingDir, ProfileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Merge fills unset Options fields from the profile. Flags always win;
// the profile only supplies what the operator left empty.
func (o *Options) Merge(p *Profile) {
	if p == nil {
		return
	}
	if o.ImageName == "" || o.ImageName == DefaultImageName {
		if p.Image != "" {
			o.ImageName = p.Image
		}
	}
	if (o.ImageIndex == 0 || o.ImageIndex == DefaultImageIndex) && p.Index > 0 {
		o.ImageIndex = p.Index
	}
	if (o.MountDirName == "" || o.MountDirName == DefaultMountDirName) && p.MountDir != "" {
		o.MountDirName = p.MountDir
	}
	if o.PackageListFile == "" {
		o.PackageListFile = p.Packages
	}
	if o.RegistryFile == "" {
		o.RegistryFile = p.Registry
	}
}
