// Package dism adapts the platform image-servicing tool to the narrow
// interfaces the servicing orchestrator depends on.
//
// Every operation is a single invocation of the external tool; nothing about
// the mount engine or the provisioning inventory is reimplemented here.
package dism

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wimserv/wimserv/internal/servicing"
)

// ToolName is the image-servicing binary resolved via PATH.
const ToolName = "dism"

// Runner executes one tool invocation and returns its combined output.
// Tests substitute a fake to assert on argv and script responses.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// execRunner runs the real tool via os/exec.
type execRunner struct {
	tool string
}

func (r execRunner) Run(ctx context.Context, args ...string) (string, error) {
	// #nosec G204 - the tool name is a trusted constant, not user input
	cmd := exec.CommandContext(ctx, r.tool, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %w\n%s", r.tool, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// compile-time interface checks.
var (
	_ servicing.ImageServicer  = (*Client)(nil)
	_ servicing.PackageManager = (*Client)(nil)
)

// Client implements servicing.ImageServicer and servicing.PackageManager on
// top of the image-servicing tool.
type Client struct {
	run Runner
}

// NewClient creates a client that invokes the real tool.
func NewClient() *Client {
	return &Client{run: execRunner{tool: ToolName}}
}

// NewClientWithRunner creates a client over a custom runner. Used in tests.
func NewClientWithRunner(r Runner) *Client {
	return &Client{run: r}
}

// CleanupMounts discards stale mount state from earlier failed runs.
func (c *Client) CleanupMounts(ctx context.Context) error {
	_, err := c.run.Run(ctx, "/Cleanup-Wim")
	return err
}

// Mount mounts the given image index read/write at mountDir.
func (c *Client) Mount(ctx context.Context, imagePath string, index int, mountDir string) error {
	_, err := c.run.Run(ctx,
		"/Mount-Image",
		"/ImageFile:"+imagePath,
		fmt.Sprintf("/Index:%d", index),
		"/MountDir:"+mountDir,
	)
	return err
}

// Unmount unmounts mountDir, committing or discarding per disposition.
func (c *Client) Unmount(ctx context.Context, mountDir string, disposition servicing.Disposition) error {
	flag := "/Discard"
	if disposition == servicing.DispositionCommit {
		flag = "/Commit"
	}
	_, err := c.run.Run(ctx, "/Unmount-Image", "/MountDir:"+mountDir, flag)
	return err
}

// ListProvisioned enumerates the provisioned app packages in the mounted
// image by parsing the tool's field-per-line report.
func (c *Client) ListProvisioned(ctx context.Context, mountDir string) ([]servicing.ProvisionedPackage, error) {
	out, err := c.run.Run(ctx, "/Image:"+mountDir, "/Get-ProvisionedAppxPackages")
	if err != nil {
		return nil, err
	}
	return parseProvisioned(out), nil
}

// RemoveProvisioned removes a single provisioned package by full name.
func (c *Client) RemoveProvisioned(ctx context.Context, mountDir, packageName string) error {
	_, err := c.run.Run(ctx,
		"/Image:"+mountDir,
		"/Remove-ProvisionedAppxPackage",
		"/PackageName:"+packageName,
	)
	return err
}

// parseProvisioned extracts package records from the enumeration output.
//
// The report is a sequence of "Field : Value" blocks, one per package,
// each opening with DisplayName. Fields we do not track are ignored.
func parseProvisioned(output string) []servicing.ProvisionedPackage {
	var packages []servicing.ProvisionedPackage
	var current *servicing.ProvisionedPackage

	flush := func() {
		if current != nil && current.PackageName != "" {
			packages = append(packages, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)

		switch field {
		case "DisplayName":
			flush()
			current = &servicing.ProvisionedPackage{DisplayName: value}
		case "Version":
			if current != nil {
				current.Version = value
			}
		case "PackageName":
			if current != nil {
				current.PackageName = value
			}
		}
	}
	flush()

	return packages
}
