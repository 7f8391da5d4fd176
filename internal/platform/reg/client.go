// Package reg adapts the platform registry tool to the hive-servicing
// interfaces the orchestrator depends on.
//
// Hives are loaded under HKLM at the reserved offline aliases; import applies
// a registry-modification file against whatever is currently loaded.
package reg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wimserv/wimserv/internal/servicing"
)

// ToolName is the registry tool binary resolved via PATH.
const ToolName = "reg"

const hiveRootPrefix = `HKLM\`

// Runner executes one tool invocation. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

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
	_ servicing.HiveServicer     = (*Client)(nil)
	_ servicing.RegistryImporter = (*Client)(nil)
)

// Client implements servicing.HiveServicer and servicing.RegistryImporter
// on top of the registry tool.
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

// LoadHive binds the hive file at hivePath to HKLM\<alias>.
func (c *Client) LoadHive(ctx context.Context, alias, hivePath string) error {
	_, err := c.run.Run(ctx, "load", hiveRootPrefix+alias, hivePath)
	return err
}

// UnloadHive releases the hive bound to HKLM\<alias>.
func (c *Client) UnloadHive(ctx context.Context, alias string) error {
	_, err := c.run.Run(ctx, "unload", hiveRootPrefix+alias)
	return err
}

// Import applies the registry-modification file against the loaded hives.
func (c *Client) Import(ctx context.Context, regFilePath string) error {
	_, err := c.run.Run(ctx, "import", regFilePath)
	return err
}
