// Package main is the entry point for the wimserv CLI.
//
// wimserv services a Windows deployment image offline: it mounts the image,
// optionally removes pre-provisioned app packages and applies registry
// modifications against the offline hives, then commits or discards the
// changes on the operator's say-so.
//
// For detailed usage information, run:
//
//	wimserv --help
package main

import (
	"fmt"
	"os"

	"github.com/wimserv/wimserv/cmd/wimserv/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
