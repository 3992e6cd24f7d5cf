// Package main is the entry point for the k3forge CLI.
//
// k3forge provisions a private k3s cluster on Hetzner Cloud: it reconciles
// the network and compute topology, generates the host inventory,
// bootstraps the control host with Ansible and a GitLab runner, and joins
// the cluster nodes.
//
// Commands: apply, inventory, bootstrap, join, up, destroy.
//
// For detailed usage information, run:
//
//	k3forge --help
package main

import (
	"fmt"
	"os"

	"github.com/cwagner/k3forge/cmd/k3forge/commands"
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
