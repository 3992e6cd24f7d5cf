// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo records build-time version information for the version
// command.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// Root returns the root command for the k3forge CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "k3forge",
		Short: "Provision and bootstrap a private k3s cluster on Hetzner Cloud",
	}

	cmd.AddCommand(Apply())
	cmd.AddCommand(Inventory())
	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(Join())
	cmd.AddCommand(Up())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Version())

	return cmd
}

// Version returns the command printing build information.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "k3forge %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// configFlag binds the shared --config flag.
func configFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", "", "Path to configuration file (default: k3forge.yaml)")
}
