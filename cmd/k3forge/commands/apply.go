package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwagner/k3forge/cmd/k3forge/handlers"
)

// Apply returns the command that reconciles the declared topology.
//
// Environment variables:
//
//	HCLOUD_TOKEN: Hetzner Cloud API token (required)
func Apply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster infrastructure",
		Long: `Reconcile the declared cluster topology against Hetzner Cloud.

Existing resources are left alone when unchanged, resizable fields are
updated in place, and a change to an immutable field fails with a conflict
instead of recreating the resource. Re-running after a failure continues
where the previous run stopped.

Examples:
  # Reconcile using k3forge.yaml in the current directory
  k3forge apply

  # Reconcile using a specific config file
  k3forge apply -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}
