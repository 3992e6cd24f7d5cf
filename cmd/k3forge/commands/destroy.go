package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwagner/k3forge/cmd/k3forge/handlers"
)

// Destroy returns the command that tears the cluster down.
func Destroy() *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete all cluster infrastructure",
		Long: `Delete every resource of the cluster: servers, firewall, SSH key
and the network with its subnets and routes. Already-deleted resources are
skipped. The recorded state is cleared afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, force)
		},
	}

	configFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}
