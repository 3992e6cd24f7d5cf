package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwagner/k3forge/cmd/k3forge/handlers"
)

// Up returns the command that runs the full pipeline.
func Up() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply, generate inventory, bootstrap and join in one run",
		Long: `Run the complete pipeline: reconcile the infrastructure, generate
the inventory, bootstrap the control host, and join the cluster.

Every stage is idempotent, so a failed run can simply be repeated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}
