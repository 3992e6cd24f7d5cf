package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwagner/k3forge/cmd/k3forge/handlers"
)

// Join returns the command that forms the cluster.
func Join() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Initialize the control plane and join the workers",
		Long: `Run the cluster join sequence through the control host.

All hosts are prepared first, then the control plane is initialized and
its join token captured, then every worker joins in parallel. Hosts that
already completed a step are skipped, so the command can be re-run after
a partial failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Join(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}
