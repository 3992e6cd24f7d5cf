package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwagner/k3forge/cmd/k3forge/handlers"
)

// Inventory returns the command that regenerates the host inventory from
// the reconciled state.
func Inventory() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Generate the host inventory from the reconciled topology",
		Long: `Generate the Ansible inventory for the cluster hosts.

The inventory is derived from the reconciled state and written into the
payload directory, replacing any previous version. It fails when the
topology has not been fully applied yet.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Inventory(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}
