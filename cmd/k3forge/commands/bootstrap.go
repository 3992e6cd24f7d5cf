package commands

import (
	"github.com/spf13/cobra"

	"github.com/cwagner/k3forge/cmd/k3forge/handlers"
)

// Bootstrap returns the command that prepares the control host.
//
// Environment variables:
//
//	RUNNER_REGISTRATION_TOKEN: CI agent registration token (required
//	unless the agent is already registered)
func Bootstrap() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Install the configuration engine and CI agent on the control host",
		Long: `Bootstrap the control host over SSH.

Installs Ansible and the GitLab runner, registers the runner, starts its
service, and uploads the automation payload including the generated
inventory. Steps already completed by a previous run are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}
