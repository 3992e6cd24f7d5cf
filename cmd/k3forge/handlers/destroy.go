package handlers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/platform/hcloud"
	"github.com/cwagner/k3forge/internal/state"
)

// confirmInput reads the confirmation answer - replaced in tests.
var confirmInput = func() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Destroy deletes every cluster resource in reverse dependency order and
// clears the recorded state. Resources that are already gone are skipped.
func Destroy(ctx context.Context, configPath string, force bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	creds := loadCredentials()
	token, err := creds.RequireHCloudToken()
	if err != nil {
		return err
	}

	if !force {
		fmt.Printf("This deletes all infrastructure of cluster %q. Type the cluster name to continue: ", cfg.ClusterName)
		answer, err := confirmInput()
		if err != nil {
			return err
		}
		if answer != cfg.ClusterName {
			return fmt.Errorf("confirmation did not match cluster name, aborting")
		}
	}

	observer := newObserver()
	infra := newInfraClient(token)
	name := func(logical string) string { return hcloud.ResourceName(cfg.ClusterName, logical) }

	// Servers first: the network cannot be deleted while attached.
	servers := []string{name(graph.ControlHostName), name(graph.ControlPlaneName())}
	for i := range cfg.Workers.Count {
		servers = append(servers, name(graph.WorkerName(i)))
	}
	for _, server := range servers {
		if err := infra.DeleteServer(ctx, server); err != nil {
			return fmt.Errorf("failed to delete server %s: %w", server, err)
		}
		observer.Printf("deleted server %s", server)
	}

	if err := infra.DeleteFirewall(ctx, name(graph.RuleSetName)); err != nil {
		return fmt.Errorf("failed to delete firewall: %w", err)
	}
	if err := infra.DeleteSSHKey(ctx, name(graph.KeyCredentialName)); err != nil {
		return fmt.Errorf("failed to delete SSH key: %w", err)
	}
	// Subnets and routes are deleted with the network.
	if err := infra.DeleteNetwork(ctx, name(graph.NetworkName)); err != nil {
		return fmt.Errorf("failed to delete network: %w", err)
	}
	observer.Printf("deleted firewall, SSH key and network")

	store, err := newStore(ctx, cfg, creds)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, cfg.ClusterName, state.New()); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	observer.Printf("cluster %s destroyed", cfg.ClusterName)
	return nil
}
