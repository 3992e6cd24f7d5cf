package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/cwagner/k3forge/internal/engine"
	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/observe"
	"github.com/cwagner/k3forge/internal/platform/hcloud"
	"github.com/cwagner/k3forge/internal/topology"
)

// Apply reconciles the declared cluster topology against the provider.
//
// The run refreshes the persisted state first, so drift such as a manually
// deleted server is recreated. A failure keeps everything already applied;
// re-running continues from there.
func Apply(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := ensureSSHKey(cfg); err != nil {
		return err
	}
	creds := loadCredentials()
	token, err := creds.RequireHCloudToken()
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg, creds)
	if err != nil {
		return err
	}

	observer := newObserver()
	infra := newInfraClient(token)
	provider := hcloud.NewProvider(infra, cfg.ClusterName)
	eng := engine.New(provider, store, cfg.ClusterName, observer)

	st, err := eng.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	desired, err := graph.Desired(topologySpec(cfg))
	if err != nil {
		return err
	}

	applied, err := eng.Apply(ctx, desired, st)
	if err != nil {
		return err
	}
	if applied == 0 {
		observer.Printf("infrastructure is up to date")
	} else {
		observer.Printf("applied %d operations", applied)
	}

	out, err := topology.Export(st, cfg.Workers.Count)
	if err != nil {
		return err
	}
	printOutputs(observer, out)
	return nil
}

// printOutputs logs the exported topology outputs in stable order.
func printOutputs(observer observe.Observer, out topology.Output) {
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		observer.Printf("output %s = %s", name, out[name])
	}
}
