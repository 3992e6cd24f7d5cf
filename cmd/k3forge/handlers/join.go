package handlers

import (
	"context"

	"github.com/cwagner/k3forge/internal/inventory"
	"github.com/cwagner/k3forge/internal/orchestrator"
	"github.com/cwagner/k3forge/internal/topology"
)

// Join runs the three-phase cluster join sequence through the control
// host: prepare every node, initialize the control plane and capture its
// join token, then join the workers in parallel.
func Join(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	creds := loadCredentials()

	store, err := newStore(ctx, cfg, creds)
	if err != nil {
		return err
	}
	st, err := store.Load(ctx, cfg.ClusterName)
	if err != nil {
		return err
	}
	out, err := topology.Export(st, cfg.Workers.Count)
	if err != nil {
		return err
	}
	doc, err := inventory.Generate(out, cfg.Workers.Count)
	if err != nil {
		return err
	}

	ch, err := newChannel(cfg, out[topology.OutputControlHostPublicAddress])
	if err != nil {
		return err
	}
	runner := orchestrator.NewAnsibleRunner(ch, remoteInventoryPath(cfg), cfg.Payload.RemoteDir)

	octx := orchestrator.NewContext(ctx, doc, runner, newObserver())
	return orchestrator.RunPhases(octx, orchestrator.DefaultPhases())
}
