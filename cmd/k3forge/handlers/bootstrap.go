package handlers

import (
	"context"

	"github.com/cwagner/k3forge/internal/bootstrap"
	"github.com/cwagner/k3forge/internal/config"
	"github.com/cwagner/k3forge/internal/inventory"
	"github.com/cwagner/k3forge/internal/topology"
)

// Bootstrap prepares the control host: configuration engine, CI agent,
// agent service, and the automation payload including a fresh inventory.
func Bootstrap(ctx context.Context, configPath string) error {
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

	// Regenerate the inventory so the payload upload carries the current
	// topology.
	doc, err := inventory.Generate(out, cfg.Workers.Count)
	if err != nil {
		return err
	}
	if err := doc.WriteFile(inventoryPath(cfg)); err != nil {
		return err
	}

	ch, err := newChannel(cfg, out[topology.OutputControlHostPublicAddress])
	if err != nil {
		return err
	}

	driver := bootstrap.NewDriver(ch, bootstrap.Config{
		RunnerURL:   cfg.Runner.URL,
		RunnerName:  cfg.Runner.Name,
		RunnerToken: creds.RunnerToken,
		PayloadDir:  cfg.Payload.Dir,
		RemoteDir:   cfg.Payload.RemoteDir,
	}, newObserver())

	runCtx, cancel := context.WithTimeout(ctx, config.LoadTimeouts().Bootstrap)
	defer cancel()
	return driver.Run(runCtx)
}
