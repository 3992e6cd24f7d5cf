package handlers

import (
	"context"

	"github.com/cwagner/k3forge/internal/inventory"
	"github.com/cwagner/k3forge/internal/topology"
)

// Inventory regenerates the host inventory from the reconciled state and
// writes it into the payload directory. It fails when the topology is not
// fully applied.
func Inventory(ctx context.Context, configPath string) error {
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

	target := inventoryPath(cfg)
	if err := doc.WriteFile(target); err != nil {
		return err
	}
	newObserver().Printf("inventory written to %s", target)
	return nil
}
