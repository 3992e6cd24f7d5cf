package handlers

import (
	"context"
	"fmt"
)

// Up runs the full pipeline: apply, inventory, bootstrap, join. Each stage
// is idempotent; a failed run can be repeated as a whole.
func Up(ctx context.Context, configPath string) error {
	stages := []struct {
		name string
		run  func(context.Context, string) error
	}{
		{"apply", Apply},
		{"inventory", Inventory},
		{"bootstrap", Bootstrap},
		{"join", Join},
	}

	for _, stage := range stages {
		if err := stage.run(ctx, configPath); err != nil {
			return fmt.Errorf("%s stage failed: %w", stage.name, err)
		}
	}
	return nil
}
