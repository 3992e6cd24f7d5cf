// Package orchestrator drives the cluster join sequence over the generated
// inventory: prepare all hosts, initialize the control plane and capture
// its join token, then join the workers in parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwagner/k3forge/internal/config"
	"github.com/cwagner/k3forge/internal/inventory"
	"github.com/cwagner/k3forge/internal/observe"
)

// State holds the shared results of orchestration phases. It is
// progressively populated as each phase completes.
type State struct {
	// JoinToken is the cluster join token captured from the control plane.
	JoinToken string
	// ControlPlaneAddress is the private address workers join against.
	ControlPlaneAddress string
}

// Context wraps all dependencies and state needed for an orchestration
// phase.
type Context struct {
	context.Context
	Inventory *inventory.Document
	Runner    Runner
	Observer  observe.Observer
	Timeouts  *config.Timeouts
	State     *State

	// Parallelism bounds concurrent per-host work. Zero means one task
	// per host.
	Parallelism int
}

// NewContext creates a new orchestration context.
func NewContext(ctx context.Context, inv *inventory.Document, runner Runner, observer observe.Observer) *Context {
	if observer == nil {
		observer = observe.Nop{}
	}
	return &Context{
		Context:   ctx,
		Inventory: inv,
		Runner:    runner,
		Observer:  observer,
		Timeouts:  config.LoadTimeouts(),
		State:     &State{},
	}
}

// Phase defines one step of the orchestration sequence.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Run executes the phase.
	Run(ctx *Context) error
}

// RunPhases executes all phases sequentially. The first failing phase
// aborts the sequence.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting orchestration with %d phases...", len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		ctx.Observer.Printf("[%s] starting", name)

		if err := phase.Run(ctx); err != nil {
			ctx.Observer.Printf("[%s] failed: %v", name, err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(phaseStart).Round(time.Millisecond))
	}

	ctx.Observer.Printf("Orchestration completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

// DefaultPhases returns the standard three-phase join sequence.
func DefaultPhases() []Phase {
	return []Phase{
		&PreparePhase{},
		&ControlPlaneInitPhase{},
		&JoinWorkersPhase{},
	}
}

// runOnHost runs one remote task under the per-task time budget and
// classifies its failure.
func (c *Context) runOnHost(phase, host string, fn func(context.Context) error) error {
	taskCtx, cancel := context.WithTimeout(c.Context, c.Timeouts.RemoteTask)
	defer cancel()

	err := fn(taskCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Host: host, Phase: phase, Budget: c.Timeouts.RemoteTask}
	}
	return &RemoteExecutionError{Host: host, Phase: phase, Err: err}
}

// limit returns the concurrency bound for n hosts.
func (c *Context) limit(n int) int {
	if c.Parallelism > 0 && c.Parallelism < n {
		return c.Parallelism
	}
	if n < 1 {
		return 1
	}
	return n
}
