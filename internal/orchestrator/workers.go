package orchestrator

import (
	"context"
	"fmt"

	"github.com/cwagner/k3forge/internal/observe"
	"github.com/cwagner/k3forge/internal/util/async"
)

const (
	taskWorkerJoin = "worker-join"

	// agentServiceProbe reports whether a worker has already joined.
	agentServiceProbe = "systemctl is-active k3s-agent"
)

// JoinWorkersPhase joins every worker to the control plane in parallel.
// Workers whose agent service is already running are skipped. Every worker
// is attempted even when some fail; the phase error names the failures.
type JoinWorkersPhase struct{}

// Name implements Phase.
func (p *JoinWorkersPhase) Name() string { return "join-workers" }

// Run implements Phase.
func (p *JoinWorkersPhase) Run(ctx *Context) error {
	if ctx.State.JoinToken == "" {
		return fmt.Errorf("join token is not available, control plane init must run first")
	}

	workers := ctx.Inventory.Workers
	vars := map[string]string{
		"join_token": ctx.State.JoinToken,
		"server_url": fmt.Sprintf("https://%s:6443", ctx.State.ControlPlaneAddress),
	}

	tasks := make([]async.Task, 0, len(workers))
	for _, worker := range workers {
		name := worker.Name
		tasks = append(tasks, async.Task{
			Name: name,
			Func: func(taskCtx context.Context) error {
				active, err := serviceActive(ctx, p.Name(), name, agentServiceProbe)
				if err != nil {
					return err
				}
				if active {
					ctx.Observer.Event(observe.Event{
						Type:    observe.EventHostSkipped,
						Stage:   p.Name(),
						Host:    name,
						Message: "already joined",
					})
					return nil
				}

				err = ctx.runOnHost(p.Name(), name, func(runCtx context.Context) error {
					return ctx.Runner.Apply(runCtx, name, taskWorkerJoin, vars)
				})
				if err != nil {
					return err
				}
				ctx.Observer.Event(observe.Event{
					Type:  observe.EventHostCompleted,
					Stage: p.Name(),
					Host:  name,
				})
				return nil
			},
		})
	}

	failures := async.Run(ctx, ctx.limit(len(tasks)), tasks)
	return phaseError(ctx, p.Name(), failures)
}
