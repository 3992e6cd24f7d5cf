package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwagner/k3forge/internal/observe"
	"github.com/cwagner/k3forge/internal/util/async"
)

// taskPrepare is the playbook applied to every host before any join work.
const taskPrepare = "prepare"

// PreparePhase brings every cluster host to a common baseline: packages,
// kernel parameters, and everything else the join steps assume. Hosts are
// prepared in parallel; the phase fails if any host fails, after all hosts
// have been attempted.
type PreparePhase struct{}

// Name implements Phase.
func (p *PreparePhase) Name() string { return "prepare" }

// Run implements Phase.
func (p *PreparePhase) Run(ctx *Context) error {
	hosts := ctx.Inventory.Hosts()

	tasks := make([]async.Task, 0, len(hosts))
	for _, host := range hosts {
		name := host.Name
		tasks = append(tasks, async.Task{
			Name: name,
			Func: func(taskCtx context.Context) error {
				return ctx.runOnHost(p.Name(), name, func(runCtx context.Context) error {
					return ctx.Runner.Apply(runCtx, name, taskPrepare, nil)
				})
			},
		})
	}

	failures := async.Run(ctx, ctx.limit(len(tasks)), tasks)
	for _, host := range hosts {
		if !failedHost(failures, host.Name) {
			ctx.Observer.Event(observe.Event{
				Type:  observe.EventHostCompleted,
				Stage: p.Name(),
				Host:  host.Name,
			})
		}
	}
	return phaseError(ctx, p.Name(), failures)
}

// failedHost reports whether the named host appears in the failure list.
func failedHost(failures []async.TaskError, name string) bool {
	for _, f := range failures {
		if f.Name == name {
			return true
		}
	}
	return false
}

// phaseError emits per-host failure events and folds the failures into one
// phase error naming every failed host.
func phaseError(ctx *Context, phase string, failures []async.TaskError) error {
	if len(failures) == 0 {
		return nil
	}

	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Name)
		ctx.Observer.Event(observe.Event{
			Type:    observe.EventHostFailed,
			Stage:   phase,
			Host:    f.Name,
			Message: f.Err.Error(),
		})
	}
	return fmt.Errorf("%d of the attempted hosts failed (%s): %w",
		len(failures), strings.Join(names, ", "), failures[0].Err)
}
