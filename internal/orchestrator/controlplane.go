package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwagner/k3forge/internal/observe"
)

const (
	taskControlPlaneInit = "control-plane-init"

	// serverServiceProbe reports whether the control-plane service is
	// already running, making init a no-op.
	serverServiceProbe = "systemctl is-active k3s"

	// joinTokenPath is where the control-plane service writes the cluster
	// join token.
	joinTokenPath = "/var/lib/rancher/k3s/server/node-token"
)

// ControlPlaneInitPhase initializes the control-plane node and captures
// the join token workers need. An already-initialized control plane is
// left alone; the token is captured either way.
type ControlPlaneInitPhase struct{}

// Name implements Phase.
func (p *ControlPlaneInitPhase) Name() string { return "init-control-plane" }

// Run implements Phase.
func (p *ControlPlaneInitPhase) Run(ctx *Context) error {
	if len(ctx.Inventory.ControlPlane) == 0 {
		return fmt.Errorf("inventory has no control-plane host")
	}
	host := ctx.Inventory.ControlPlane[0]

	active, err := serviceActive(ctx, p.Name(), host.Name, serverServiceProbe)
	if err != nil {
		return err
	}
	if active {
		ctx.Observer.Event(observe.Event{
			Type:    observe.EventHostSkipped,
			Stage:   p.Name(),
			Host:    host.Name,
			Message: "control plane already initialized",
		})
	} else {
		err := ctx.runOnHost(p.Name(), host.Name, func(runCtx context.Context) error {
			return ctx.Runner.Apply(runCtx, host.Name, taskControlPlaneInit, map[string]string{
				"node_address": host.Address,
			})
		})
		if err != nil {
			return err
		}
		ctx.Observer.Event(observe.Event{
			Type:  observe.EventHostCompleted,
			Stage: p.Name(),
			Host:  host.Name,
		})
	}

	token, err := captureJoinToken(ctx, p.Name(), host.Name)
	if err != nil {
		return err
	}

	ctx.State.JoinToken = token
	ctx.State.ControlPlaneAddress = host.Address
	return nil
}

// serviceActive probes a systemd unit state on the host for the named
// phase. is-active exits non-zero for inactive units, so a probe failure
// reads as not active and the init path decides.
func serviceActive(ctx *Context, phase, host, probe string) (bool, error) {
	var out string
	err := ctx.runOnHost(phase, host, func(runCtx context.Context) error {
		var captureErr error
		out, captureErr = ctx.Runner.Capture(runCtx, host, probe)
		return captureErr
	})
	if err != nil {
		if IsTimeout(err) {
			return false, err
		}
		return false, nil
	}
	return strings.TrimSpace(out) == "active", nil
}

// captureJoinToken reads the join token from the control plane.
func captureJoinToken(ctx *Context, phase, host string) (string, error) {
	var token string
	err := ctx.runOnHost(phase, host, func(runCtx context.Context) error {
		out, captureErr := ctx.Runner.Capture(runCtx, host, "cat "+joinTokenPath)
		if captureErr != nil {
			return captureErr
		}
		token = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &TokenUnavailableError{Host: host}
	}
	return token, nil
}
