// Package bootstrap installs the configuration engine and the CI agent on
// the control host and places the automation payload there. Every step is
// idempotent: already-installed software is detected and skipped, so the
// driver can be re-run after a partial failure.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwagner/k3forge/internal/observe"
)

// Channel runs commands and places files on the control host. Implemented
// by the SSH client.
type Channel interface {
	Execute(ctx context.Context, command string) (string, error)
	Upload(ctx context.Context, localDir, remoteDir string) error
}

// Config holds the bootstrap parameters. RunnerToken comes from the
// environment, never from configuration files.
type Config struct {
	RunnerURL   string
	RunnerName  string
	RunnerToken string
	PayloadDir  string
	RemoteDir   string
}

// Driver performs the bootstrap sequence on one control host.
type Driver struct {
	channel  Channel
	observer observe.Observer
	cfg      Config
}

// NewDriver creates a bootstrap driver.
func NewDriver(channel Channel, cfg Config, observer observe.Observer) *Driver {
	if observer == nil {
		observer = observe.Nop{}
	}
	return &Driver{channel: channel, cfg: cfg, observer: observer}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes the bootstrap sequence: configuration engine, CI agent,
// agent service, payload. The first failing step aborts the run; completed
// steps are not rolled back and are skipped on the next run.
func (d *Driver) Run(ctx context.Context) error {
	steps := []step{
		{"install-config-engine", d.installConfigEngine},
		{"install-agent", d.installAgent},
		{"enable-agent", d.enableAgent},
		{"upload-payload", d.uploadPayload},
	}

	for _, s := range steps {
		d.observer.Event(observe.Event{
			Type:    observe.EventStageStarted,
			Stage:   s.name,
			Message: "starting",
		})
		if err := s.run(ctx); err != nil {
			d.observer.Event(observe.Event{
				Type:    observe.EventStageFailed,
				Stage:   s.name,
				Message: err.Error(),
			})
			return fmt.Errorf("bootstrap step %s failed: %w", s.name, err)
		}
		d.observer.Event(observe.Event{
			Type:    observe.EventStageCompleted,
			Stage:   s.name,
			Message: "completed",
		})
	}
	return nil
}

// installConfigEngine installs Ansible unless it is already present.
func (d *Driver) installConfigEngine(ctx context.Context) error {
	out, err := d.channel.Execute(ctx, "command -v ansible-playbook || true")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		d.observer.Printf("configuration engine already installed, skipping")
		return nil
	}

	_, err = d.channel.Execute(ctx,
		"DEBIAN_FRONTEND=noninteractive apt-get update -q && "+
			"DEBIAN_FRONTEND=noninteractive apt-get install -yq ansible")
	if err != nil {
		return fmt.Errorf("failed to install configuration engine: %w", err)
	}
	return nil
}

// installAgent installs the GitLab runner binary and registers it
// non-interactively. Registration is skipped when a runner configuration
// already exists from a previous run.
func (d *Driver) installAgent(ctx context.Context) error {
	out, err := d.channel.Execute(ctx, "command -v gitlab-runner || true")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		_, err = d.channel.Execute(ctx,
			"curl -fsSL https://packages.gitlab.com/install/repositories/runner/gitlab-runner/script.deb.sh | bash && "+
				"DEBIAN_FRONTEND=noninteractive apt-get install -yq gitlab-runner")
		if err != nil {
			return fmt.Errorf("failed to install CI agent: %w", err)
		}
	} else {
		d.observer.Printf("CI agent already installed, skipping install")
	}

	out, err = d.channel.Execute(ctx, "test -s /etc/gitlab-runner/config.toml && echo registered || true")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "registered" {
		d.observer.Printf("CI agent already registered, skipping registration")
		return nil
	}

	if d.cfg.RunnerToken == "" {
		return fmt.Errorf("runner registration token is not set")
	}
	_, err = d.channel.Execute(ctx, fmt.Sprintf(
		"gitlab-runner register --non-interactive --url %q --registration-token %q --name %q --executor shell",
		d.cfg.RunnerURL, d.cfg.RunnerToken, d.cfg.RunnerName))
	if err != nil {
		return fmt.Errorf("failed to register CI agent: %w", err)
	}
	return nil
}

// enableAgent starts the runner service. A service that fails to start
// leaves a registered but dead runner behind, so the registration is
// reverted before reporting the error.
func (d *Driver) enableAgent(ctx context.Context) error {
	_, err := d.channel.Execute(ctx, "systemctl enable --now gitlab-runner")
	if err == nil {
		return nil
	}

	if _, derr := d.channel.Execute(ctx, fmt.Sprintf("gitlab-runner unregister --name %q || true", d.cfg.RunnerName)); derr != nil {
		d.observer.Printf("failed to deregister CI agent after service failure: %v", derr)
	}
	return fmt.Errorf("failed to start CI agent service: %w", err)
}

// uploadPayload places the automation payload on the control host.
func (d *Driver) uploadPayload(ctx context.Context) error {
	if err := d.channel.Upload(ctx, d.cfg.PayloadDir, d.cfg.RemoteDir); err != nil {
		return fmt.Errorf("failed to upload payload: %w", err)
	}
	return nil
}
