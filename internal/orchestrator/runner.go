package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Runner executes configuration tasks and ad-hoc commands against
// inventory hosts.
type Runner interface {
	// Apply runs the named task against one host.
	Apply(ctx context.Context, host, task string, vars map[string]string) error

	// Capture runs a command on one host and returns its stdout.
	Capture(ctx context.Context, host, command string) (string, error)
}

// Channel runs commands on the control host. Implemented by the SSH
// client.
type Channel interface {
	Execute(ctx context.Context, command string) (string, error)
}

// AnsibleRunner runs tasks through ansible-playbook on the control host,
// which reaches the cluster hosts over the private network.
type AnsibleRunner struct {
	channel       Channel
	inventoryPath string
	playbookDir   string
}

// NewAnsibleRunner creates a runner that uses the inventory and playbooks
// previously placed on the control host.
func NewAnsibleRunner(channel Channel, inventoryPath, playbookDir string) *AnsibleRunner {
	return &AnsibleRunner{
		channel:       channel,
		inventoryPath: inventoryPath,
		playbookDir:   playbookDir,
	}
}

var _ Runner = (*AnsibleRunner)(nil)

// Apply implements Runner. One invocation targets exactly one host so
// failures and timeouts stay attributable.
func (r *AnsibleRunner) Apply(ctx context.Context, host, task string, vars map[string]string) error {
	cmd := fmt.Sprintf("ansible-playbook -i %q -l %q %q%s",
		r.inventoryPath, host, fmt.Sprintf("%s/%s.yml", r.playbookDir, task), extraVars(vars))

	if _, err := r.channel.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("task %s on %s: %w", task, host, err)
	}
	return nil
}

// Capture implements Runner using an ad-hoc command invocation.
func (r *AnsibleRunner) Capture(ctx context.Context, host, command string) (string, error) {
	cmd := fmt.Sprintf("ansible %q -i %q -m command -a %q -o", host, r.inventoryPath, command)

	out, err := r.channel.Execute(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("command on %s: %w", host, err)
	}
	return parseAdHocOutput(out)
}

// extraVars renders -e flags in stable key order.
func extraVars(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " -e %q", k+"="+vars[k])
	}
	return b.String()
}

// parseAdHocOutput extracts stdout from one-line ad-hoc output of the form
// "host | SUCCESS | rc=0 | (stdout) value".
func parseAdHocOutput(out string) (string, error) {
	const marker = "(stdout) "
	idx := strings.Index(out, marker)
	if idx < 0 {
		return "", fmt.Errorf("unexpected ad-hoc output: %s", strings.TrimSpace(out))
	}
	return strings.TrimSpace(out[idx+len(marker):]), nil
}
