package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records executed commands and returns canned output.
type fakeChannel struct {
	commands []string
	output   string
	err      error
}

func (c *fakeChannel) Execute(_ context.Context, command string) (string, error) {
	c.commands = append(c.commands, command)
	return c.output, c.err
}

func TestAnsibleRunner_ApplyCommand(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	runner := NewAnsibleRunner(ch, "/etc/k3forge/inventory.ini", "/etc/k3forge")

	err := runner.Apply(context.Background(), "worker-0", "worker-join", map[string]string{
		"server_url": "https://10.0.2.10:6443",
		"join_token": "secret",
	})

	require.NoError(t, err)
	require.Len(t, ch.commands, 1)
	cmd := ch.commands[0]
	assert.Contains(t, cmd, `ansible-playbook -i "/etc/k3forge/inventory.ini" -l "worker-0" "/etc/k3forge/worker-join.yml"`)
	// Extra vars render in stable key order.
	assert.Contains(t, cmd, `-e "join_token=secret" -e "server_url=https://10.0.2.10:6443"`)
}

func TestAnsibleRunner_ApplyWithoutVars(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	runner := NewAnsibleRunner(ch, "/etc/k3forge/inventory.ini", "/etc/k3forge")

	err := runner.Apply(context.Background(), "worker-0", "prepare", nil)

	require.NoError(t, err)
	require.Len(t, ch.commands, 1)
	assert.NotContains(t, ch.commands[0], " -e ")
}

func TestAnsibleRunner_ApplyErrorNamesHostAndTask(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{err: fmt.Errorf("exit status 2")}
	runner := NewAnsibleRunner(ch, "/etc/k3forge/inventory.ini", "/etc/k3forge")

	err := runner.Apply(context.Background(), "worker-0", "prepare", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare")
	assert.Contains(t, err.Error(), "worker-0")
}

func TestAnsibleRunner_CaptureParsesStdout(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{output: "control-plane-0 | CHANGED | rc=0 | (stdout) K10abc::server:secret\n"}
	runner := NewAnsibleRunner(ch, "/etc/k3forge/inventory.ini", "/etc/k3forge")

	out, err := runner.Capture(context.Background(), "control-plane-0", "cat /var/lib/rancher/k3s/server/node-token")

	require.NoError(t, err)
	assert.Equal(t, "K10abc::server:secret", out)
	require.Len(t, ch.commands, 1)
	assert.Contains(t, ch.commands[0], `ansible "control-plane-0" -i "/etc/k3forge/inventory.ini" -m command`)
	assert.Contains(t, ch.commands[0], "-o")
}

func TestAnsibleRunner_CaptureUnexpectedOutput(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{output: "garbled"}
	runner := NewAnsibleRunner(ch, "/etc/k3forge/inventory.ini", "/etc/k3forge")

	_, err := runner.Capture(context.Background(), "control-plane-0", "true")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected ad-hoc output")
}

func TestParseAdHocOutput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"changed", "host | CHANGED | rc=0 | (stdout) active", "active", false},
		{"success", "host | SUCCESS | rc=0 | (stdout) value\n", "value", false},
		{"no marker", "host | FAILED | rc=1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseAdHocOutput(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
