package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwagner/k3forge/internal/topology"
)

func fullOutput() topology.Output {
	return topology.Output{
		topology.OutputControlHostPublicAddress:   "203.0.113.10",
		topology.OutputControlPlanePrivateAddress: "10.0.2.10",
		topology.WorkerOutputName(0):              "10.0.2.20",
		topology.WorkerOutputName(1):              "10.0.2.21",
	}
}

func TestGenerate_GroupsHostsByRole(t *testing.T) {
	t.Parallel()
	doc, err := Generate(fullOutput(), 2)

	require.NoError(t, err)
	require.Len(t, doc.ControlPlane, 1)
	require.Len(t, doc.Workers, 2)
	assert.Equal(t, "control-plane-0", doc.ControlPlane[0].Name)
	assert.Equal(t, "10.0.2.10", doc.ControlPlane[0].Address)
	assert.Equal(t, "worker-1", doc.Workers[1].Name)
}

func TestGenerate_MissingAddressFails(t *testing.T) {
	t.Parallel()
	out := fullOutput()
	delete(out, topology.WorkerOutputName(1))

	_, err := Generate(out, 2)

	require.Error(t, err)
	assert.True(t, IsIncomplete(err))

	var incomplete *IncompleteTopologyError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, topology.WorkerOutputName(1), incomplete.Missing)
}

func TestGenerate_RejectsZeroWorkers(t *testing.T) {
	t.Parallel()
	_, err := Generate(fullOutput(), 0)
	require.Error(t, err)
}

func TestHosts_StableOrder(t *testing.T) {
	t.Parallel()
	doc, err := Generate(fullOutput(), 2)
	require.NoError(t, err)

	hosts := doc.Hosts()
	require.Len(t, hosts, 3)
	assert.Equal(t, "control-plane-0", hosts[0].Name)
	assert.Equal(t, "worker-0", hosts[1].Name)
	assert.Equal(t, "worker-1", hosts[2].Name)
}

func TestRender_Format(t *testing.T) {
	t.Parallel()
	doc, err := Generate(fullOutput(), 2)
	require.NoError(t, err)

	want := "[control-plane]\n" +
		"control-plane-0 ansible_host=10.0.2.10\n" +
		"\n[workers]\n" +
		"worker-0 ansible_host=10.0.2.20\n" +
		"worker-1 ansible_host=10.0.2.21\n" +
		"\n[cluster:children]\ncontrol-plane\nworkers\n"
	assert.Equal(t, want, string(doc.Render()))
}

func TestRender_ByteDeterministic(t *testing.T) {
	t.Parallel()
	a, err := Generate(fullOutput(), 2)
	require.NoError(t, err)
	b, err := Generate(fullOutput(), 2)
	require.NoError(t, err)

	assert.Equal(t, a.Render(), b.Render())
}

func TestWriteFile_ReplacesPrevious(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "payload", "inventory.ini")

	doc, err := Generate(fullOutput(), 2)
	require.NoError(t, err)
	require.NoError(t, doc.WriteFile(path))

	out := fullOutput()
	out[topology.WorkerOutputName(1)] = "10.0.2.99"
	updated, err := Generate(out, 2)
	require.NoError(t, err)
	require.NoError(t, updated.WriteFile(path))

	data, err := os.ReadFile(path) // #nosec G304
	require.NoError(t, err)
	assert.Contains(t, string(data), "10.0.2.99")
	assert.NotContains(t, string(data), "10.0.2.21")
}
