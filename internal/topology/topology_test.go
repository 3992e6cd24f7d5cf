package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/state"
)

func reconciledState() *state.State {
	st := state.New()
	st.Put(graph.ControlHostName, state.Record{
		Kind: string(graph.KindComputeInstance), ID: "1",
		Attrs: map[string]string{graph.AttrPublicIP: "203.0.113.10", graph.PropPrivateIP: "10.0.1.2"},
	})
	st.Put(graph.ControlPlaneName(), state.Record{
		Kind: string(graph.KindComputeInstance), ID: "2",
		Attrs: map[string]string{graph.PropPrivateIP: "10.0.2.10"},
	})
	st.Put(graph.WorkerName(0), state.Record{
		Kind: string(graph.KindComputeInstance), ID: "3",
		Attrs: map[string]string{graph.PropPrivateIP: "10.0.2.20"},
	})
	st.Put(graph.WorkerName(1), state.Record{
		Kind: string(graph.KindComputeInstance), ID: "4",
		Attrs: map[string]string{graph.PropPrivateIP: "10.0.2.21"},
	})
	return st
}

func TestExport_ResolvesAllOutputs(t *testing.T) {
	t.Parallel()
	out, err := Export(reconciledState(), 2)

	require.NoError(t, err)
	assert.Equal(t, "203.0.113.10", out[OutputControlHostPublicAddress])
	assert.Equal(t, "10.0.2.10", out[OutputControlPlanePrivateAddress])
	assert.Equal(t, "10.0.2.20", out[WorkerOutputName(0)])
	assert.Equal(t, "10.0.2.21", out[WorkerOutputName(1)])
	assert.Len(t, out, 4)
}

func TestExport_MissingWorkerIsUnresolved(t *testing.T) {
	t.Parallel()
	_, err := Export(reconciledState(), 3)

	require.Error(t, err)
	assert.True(t, IsUnresolved(err))

	var unresolved *UnresolvedOutputError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, WorkerOutputName(2), unresolved.Output)
	assert.Equal(t, graph.WorkerName(2), unresolved.Node)
}

func TestExport_MissingAttributeIsUnresolved(t *testing.T) {
	t.Parallel()
	st := reconciledState()
	rec, _ := st.Get(graph.ControlHostName)
	delete(rec.Attrs, graph.AttrPublicIP)
	st.Put(graph.ControlHostName, rec)

	_, err := Export(st, 2)

	require.Error(t, err)
	assert.True(t, IsUnresolved(err))
}

func TestExport_EmptyStateIsUnresolved(t *testing.T) {
	t.Parallel()
	_, err := Export(state.New(), 1)

	require.Error(t, err)
	assert.True(t, IsUnresolved(err))
}
