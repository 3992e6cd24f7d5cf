package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_RejectsDuplicates(t *testing.T) {
	t.Parallel()
	g := New()

	require.NoError(t, g.Add(&Node{Kind: KindNetwork, Name: "net"}))
	err := g.Add(&Node{Kind: KindSubnet, Name: "net"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestAdd_RejectsUnnamedNode(t *testing.T) {
	t.Parallel()
	g := New()

	err := g.Add(&Node{Kind: KindNetwork})

	require.Error(t, err)
}

func TestValidate_UndeclaredDependency(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.Add(&Node{Kind: KindSubnet, Name: "subnet", DependsOn: []string{"missing"}}))

	err := g.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared")
}

func TestTopologicalOrder_DependenciesFirst(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.Add(&Node{Kind: KindComputeInstance, Name: "server", DependsOn: []string{"subnet", "key"}}))
	require.NoError(t, g.Add(&Node{Kind: KindSubnet, Name: "subnet", DependsOn: []string{"net"}}))
	require.NoError(t, g.Add(&Node{Kind: KindNetwork, Name: "net"}))
	require.NoError(t, g.Add(&Node{Kind: KindKeyCredential, Name: "key"}))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)

	positions := make(map[string]int, len(order))
	for i, n := range order {
		positions[n.Name] = i
	}
	assert.Less(t, positions["net"], positions["subnet"])
	assert.Less(t, positions["subnet"], positions["server"])
	assert.Less(t, positions["key"], positions["server"])
}

func TestTopologicalOrder_StableForUnconstrainedNodes(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.Add(&Node{Kind: KindKeyCredential, Name: "a"}))
	require.NoError(t, g.Add(&Node{Kind: KindKeyCredential, Name: "b"}))
	require.NoError(t, g.Add(&Node{Kind: KindKeyCredential, Name: "c"}))

	for range 10 {
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, "a", order[0].Name)
		assert.Equal(t, "b", order[1].Name)
		assert.Equal(t, "c", order[2].Name)
	}
}

func TestTopologicalOrder_DetectsCycle(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.Add(&Node{Kind: KindNetwork, Name: "a", DependsOn: []string{"b"}}))
	require.NoError(t, g.Add(&Node{Kind: KindNetwork, Name: "b", DependsOn: []string{"a"}}))

	_, err := g.TopologicalOrder()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
