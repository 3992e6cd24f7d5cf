// Package graph models the desired cloud topology as a dependency graph of
// declared resources. The graph is the input to the provisioning engine:
// nodes are reconciled in topological order so every dependency is resolved
// before its dependents.
package graph

import (
	"fmt"
)

// Kind identifies the type of a declared cloud resource.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindSubnet          Kind = "subnet"
	KindRouteTable      Kind = "route-table"
	KindGateway         Kind = "gateway"
	KindSecurityRuleSet Kind = "security-rule-set"
	KindComputeInstance Kind = "compute-instance"
	KindKeyCredential   Kind = "key-credential"
)

// Property and attribute keys shared between the graph builder, the
// provisioning engine and the cloud adapter.
const (
	PropCIDR        = "cidr"
	PropZone        = "zone"
	PropSubnetRole  = "role"
	PropDestination = "destination"
	PropSSHSource   = "ssh_source"
	PropServerType  = "server_type"
	PropImage       = "image"
	PropLocation    = "location"
	PropPrivateIP   = "private_ip"
	PropPublicIPv4  = "public_ipv4"
	PropPublicKey   = "public_key"

	// Attributes observed from the provider, not declared.
	AttrPublicIP  = "public_ip"
	AttrGatewayIP = "gateway_ip"
)

// Node is one declared cloud resource. Name is unique within a graph;
// DependsOn references other nodes by logical name.
type Node struct {
	Kind       Kind
	Name       string
	Properties map[string]string
	DependsOn  []string
}

// Graph holds declared nodes in declaration order.
type Graph struct {
	nodes []*Node
	index map[string]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]*Node)}
}

// Add appends a node to the graph. Logical names must be unique.
func (g *Graph) Add(n *Node) error {
	if n.Name == "" {
		return fmt.Errorf("node of kind %q has no name", n.Kind)
	}
	if _, ok := g.index[n.Name]; ok {
		return fmt.Errorf("duplicate node %q", n.Name)
	}
	g.nodes = append(g.nodes, n)
	g.index[n.Name] = n
	return nil
}

// Node returns the node with the given logical name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.index[name]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Validate checks that every dependency reference resolves and that the
// dependency relation is acyclic.
func (g *Graph) Validate() error {
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.index[dep]; !ok {
				return fmt.Errorf("node %q depends on undeclared node %q", n.Name, dep)
			}
		}
	}
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns the nodes sorted so that every node appears after
// all of its dependencies. Nodes with no ordering constraint between them
// keep their declaration order. Returns an error if the graph has a cycle.
func (g *Graph) TopologicalOrder() ([]*Node, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n.Name] = len(n.DependsOn)
	}

	placed := make(map[string]bool, len(g.nodes))
	order := make([]*Node, 0, len(g.nodes))

	for len(order) < len(g.nodes) {
		progressed := false
		// Scanning in declaration order makes the tie-break deterministic.
		for _, n := range g.nodes {
			if placed[n.Name] || indegree[n.Name] != 0 {
				continue
			}
			placed[n.Name] = true
			order = append(order, n)
			for _, m := range g.nodes {
				if placed[m.Name] {
					continue
				}
				for _, dep := range m.DependsOn {
					if dep == n.Name {
						indegree[m.Name]--
					}
				}
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle involving %s", firstUnplaced(g.nodes, placed))
		}
	}

	return order, nil
}

func firstUnplaced(nodes []*Node, placed map[string]bool) string {
	for _, n := range nodes {
		if !placed[n.Name] {
			return n.Name
		}
	}
	return "unknown node"
}
