// Package topology extracts the named outputs of a reconciled resource
// graph: the addresses and identifiers downstream stages need. Export is a
// pure read of the reconciled state and can be called repeatedly.
package topology

import (
	"errors"
	"fmt"

	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/state"
)

// Fixed output names.
const (
	OutputControlHostPublicAddress   = "control-host-public-address"
	OutputControlPlanePrivateAddress = "control-plane-private-address"
)

// WorkerOutputName returns the output name for the i-th worker's private
// address.
func WorkerOutputName(i int) string {
	return fmt.Sprintf("worker-private-address-%d", i)
}

// Output maps output names to resolved values.
type Output map[string]string

// UnresolvedOutputError reports an output whose backing resource has not
// been reconciled yet. Downstream stages must treat this as fatal: the
// pipeline was invoked out of order or a prior apply did not complete.
type UnresolvedOutputError struct {
	Output string
	Node   string
	Attr   string
}

func (e *UnresolvedOutputError) Error() string {
	return fmt.Sprintf("output %q is unresolved: node %s has no reconciled %s", e.Output, e.Node, e.Attr)
}

// IsUnresolved reports whether err is an UnresolvedOutputError.
func IsUnresolved(err error) bool {
	var unresolved *UnresolvedOutputError
	return errors.As(err, &unresolved)
}

// Export resolves all named outputs for a cluster with workerCount workers
// from the reconciled state.
func Export(st *state.State, workerCount int) (Output, error) {
	out := make(Output, workerCount+2)

	if err := resolve(st, out, OutputControlHostPublicAddress, graph.ControlHostName, graph.AttrPublicIP); err != nil {
		return nil, err
	}
	if err := resolve(st, out, OutputControlPlanePrivateAddress, graph.ControlPlaneName(), graph.PropPrivateIP); err != nil {
		return nil, err
	}
	for i := range workerCount {
		if err := resolve(st, out, WorkerOutputName(i), graph.WorkerName(i), graph.PropPrivateIP); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func resolve(st *state.State, out Output, output, node, attr string) error {
	value, ok := st.Attr(node, attr)
	if !ok || value == "" {
		return &UnresolvedOutputError{Output: output, Node: node, Attr: attr}
	}
	out[output] = value
	return nil
}
