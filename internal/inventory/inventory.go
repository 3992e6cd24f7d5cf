// Package inventory generates the host-grouping document consumed by the
// configuration-management stage. The document is regenerated from the
// exported topology on every run and is never hand-edited; rendering is
// byte-deterministic so downstream tooling can diff or checksum it.
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/topology"
)

// Group names as they appear in the rendered document.
const (
	GroupControlPlane = "control-plane"
	GroupWorkers      = "workers"
	GroupCluster      = "cluster"
)

// Host is one inventory entry: a role-scoped logical name and a reachable
// address.
type Host struct {
	Name    string
	Address string
}

// Document groups hosts into the control-plane and workers roles. The
// cluster group is the derived union of both.
type Document struct {
	ControlPlane []Host
	Workers      []Host
}

// IncompleteTopologyError reports a topology output set that does not carry
// the expected host addresses.
type IncompleteTopologyError struct {
	Missing string
}

func (e *IncompleteTopologyError) Error() string {
	return fmt.Sprintf("topology is incomplete: missing %s", e.Missing)
}

// IsIncomplete reports whether err is an IncompleteTopologyError.
func IsIncomplete(err error) bool {
	var incomplete *IncompleteTopologyError
	return errors.As(err, &incomplete)
}

// Generate builds the inventory for a cluster with workerCount workers from
// the exported topology.
func Generate(out topology.Output, workerCount int) (*Document, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workerCount)
	}

	cpAddr, ok := out[topology.OutputControlPlanePrivateAddress]
	if !ok || cpAddr == "" {
		return nil, &IncompleteTopologyError{Missing: topology.OutputControlPlanePrivateAddress}
	}

	doc := &Document{
		ControlPlane: []Host{{Name: graph.ControlPlaneName(), Address: cpAddr}},
	}
	for i := range workerCount {
		name := topology.WorkerOutputName(i)
		addr, ok := out[name]
		if !ok || addr == "" {
			return nil, &IncompleteTopologyError{Missing: name}
		}
		doc.Workers = append(doc.Workers, Host{Name: graph.WorkerName(i), Address: addr})
	}
	return doc, nil
}

// Hosts returns the cluster group: control-plane entries followed by
// workers, in stable order.
func (d *Document) Hosts() []Host {
	hosts := make([]Host, 0, len(d.ControlPlane)+len(d.Workers))
	hosts = append(hosts, d.ControlPlane...)
	hosts = append(hosts, d.Workers...)
	return hosts
}

// Render serializes the document in the INI-style format the
// configuration-management engine parses. Output is byte-identical for
// identical documents.
func (d *Document) Render() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[%s]\n", GroupControlPlane)
	for _, h := range d.ControlPlane {
		fmt.Fprintf(&buf, "%s ansible_host=%s\n", h.Name, h.Address)
	}

	fmt.Fprintf(&buf, "\n[%s]\n", GroupWorkers)
	for _, h := range d.Workers {
		fmt.Fprintf(&buf, "%s ansible_host=%s\n", h.Name, h.Address)
	}

	fmt.Fprintf(&buf, "\n[%s:children]\n%s\n%s\n", GroupCluster, GroupControlPlane, GroupWorkers)

	return buf.Bytes()
}

// WriteFile renders the document to the given path, replacing any previous
// version.
func (d *Document) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create inventory directory: %w", err)
	}
	if err := os.WriteFile(path, d.Render(), 0o640); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	return nil
}
