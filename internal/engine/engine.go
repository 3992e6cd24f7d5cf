// Package engine reconciles a declared resource graph against live cloud
// state. Nodes are processed in dependency order; existing resources are
// left alone when unchanged, updated in place for mutable changes, and a
// requested change to an immutable field fails with a ConflictError instead
// of a destructive recreate.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/observe"
	"github.com/cwagner/k3forge/internal/state"
)

// Observed is the provider's view of one resource after a call.
type Observed struct {
	ID    string
	Attrs map[string]string
}

// CloudProvider is the provider API consumed by the engine. Calls are keyed
// by the node's kind and logical name; Create and Update receive the
// already-reconciled records of the node's dependencies.
type CloudProvider interface {
	Create(ctx context.Context, node *graph.Node, deps map[string]state.Record) (Observed, error)
	Read(ctx context.Context, name string, current state.Record) (Observed, bool, error)
	Update(ctx context.Context, node *graph.Node, current state.Record, deps map[string]state.Record) (Observed, error)
}

// OpType classifies a planned operation.
type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
)

// Op is one planned create or update.
type Op struct {
	Type   OpType
	Node   string
	Fields []string // changed fields, for updates
}

// Engine reconciles a graph for one stack against a state store.
type Engine struct {
	provider CloudProvider
	store    state.Store
	stack    string
	observer observe.Observer
}

// New creates an engine for the given stack.
func New(provider CloudProvider, store state.Store, stack string, observer observe.Observer) *Engine {
	if observer == nil {
		observer = observe.Nop{}
	}
	return &Engine{provider: provider, store: store, stack: stack, observer: observer}
}

// Refresh loads the persisted state and rereads every recorded resource from
// the provider. Records for resources that no longer exist are dropped, so
// drift such as a manual deletion surfaces as a pending create on the next
// plan. The refreshed state is persisted and returned.
func (e *Engine) Refresh(ctx context.Context) (*state.State, error) {
	st, err := e.store.Load(ctx, e.stack)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(st.Records))
	for name := range st.Records {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rec := st.Records[name]
		observed, found, err := e.provider.Read(ctx, name, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh %s: %w", name, err)
		}
		if !found {
			e.observer.Event(observe.Event{
				Type:     observe.EventResourceDrift,
				Stage:    "refresh",
				Resource: name,
				Message:  "no longer exists at provider",
			})
			st.Delete(name)
			continue
		}
		st.Put(name, state.Record{Kind: rec.Kind, ID: observed.ID, Attrs: observed.Attrs})
	}

	if err := e.store.Save(ctx, e.stack, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Plan computes the operations Apply would perform, without side effects.
// A ConflictError is returned when a node's desired properties change an
// immutable field of an existing resource.
func (e *Engine) Plan(g *graph.Graph, st *state.State) ([]Op, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	var ops []Op
	for _, node := range order {
		rec, exists := st.Get(node.Name)
		if !exists {
			ops = append(ops, Op{Type: OpCreate, Node: node.Name})
			continue
		}
		changed, err := diffNode(node, rec)
		if err != nil {
			return nil, err
		}
		if len(changed) > 0 {
			ops = append(ops, Op{Type: OpUpdate, Node: node.Name, Fields: changed})
		}
	}
	return ops, nil
}

// Apply reconciles the graph in dependency order and persists the resulting
// state. A node failure aborts the remaining plan but keeps everything
// already applied, so a re-run continues where the failed run stopped.
// Returns the number of operations performed; zero means the graph was
// already fully reconciled.
func (e *Engine) Apply(ctx context.Context, g *graph.Graph, st *state.State) (int, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return 0, err
	}

	applied := 0
	var applyErr error

	for _, node := range order {
		deps, err := resolveDeps(node, st)
		if err != nil {
			applyErr = err
			break
		}

		rec, exists := st.Get(node.Name)
		if !exists {
			observed, err := e.provider.Create(ctx, node, deps)
			if err != nil {
				applyErr = fmt.Errorf("failed to create %s: %w", node.Name, err)
				break
			}
			st.Put(node.Name, state.Record{Kind: string(node.Kind), ID: observed.ID, Attrs: observed.Attrs})
			e.observer.Event(observe.Event{
				Type:     observe.EventResourceCreated,
				Stage:    "apply",
				Resource: node.Name,
				Message:  fmt.Sprintf("%s created (id %s)", node.Kind, observed.ID),
			})
			applied++
			continue
		}

		changed, err := diffNode(node, rec)
		if err != nil {
			applyErr = err
			break
		}
		if len(changed) == 0 {
			e.observer.Event(observe.Event{
				Type:     observe.EventResourceExists,
				Stage:    "apply",
				Resource: node.Name,
				Message:  "up to date",
			})
			continue
		}

		observed, err := e.provider.Update(ctx, node, rec, deps)
		if err != nil {
			applyErr = fmt.Errorf("failed to update %s: %w", node.Name, err)
			break
		}
		st.Put(node.Name, state.Record{Kind: string(node.Kind), ID: observed.ID, Attrs: observed.Attrs})
		e.observer.Event(observe.Event{
			Type:     observe.EventResourceUpdated,
			Stage:    "apply",
			Resource: node.Name,
			Message:  fmt.Sprintf("updated fields %v", changed),
		})
		applied++
	}

	st.Serial++
	if err := e.store.Save(ctx, e.stack, st); err != nil {
		if applyErr != nil {
			return applied, errors.Join(applyErr, err)
		}
		return applied, err
	}
	return applied, applyErr
}

// resolveDeps collects the reconciled records of a node's dependencies.
// In topological order every dependency has a record unless an earlier node
// failed, in which case the pass has already been aborted.
func resolveDeps(node *graph.Node, st *state.State) (map[string]state.Record, error) {
	deps := make(map[string]state.Record, len(node.DependsOn))
	for _, dep := range node.DependsOn {
		rec, ok := st.Get(dep)
		if !ok {
			return nil, fmt.Errorf("dependency %s of %s is not reconciled", dep, node.Name)
		}
		deps[dep] = rec
	}
	return deps, nil
}

// diffNode compares desired properties against the recorded attributes.
// Returns the mutable fields that changed, or a ConflictError when an
// immutable field differs.
func diffNode(node *graph.Node, rec state.Record) ([]string, error) {
	keys := make([]string, 0, len(node.Properties))
	for k := range node.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changed []string
	for _, key := range keys {
		desired := node.Properties[key]
		current, ok := rec.Attrs[key]
		if ok && current == desired {
			continue
		}
		if isImmutable(node.Kind, key) {
			return nil, &ConflictError{Node: node.Name, Field: key, Current: current, Desired: desired}
		}
		changed = append(changed, key)
	}
	return changed, nil
}
