package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/nodestore"
	"github.com/specialistvlad/buildgraph/internal/topologystore"
)

// ErrInvalidTransition is returned when a Mark* call does not match the
// node's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Manager provides a high-level, thread-safe interface to the execution graph
// by composing the topology and node state stores.
type Manager struct {
	topology topologystore.Store
	state    nodestore.Store
}

// New creates a new graph manager.
func New(ts topologystore.Store, ns nodestore.Store) Graph {
	return &Manager{topology: ts, state: ns}
}

// Load populates the topology store from a validated build graph: one node
// per step in rank order, then one dependency per producer/consumer pair.
func Load(ctx context.Context, ts topologystore.Store, bg *builder.Graph) error {
	logger := ctxlog.FromContext(ctx)

	nodes := make(map[string]*node.Node, bg.Len())
	for _, d := range bg.Steps() {
		n, err := node.New(d)
		if err != nil {
			return err
		}
		if err := ts.AddNode(ctx, n); err != nil {
			return fmt.Errorf("adding node '%s': %w", d.ID, err)
		}
		nodes[d.ID] = n
	}
	edges := 0
	for _, d := range bg.Steps() {
		for _, dep := range bg.DependenciesOf(d.ID) {
			if err := ts.AddDependency(ctx, nodes[dep].ID, nodes[d.ID].ID); err != nil {
				return fmt.Errorf("linking '%s' -> '%s': %w", dep, d.ID, err)
			}
			edges++
		}
	}
	logger.Debug("Loaded build graph into topology store.", "nodes", len(nodes), "edges", edges)
	return nil
}

func (m *Manager) Node(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	return m.topology.GetNode(ctx, id)
}

func (m *Manager) AllNodes(ctx context.Context) []*node.Node {
	return m.topology.AllNodes(ctx)
}

func (m *Manager) DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependenciesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependentsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) resolve(ctx context.Context, ids []nodeid.Address) ([]*node.Node, error) {
	out := make([]*node.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := m.topology.GetNode(ctx, id)
		if !ok {
			return nil, fmt.Errorf("internal inconsistency: node '%s' referenced but not stored", id.String())
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *Manager) NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool) {
	if _, ok := m.topology.GetNode(ctx, id); !ok {
		return node.StatusPending, false
	}
	status, err := m.state.GetStatus(ctx, id)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to read node status.", "node", id.String(), "error", err)
		return node.StatusPending, false
	}
	return status, true
}

func (m *Manager) NodeError(ctx context.Context, id nodeid.Address) error {
	nodeErr, err := m.state.GetError(ctx, id)
	if err != nil {
		return err
	}
	return nodeErr
}

func (m *Manager) SkipCause(ctx context.Context, id nodeid.Address) (nodeid.Address, bool) {
	cause, ok, err := m.state.GetSkipCause(ctx, id)
	if err != nil {
		return nodeid.Address{}, false
	}
	return cause, ok
}

func (m *Manager) MarkReady(ctx context.Context, id nodeid.Address) error {
	return m.transition(ctx, id, node.StatusReady)
}

func (m *Manager) MarkRunning(ctx context.Context, id nodeid.Address) error {
	return m.transition(ctx, id, node.StatusRunning)
}

func (m *Manager) MarkDone(ctx context.Context, id nodeid.Address) error {
	return m.transition(ctx, id, node.StatusDone)
}

func (m *Manager) MarkReused(ctx context.Context, id nodeid.Address) error {
	return m.transition(ctx, id, node.StatusReused)
}

func (m *Manager) MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error {
	if err := m.transition(ctx, id, node.StatusFailed); err != nil {
		return err
	}
	return m.state.SetError(ctx, id, nodeErr)
}

func (m *Manager) MarkSkipped(ctx context.Context, id nodeid.Address, cause nodeid.Address) error {
	if err := m.transition(ctx, id, node.StatusSkipped); err != nil {
		return err
	}
	return m.state.SetSkipCause(ctx, id, cause)
}

// transition moves a node to next if the table allows it from the current
// status. Concurrent transitions of the same node are resolved by the
// store's compare-and-swap; the loser re-reads and re-checks.
func (m *Manager) transition(ctx context.Context, id nodeid.Address, next node.Status) error {
	if _, ok := m.topology.GetNode(ctx, id); !ok {
		return fmt.Errorf("node '%s' not found in topology", id.String())
	}
	for {
		cur, err := m.state.GetStatus(ctx, id)
		if err != nil {
			return err
		}
		if !node.CanTransition(cur, next) {
			return fmt.Errorf("%w: node '%s' %s -> %s", ErrInvalidTransition, id.String(), cur, next)
		}
		swapped, err := m.state.CompareAndSwapStatus(ctx, id, cur, next)
		if err != nil {
			return err
		}
		if swapped {
			ctxlog.FromContext(ctx).Debug("Node status changed.", "node", id.String(), "from", cur, "to", next)
			return nil
		}
	}
}
