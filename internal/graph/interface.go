package graph

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
)

// Graph is a unified interface for interacting with the execution graph,
// combining static topology queries with dynamic state updates.
//
// **Scheduler** uses Graph to:
//   - Query all nodes: AllNodes()
//   - Release consumers: DependentsOf()
//   - Move nodes to Ready, Skipped or Reused
//
// **Executor** uses Graph to:
//   - Update execution state: MarkRunning(), MarkDone(), MarkFailed()
//   - Assemble the final report: NodeStatus(), NodeError(), SkipCause()
//
// Implementations MUST be thread-safe.
type Graph interface {
	// Node retrieves a node by its address.
	Node(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns every node in registration order.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the producers the node waits for, as full nodes.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// DependentsOf returns the consumers waiting for the node, as full nodes.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// NodeStatus returns the current status of a node. It returns false if
	// the node is not part of the topology.
	NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool)

	// NodeError returns the error recorded by MarkFailed, if any.
	NodeError(ctx context.Context, id nodeid.Address) error

	// SkipCause returns the failed node recorded by MarkSkipped, if any.
	SkipCause(ctx context.Context, id nodeid.Address) (nodeid.Address, bool)

	// MarkReady transitions Pending → Ready once all producers completed.
	MarkReady(ctx context.Context, id nodeid.Address) error

	// MarkRunning transitions Ready → Running right before the body starts.
	MarkRunning(ctx context.Context, id nodeid.Address) error

	// MarkDone transitions Running → Done after productions were committed.
	MarkDone(ctx context.Context, id nodeid.Address) error

	// MarkFailed transitions Running or Ready → Failed and records the error.
	MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error

	// MarkSkipped transitions Pending → Skipped and records the failed
	// upstream node responsible.
	MarkSkipped(ctx context.Context, id nodeid.Address, cause nodeid.Address) error

	// MarkReused transitions Pending → Reused for steps whose previous
	// productions are carried over.
	MarkReused(ctx context.Context, id nodeid.Address) error
}
