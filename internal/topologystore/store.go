// Package topologystore defines the interface for storing and retrieving the
// static structure of the execution graph.
//
// # Why Topology Store Exists
//
// The topology store isolates the **immutable step graph** (nodes and their
// producer/consumer edges) from the **mutable execution state** (status,
// errors, skip causes) managed by nodestore.
//
// This separation provides several benefits:
//   - **Clarity:** Structure queries (scheduler) don't mix with state updates (executor)
//   - **Thread-Safety:** Read-heavy topology queries use read locks without contention from state writes
//   - **Testability:** The structure can be checked independently of execution state
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per execution session
//  2. **Populated** from a validated builder.Graph (nodes, then edges)
//  3. **Read-only** during execution (scheduler releases dependents, executor looks up steps)
//  4. **Discarded** when the session ends
package topologystore

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
)

// Store is the interface for managing the static topology of the step graph.
//
// This interface does NOT manage dynamic execution state. That responsibility
// belongs to nodestore.Store.
//
// # Thread-Safety Requirements
//
// Implementations MUST be thread-safe for concurrent reads and writes.
//
// See internal/inmemorytopology for the in-memory implementation.
type Store interface {
	// AddNode registers a node. Adding the same node twice is idempotent;
	// adding a different node under an existing address fails.
	AddNode(ctx context.Context, n *node.Node) error

	// AddDependency records that 'to' consumes something 'from' produces, so
	// 'from' must complete before 'to' can start. Both nodes must exist.
	AddDependency(ctx context.Context, from, to nodeid.Address) error

	// GetNode retrieves a single node by its address.
	GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns every node in the order they were added. The returned
	// slice is a snapshot owned by the caller.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the producers the given node waits for, in the
	// order they were added. It fails if the node does not exist.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)

	// DependentsOf returns the consumers waiting for the given node, in the
	// order they were added. It fails if the node does not exist.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)
}
