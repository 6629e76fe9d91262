// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of nodes during one execution.
//
// # Why Node Store Exists
//
// The node store isolates **mutable execution state** (status, errors, skip
// causes) from the **immutable step graph** managed by topologystore. Item
// values are not part of it: productions live in the resultstore, which is
// the only channel between steps.
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per execution session
//  2. **Mutated** continuously as nodes move through their statuses
//  3. **Queried** when the executor assembles the final report
//  4. **Discarded** when the session ends
//
// A node without a recorded status is Pending.
package nodestore

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
)

// Store is the interface for managing the mutable execution state of nodes.
//
// # Thread-Safety Requirements
//
// Implementations MUST be thread-safe: workers update and query state for
// different nodes at the same time.
//
// See internal/inmemorystore for the in-memory implementation.
type Store interface {
	// SetStatus unconditionally records a status.
	SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error

	// GetStatus returns the current status, StatusPending if none was set.
	GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error)

	// CompareAndSwapStatus records next only if the current status is old,
	// and reports whether it did. It is the building block of the transition
	// checks in graph.Manager.
	CompareAndSwapStatus(ctx context.Context, id nodeid.Address, old, next node.Status) (bool, error)

	// SetError records why a node failed.
	SetError(ctx context.Context, id nodeid.Address, nodeErr error) error

	// GetError returns the recorded failure, nil if there is none.
	GetError(ctx context.Context, id nodeid.Address) (error, error)

	// SetSkipCause records the failed step that caused a node to be skipped.
	SetSkipCause(ctx context.Context, id nodeid.Address, cause nodeid.Address) error

	// GetSkipCause returns the recorded skip cause and whether one exists.
	GetSkipCause(ctx context.Context, id nodeid.Address) (nodeid.Address, bool, error)
}
