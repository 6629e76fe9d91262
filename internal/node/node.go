// Package node defines the runtime vertex of an execution: one registered
// step plus the counters the scheduler needs to release it.
package node

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// Node is a single vertex in the execution graph. Its mutable execution
// state (status, error, skip cause) lives in a nodestore.Store; the node
// itself only carries what the scheduler mutates atomically.
type Node struct {
	// ID is the structured address of the step.
	ID nodeid.Address
	// Step is the descriptor this node executes.
	Step *step.Descriptor

	// depCount is the number of producers that have not completed yet.
	depCount atomic.Int32
	// skipOnce ensures a node is marked as skipped exactly once, however
	// many of its producers fail.
	skipOnce sync.Once
}

// New wraps a descriptor into a node. The descriptor ID must be a valid
// address.
func New(d *step.Descriptor) (*Node, error) {
	addr, err := nodeid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("step '%s': %w", d.ID, err)
	}
	return &Node{ID: *addr, Step: d}, nil
}

// Key returns the canonical string form of the node's address.
func (n *Node) Key() string {
	return n.ID.String()
}

// SetDepCount initialises the number of unmet dependencies.
func (n *Node) SetDepCount(count int32) {
	n.depCount.Store(count)
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and returns
// the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// Skip runs f the first time it is called for this node and reports whether
// this call was that first time.
func (n *Node) Skip(f func()) bool {
	var first bool
	n.skipOnce.Do(func() {
		f()
		first = true
	})
	return first
}

func (n *Node) String() string {
	return n.Key()
}
