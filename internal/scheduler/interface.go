package scheduler

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/node"
)

// Scheduler releases nodes of the execution graph as their producers
// complete.
//
// The scheduler is responsible for:
//   - **Dependency Tracking:** Counting, per node, the producers that have not completed
//   - **Ready Detection:** Emitting a node once that count reaches zero
//   - **Failure Propagation:** Skipping every transitive consumer of a failed node
//   - **Termination:** Reporting when every node reached a terminal status
//
// # Usage Pattern
//
//	if err := s.Start(ctx); err != nil { ... }
//	go func() { s.Wait(); s.Close() }()
//	for n := range s.ReadyNodes() {
//	    // run n, then call s.Complete or s.Fail
//	}
//
// # Thread-Safety
//
// Complete and Fail may be called concurrently from many workers.
type Scheduler interface {
	// Start computes the initial ready set. Reused nodes are settled first
	// and release their consumers without running. ReadyNodes may only be
	// consumed after Start returned.
	Start(ctx context.Context) error

	// ReadyNodes streams nodes whose producers all completed. The channel is
	// closed by Close.
	ReadyNodes() <-chan *node.Node

	// Complete marks a running node Done and releases its consumers.
	Complete(ctx context.Context, n *node.Node) error

	// Fail marks a node Failed and skips every node that transitively
	// depends on it. It returns the IDs of the nodes skipped by this call.
	Fail(ctx context.Context, n *node.Node, cause error) ([]string, error)

	// Wait blocks until every node reached a terminal status.
	Wait()

	// Close closes the ready channel. It is safe to call more than once.
	Close()
}
