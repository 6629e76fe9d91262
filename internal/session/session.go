// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote execution.
package session

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/executor"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
)

// Options tune one execution session.
type Options struct {
	// Workers bounds concurrent step bodies; zero selects GOMAXPROCS.
	Workers int
	// Reused lists steps whose productions are carried over from Previous
	// instead of running them. Every producer of a reused step must be
	// reused as well.
	Reused []string
	// Previous is the frozen store of an earlier successful execution.
	Previous *resultstore.Store
}

// SessionFactory creates an execution Session. Different implementations can
// support various backends, such as local or distributed execution.
type SessionFactory interface {
	NewSession(ctx context.Context, bg *builder.Graph, opts Options) (Session, error)
}

// Session represents a single execution run and manages its lifecycle.
type Session interface {
	GetExecutor() (executor.Executor, error)
	// Graph exposes the runtime graph, so the host can report the final
	// status of every step once the executor returned.
	Graph() graph.Graph
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}
