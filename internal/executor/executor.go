// Package executor defines the interface for the build execution engine.
package executor

import (
	"context"

	"github.com/specialistvlad/buildgraph/internal/resultstore"
)

// Executor is responsible for orchestrating the end-to-end execution of a
// validated build graph. It manages concurrency, interacts with the
// scheduler, and runs step bodies.
//
// On success Execute returns the frozen result store. When any step failed
// it returns a *diag.ExecutionError listing every root failure and the steps
// it prevented from running; partial results are discarded.
type Executor interface {
	Execute(ctx context.Context) (*resultstore.Store, error)
}
