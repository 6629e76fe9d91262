package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/node"
)

// Option configures a DefaultScheduler.
type Option func(*DefaultScheduler)

// WithReused marks steps whose previous productions are carried over. They
// never reach the ready channel.
func WithReused(ids ...string) Option {
	return func(s *DefaultScheduler) {
		for _, id := range ids {
			s.reused[id] = true
		}
	}
}

// DefaultScheduler is the reference implementation of the Scheduler
// interface. It keeps an atomic counter of unmet producers on every node
// and a WaitGroup with one slot per node.
type DefaultScheduler struct {
	graph  graph.Graph
	reused map[string]bool

	ready     chan *node.Node
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a new default scheduler over g.
func New(g graph.Graph, opts ...Option) Scheduler {
	s := &DefaultScheduler{graph: g, reused: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start implements the Scheduler interface.
func (s *DefaultScheduler) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	nodes := s.graph.AllNodes(ctx)

	// Buffered for every node so releasing consumers never blocks a worker.
	s.ready = make(chan *node.Node, len(nodes))
	s.wg.Add(len(nodes))

	for _, n := range nodes {
		deps, err := s.graph.DependenciesOf(ctx, n.ID)
		if err != nil {
			return err
		}
		n.SetDepCount(int32(len(deps)))
		if s.reused[n.Key()] {
			for _, d := range deps {
				if !s.reused[d.Key()] {
					return fmt.Errorf("reused step '%s' depends on step '%s' which will run", n.Key(), d.Key())
				}
			}
		}
	}

	logger.Debug("Settling reused nodes.", "count", len(s.reused))
	for _, n := range nodes {
		if !s.reused[n.Key()] {
			continue
		}
		if err := s.graph.MarkReused(ctx, n.ID); err != nil {
			return err
		}
		s.wg.Done()
		dependents, err := s.graph.DependentsOf(ctx, n.ID)
		if err != nil {
			return err
		}
		for _, d := range dependents {
			d.DecrementDepCount()
		}
	}

	roots := 0
	for _, n := range nodes {
		if s.reused[n.Key()] || n.DepCount() != 0 {
			continue
		}
		if err := s.graph.MarkReady(ctx, n.ID); err != nil {
			return err
		}
		logger.Debug("Found root node.", "nodeID", n.Key())
		s.ready <- n
		roots++
	}
	logger.Debug("Found all root nodes.", "count", roots)
	return nil
}

// ReadyNodes implements the Scheduler interface.
func (s *DefaultScheduler) ReadyNodes() <-chan *node.Node {
	return s.ready
}

// Complete implements the Scheduler interface.
func (s *DefaultScheduler) Complete(ctx context.Context, n *node.Node) error {
	logger := ctxlog.FromContext(ctx)
	if err := s.graph.MarkDone(ctx, n.ID); err != nil {
		return err
	}
	defer s.wg.Done()

	dependents, err := s.graph.DependentsOf(ctx, n.ID)
	if err != nil {
		return err
	}
	for _, d := range dependents {
		if d.DecrementDepCount() != 0 {
			continue
		}
		// A consumer already skipped through another failed producer stays
		// skipped; the transition check rejects it.
		if err := s.graph.MarkReady(ctx, d.ID); err != nil {
			logger.Debug("Not releasing dependent node.", "dependentID", d.Key(), "reason", err)
			continue
		}
		logger.Debug("Unlocking dependent node.", "dependentID", d.Key())
		s.ready <- d
	}
	return nil
}

// Fail implements the Scheduler interface.
func (s *DefaultScheduler) Fail(ctx context.Context, n *node.Node, cause error) ([]string, error) {
	if err := s.graph.MarkFailed(ctx, n.ID, cause); err != nil {
		return nil, err
	}
	defer s.wg.Done()

	var skipped []string
	s.skipDependents(ctx, n, n, &skipped)
	return skipped, nil
}

// skipDependents recursively marks all downstream nodes of current as
// skipped because of root, releasing their WaitGroup slot.
func (s *DefaultScheduler) skipDependents(ctx context.Context, root, current *node.Node, skipped *[]string) {
	logger := ctxlog.FromContext(ctx)

	dependents, err := s.graph.DependentsOf(ctx, current.ID)
	if err != nil {
		// This would be an unexpected internal error, as the node should always exist in the graph.
		logger.Error("Failed to get dependents while skipping nodes", "nodeID", current.Key(), "error", err)
		return
	}

	for _, dependent := range dependents {
		wasSkipped := dependent.Skip(func() {
			if err := s.graph.MarkSkipped(ctx, dependent.ID, root.ID); err != nil {
				logger.Error("Failed to mark node skipped", "nodeID", dependent.Key(), "error", err)
			}
			s.wg.Done()
		})
		if wasSkipped {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.Key(), "dependency", root.Key())
			*skipped = append(*skipped, dependent.Key())
			s.skipDependents(ctx, root, dependent, skipped)
		}
	}
}

// Wait implements the Scheduler interface.
func (s *DefaultScheduler) Wait() {
	s.wg.Wait()
}

// Close implements the Scheduler interface.
func (s *DefaultScheduler) Close() {
	s.closeOnce.Do(func() {
		if s.ready != nil {
			close(s.ready)
		}
	})
}
