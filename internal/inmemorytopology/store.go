// Package inmemorytopology provides a simple, thread-safe, in-memory
// implementation of the topologystore.Store interface.
package inmemorytopology

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/topologystore"
)

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*node.Node
	order map[string]int
	deps  map[string]map[string]struct{} // Key: node ID, Value: set of dependency IDs
	rdeps map[string]map[string]struct{} // Key: node ID, Value: set of dependent IDs
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		nodes: make(map[string]*node.Node),
		order: make(map[string]int),
		deps:  make(map[string]map[string]struct{}),
		rdeps: make(map[string]map[string]struct{}),
	}
}

// AddNode adds a new node to the store. Re-adding the same node is a no-op;
// a different node under an existing address is an error.
func (s *Store) AddNode(ctx context.Context, n *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := n.Key()
	if existing, exists := s.nodes[key]; exists {
		if existing == n {
			return nil
		}
		return fmt.Errorf("node '%s' already exists in topology", key)
	}
	s.nodes[key] = n
	s.order[key] = len(s.order)
	return nil
}

// AddDependency creates a dependency link from one node to another.
func (s *Store) AddDependency(ctx context.Context, from, to nodeid.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey := from.String()
	toKey := to.String()

	if _, exists := s.nodes[fromKey]; !exists {
		return fmt.Errorf("dependency source node '%s' not found in topology", fromKey)
	}
	if _, exists := s.nodes[toKey]; !exists {
		return fmt.Errorf("dependency target node '%s' not found in topology", toKey)
	}

	if s.deps[toKey] == nil {
		s.deps[toKey] = make(map[string]struct{})
	}
	s.deps[toKey][fromKey] = struct{}{}
	if s.rdeps[fromKey] == nil {
		s.rdeps[fromKey] = make(map[string]struct{})
	}
	s.rdeps[fromKey][toKey] = struct{}{}
	return nil
}

// GetNode retrieves a single node by its address.
func (s *Store) GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id.String()]
	return n, ok
}

// AllNodes returns a slice of all nodes in insertion order.
func (s *Store) AllNodes(ctx context.Context) []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *node.Node) int { return s.order[a.Key()] - s.order[b.Key()] })
	return nodes
}

// DependenciesOf returns the addresses of all nodes that the given node depends on.
func (s *Store) DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.neighbours(id, s.deps)
}

// DependentsOf returns the addresses of all nodes that depend on the given node.
func (s *Store) DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.neighbours(id, s.rdeps)
}

func (s *Store) neighbours(id nodeid.Address, edges map[string]map[string]struct{}) ([]nodeid.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := id.String()
	if _, exists := s.nodes[key]; !exists {
		return nil, fmt.Errorf("node '%s' not found in topology", key)
	}

	set := edges[key]
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int { return s.order[a] - s.order[b] })

	out := make([]nodeid.Address, len(keys))
	for i, k := range keys {
		out[i] = s.nodes[k].ID
	}
	return out, nil
}
