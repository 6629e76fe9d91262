package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states sync.Map // Key: node ID string, Value: node.Status
	errors sync.Map // Key: node ID string, Value: error
	causes sync.Map // Key: node ID string, Value: nodeid.Address
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the execution status of a specific node.
func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error {
	s.states.Store(id.String(), status)
	return nil
}

// GetStatus retrieves the execution status of a specific node.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error) {
	status, ok := s.states.Load(id.String())
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// CompareAndSwapStatus atomically replaces old with next.
func (s *Store) CompareAndSwapStatus(ctx context.Context, id nodeid.Address, old, next node.Status) (bool, error) {
	key := id.String()
	if old == node.StatusPending {
		// An absent entry counts as Pending.
		if _, loaded := s.states.LoadOrStore(key, next); !loaded {
			return true, nil
		}
	}
	return s.states.CompareAndSwap(key, old, next), nil
}

// SetError records the failure error of a node.
func (s *Store) SetError(ctx context.Context, id nodeid.Address, nodeErr error) error {
	s.errors.Store(id.String(), nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed node.
func (s *Store) GetError(ctx context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id.String())
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

// SetSkipCause records which failed node caused id to be skipped.
func (s *Store) SetSkipCause(ctx context.Context, id nodeid.Address, cause nodeid.Address) error {
	s.causes.Store(id.String(), cause)
	return nil
}

// GetSkipCause retrieves the recorded skip cause of a node.
func (s *Store) GetSkipCause(ctx context.Context, id nodeid.Address) (nodeid.Address, bool, error) {
	cause, ok := s.causes.Load(id.String())
	if !ok {
		return nodeid.Address{}, false, nil
	}
	return cause.(nodeid.Address), true, nil
}
