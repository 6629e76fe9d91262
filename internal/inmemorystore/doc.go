// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses an RWMutex, this store uses sync.Map:
// every node's state is independent, the key space is known upfront and
// values change frequently while workers run. Status changes go through
// sync.Map's CompareAndSwap so concurrent transitions of one node cannot
// both succeed.
package inmemorystore
