// Package graph provides a unified facade for managing the execution graph,
// combining static topology (step structure) and dynamic state (execution
// status).
//
// # Architecture: The Facade Pattern
//
// The Graph is a thin facade over two specialized stores:
//
//	┌─────────────────────────────────────┐
//	│           Graph Facade              │
//	│  (Unified API for executor/         │
//	│   scheduler to query & update)      │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────┐  ┌────────────┐
//	  │  Topology  │  │ Node State │
//	  │   Store    │  │   Store    │
//	  │ (Structure)│  │  (Status)  │
//	  └────────────┘  └────────────┘
//
// **Topology Store** (topologystore.Store) holds the steps and the
// producer/consumer edges. It is populated once by Load from a validated
// builder.Graph and read-only afterwards.
//
// **Node Store** (nodestore.Store) holds status, error and skip cause per
// step and is updated by the Mark* methods.
//
// # Status Transitions
//
// Every Mark* method checks the transition table of package node:
//
//	Pending → Ready → Running → Done
//	                  Running → Failed
//	          Ready → Failed            (dispatched after cancellation)
//	Pending → Skipped                   (upstream failure)
//	Pending → Reused                    (incremental rebuild)
//
// An invalid transition returns an error wrapping ErrInvalidTransition and
// leaves the status untouched.
package graph
