// Package resultstore is the typed container that collects every item
// produced during one graph execution.
//
// The store is the only mutable structure shared between steps. Each item
// type has its own bucket and lock, so producers of different types never
// contend while concurrent producers of the same MULTI type serialize.
// Values are never overwritten: SIMPLE items are set once, MULTI and NAMED
// items are appended to, EMPTY items are only marked.
//
// After a successful execution the store is frozen. Any mutation after
// that point is an engine defect and panics.
//
// Every production is also journaled per step, which lets an incremental
// execution carry the exact same values of an unaffected step into a new
// store without running it again.
package resultstore
