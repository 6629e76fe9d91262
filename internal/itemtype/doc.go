// Package itemtype defines the taxonomy of items exchanged between build
// steps.
//
// An item type is an opaque identifier (a name plus the Go type of its
// payload) tagged with exactly one cardinality kind:
//
//   - SIMPLE: zero or one value for the whole build.
//   - MULTI: zero or more values, aggregated into a sequence.
//   - NAMED: zero or more values, keyed by a name unique per item type.
//   - EMPTY: no payload at all; exists only to create ordering edges.
//
// Types are registered implicitly the first time a step descriptor refers to
// them. Conflicting classifications of the same name are detected later, when
// the build graph is assembled, because registration order is not guaranteed.
package itemtype
