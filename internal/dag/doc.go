// Package dag is a small, deterministic directed graph keyed by string IDs.
//
// Nodes remember their insertion order and every traversal honours it, so
// cycle reports and topological layers are reproducible from run to run
// regardless of map iteration order. The step graph builder uses it for
// cycle detection and layering.
package dag
