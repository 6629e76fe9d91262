// Package diag holds the structured diagnostics produced while building and
// executing a step graph.
//
// Every problem is a Diagnostic record naming its kind, the offending steps
// and item types and, for cycles, the full path. Hosts render them as text
// or JSON, or group them by root cause; they never need to parse messages.
package diag
