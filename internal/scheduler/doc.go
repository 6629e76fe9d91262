// Package scheduler decides when each step of the execution graph may run.
// It tracks unmet producers per node and streams nodes to the executor the
// moment the last of them completes.
package scheduler
