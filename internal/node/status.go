package node

import "fmt"

// Status represents the execution state of a node.
type Status int32

const (
	// StatusPending means the node waits for at least one producer.
	StatusPending Status = iota
	// StatusReady means every producer completed and the node is queued.
	StatusReady
	// StatusRunning means a worker is executing the step body.
	StatusRunning
	// StatusDone means the body succeeded and its productions were committed.
	StatusDone
	// StatusFailed means the body returned an error or panicked.
	StatusFailed
	// StatusSkipped means an upstream step failed and this one never ran.
	StatusSkipped
	// StatusReused means the productions of a previous run were carried over
	// instead of running the step.
	StatusReused
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusReused:
		return "reused"
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusSkipped, StatusReused:
		return true
	}
	return false
}

// Succeeded reports whether dependents may rely on the node's productions.
func (s Status) Succeeded() bool {
	return s == StatusDone || s == StatusReused
}

// transitions is the table of allowed status changes.
var transitions = map[Status][]Status{
	StatusPending: {StatusReady, StatusSkipped, StatusReused},
	StatusReady:   {StatusRunning, StatusFailed},
	StatusRunning: {StatusDone, StatusFailed},
}

// CanTransition reports whether a node may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
