package diag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidGraph matches every ValidationError.
	ErrInvalidGraph = errors.New("invalid build graph")
	// ErrExecutionFailed matches every ExecutionError.
	ErrExecutionFailed = errors.New("build execution failed")
	// ErrFatal matches every FatalError.
	ErrFatal = errors.New("fatal engine error")
)

// ValidationError reports every configuration problem found while building
// the graph. Execution is refused when one is returned.
type ValidationError struct {
	Diagnostics []*Diagnostic
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		if d.IsError() {
			msgs = append(msgs, d.Error())
		}
	}
	return fmt.Sprintf("build graph validation failed:\n- %s", strings.Join(msgs, "\n- "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidGraph
}

// OfKind returns the diagnostics of the given kind.
func (e *ValidationError) OfKind(k Kind) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range e.Diagnostics {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// StepFailure is one root-cause failure and the steps it prevented from
// running.
type StepFailure struct {
	Step    string
	Err     error
	Skipped []string
}

func (f *StepFailure) Error() string {
	msg := fmt.Sprintf("step '%s' failed: %v", f.Step, f.Err)
	if len(f.Skipped) > 0 {
		msg += fmt.Sprintf(" (skipped: %s)", strings.Join(f.Skipped, ", "))
	}
	return msg
}

func (f *StepFailure) Unwrap() error {
	return f.Err
}

// ExecutionError aggregates every root failure of one execution.
type ExecutionError struct {
	Failures []*StepFailure
}

func (e *ExecutionError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("build execution failed: %d step(s) failed:\n- %s", len(e.Failures), strings.Join(msgs, "\n- "))
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}

func (e *ExecutionError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Failed returns the identifiers of the failed steps.
func (e *ExecutionError) Failed() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.Step
	}
	return ids
}

// Skipped returns every step skipped because of any failure, sorted.
func (e *ExecutionError) Skipped() []string {
	var ids []string
	for _, f := range e.Failures {
		ids = append(ids, f.Skipped...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Diagnostics converts the failures into records, each root failure
// followed by the skips it caused.
func (e *ExecutionError) Diagnostics() []*Diagnostic {
	var out []*Diagnostic
	for _, f := range e.Failures {
		kind := KindStepFailed
		var fatal *FatalError
		if errors.As(f.Err, &fatal) {
			kind = KindUnfulfilledProduce
		}
		out = append(out, Errorf(kind, []string{f.Step}, nil, "%v", f.Err))
		for _, s := range f.Skipped {
			out = append(out, Warnf(KindSkippedUpstream, []string{s, f.Step}, nil, "skipped: upstream failure of step '%s'", f.Step))
		}
	}
	return out
}

// FatalError is a broken engine or step contract. It is not recoverable.
type FatalError struct {
	Step   string
	Items  []string
	Reason string
}

func (e *FatalError) Error() string {
	if len(e.Items) == 0 {
		return fmt.Sprintf("fatal: step '%s': %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("fatal: step '%s': %s: %s", e.Step, e.Reason, strings.Join(e.Items, ", "))
}

func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}
