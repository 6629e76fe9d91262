package diag

import (
	"fmt"
	"strings"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalText renders the severity by name in JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name, so JSON reports can be read back.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Kind classifies a diagnostic.
type Kind string

const (
	KindMissingProducer    Kind = "missing-producer"
	KindDuplicateProducer  Kind = "duplicate-producer"
	KindFinalViolation     Kind = "final-violation"
	KindCycle              Kind = "cycle"
	KindReclassified       Kind = "reclassified"
	KindNonLeafType        Kind = "non-leaf-type"
	KindModifierMismatch   Kind = "modifier-mismatch"
	KindMalformedStep      Kind = "malformed-step"
	KindEmptyStep          Kind = "empty-step"
	KindOverrideApplied    Kind = "override-applied"
	KindUnknownTarget      Kind = "unknown-target"
	KindStepFailed         Kind = "step-failed"
	KindSkippedUpstream    Kind = "skipped-upstream"
	KindUnfulfilledProduce Kind = "unfulfilled-produce"
)

// Diagnostic is one structured problem report.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	Steps    []string `json:"steps,omitempty"`
	Items    []string `json:"items,omitempty"`
	// Path is the ordered list of steps forming a cycle.
	Path    []string `json:"path,omitempty"`
	Message string   `json:"message"`
}

// Errorf builds an error-severity diagnostic.
func Errorf(kind Kind, steps, items []string, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Kind: kind, Steps: steps, Items: items, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning diagnostic.
func Warnf(kind Kind, steps, items []string, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityWarning, Kind: kind, Steps: steps, Items: items, Message: fmt.Sprintf(format, args...)}
}

// Infof builds an informational diagnostic.
func Infof(kind Kind, steps, items []string, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityInfo, Kind: kind, Steps: steps, Items: items, Message: fmt.Sprintf(format, args...)}
}

// Cycle builds the diagnostic for a dependency cycle. path lists each step
// once; the closing edge back to path[0] is implied.
func Cycle(path []string) *Diagnostic {
	closed := append(append([]string{}, path...), path[0])
	return &Diagnostic{
		Severity: SeverityError,
		Kind:     KindCycle,
		Steps:    append([]string{}, path...),
		Path:     path,
		Message:  "dependency cycle: " + strings.Join(closed, " -> "),
	}
}

// Error implements error so diagnostics can be accumulated as errors.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
}

// IsError reports whether d has error severity.
func (d *Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}
