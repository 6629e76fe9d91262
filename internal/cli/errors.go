package cli

import (
	"errors"

	"github.com/specialistvlad/buildgraph/internal/diag"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// failure wraps an error of a command that ran. The report already carries
// the details of a validation or execution failure, so only its headline is
// kept.
func failure(err error) *ExitError {
	switch {
	case errors.Is(err, diag.ErrInvalidGraph):
		return &ExitError{Code: ExitFailure, Message: "build graph validation failed"}
	case errors.Is(err, diag.ErrExecutionFailed):
		return &ExitError{Code: ExitFailure, Message: "build execution failed"}
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}
