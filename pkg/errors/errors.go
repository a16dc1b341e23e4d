package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInput         = errors.New("input error")
	ErrFormat        = errors.New("format error")
	ErrWrite         = errors.New("write error")
	ErrRunInProgress = errors.New("index run already in progress")
	ErrInternal      = errors.New("internal error")
)

// Process exit codes reported by cmd/indexer.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInput       = 2
	ExitWrite       = 3
	ExitInProgress  = 4
	ExitInvalidData = 65
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Input wraps cause as an input error for the given document or file path.
func Input(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrInput, path, cause)
}

// Format reports a source name that is not a positive integer document id.
func Format(name string) *AppError {
	return Newf(ErrFormat, ExitInvalidData, "document name %q is not a positive integer", name)
}

// Write wraps cause as a write error for the given output path.
func Write(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrWrite, path, cause)
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrFormat):
		return ExitInvalidData
	case errors.Is(err, ErrInput):
		return ExitInput
	case errors.Is(err, ErrWrite):
		return ExitWrite
	case errors.Is(err, ErrRunInProgress):
		return ExitInProgress
	default:
		return ExitFailure
	}

}
