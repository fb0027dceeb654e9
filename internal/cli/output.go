package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opencitations/time-agnostic-library-sub000/internal/config"
	"github.com/opencitations/time-agnostic-library-sub000/internal/engine"
	"github.com/opencitations/time-agnostic-library-sub000/internal/pattern"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run failure (upstream error, no snapshot, scenarios failed)
	ExitCommandError = 2 // Command error (invalid config, unsupported query, missing files)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeConfig         = "E002" // Configuration rejected
	ErrCodeQueryShape     = "E003" // Query outside the supported shape
	ErrCodeInvalidInstant = "E004" // Unparseable instant argument
	ErrCodeNoSnapshot     = "E005" // No snapshot at or before the target
	ErrCodeUpstream       = "E006" // Backend query failed
	ErrCodeNotFound       = "E007" // Path not found
	ErrCodeLoadFailed     = "E008" // Fixture or database load failed
	ErrCodeUsage          = "E009" // Invalid flag combination
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string      `json:"status"`               // "ok" or "error"
	Data      interface{} `json:"data,omitempty"`       // success payload
	Error     *CLIError   `json:"error,omitempty"`      // error details
	SessionID string      `json:"session_id,omitempty"` // query session correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // ErrCode* value
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// SessionSuccess outputs the result of a query session. JSON output
// carries data and the session id; text output is rendered by text.
func (f *OutputFormatter) SessionSuccess(sessionID string, data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:    "ok",
			Data:      data,
			SessionID: sessionID,
		})
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err in the configured format and returns it as an
// ExitError whose code follows the error kind.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}

// Usage reports a flag misuse and returns an ExitCommandError.
func (f *OutputFormatter) Usage(message string) error {
	if err := f.Error(ErrCodeUsage, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, message)
}

// classify maps an error to its response code and exit code. Problems
// with the invocation exit with ExitCommandError; run failures with
// ExitFailure.
func classify(err error) (string, int) {
	var ie *engine.InstantError
	switch {
	case config.IsConfigError(err):
		return ErrCodeConfig, ExitCommandError
	case pattern.IsQueryShapeError(err):
		return ErrCodeQueryShape, ExitCommandError
	case errors.As(err, &ie):
		return ErrCodeInvalidInstant, ExitCommandError
	case errors.Is(err, os.ErrNotExist):
		return ErrCodeNotFound, ExitCommandError
	case engine.IsNoSnapshot(err):
		return ErrCodeNoSnapshot, ExitFailure
	case triplestore.IsUpstream(err):
		return ErrCodeUpstream, ExitFailure
	default:
		return ErrCodeGeneric, ExitFailure
	}
}
