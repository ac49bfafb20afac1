package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pindral/brainstore/internal/brain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Store-level failure (not found, conflict, validation, storage fault)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, malformed input)
)

// ExitError represents an error with a specific exit code.
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
// Store errors map to ExitFailure; anything untyped is a command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var be *brain.Error
	if errors.As(err, &be) {
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output (defaults to Writer)
	Verbose   bool
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string       `json:"status"` // "ok" or "error"
	Data   any          `json:"data,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error structure for CLI responses.
type ErrorDetail struct {
	Kind    string `json:"kind"` // store error kind, or "COMMAND"
	Message string `json:"message"`
	Brain   string `json:"brain,omitempty"`
	Project string `json:"project,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// Success outputs a successful result in the configured format.
// In text mode data is rendered with %v unless it implements
// fmt.Stringer or is a plain string.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail outputs an error in the configured format and returns it so the
// command still exits non-zero.
func (f *OutputFormatter) Fail(err error) error {
	detail := &ErrorDetail{Kind: "COMMAND", Message: err.Error()}
	var be *brain.Error
	if errors.As(err, &be) {
		detail.Kind = string(be.Kind)
		detail.Message = be.Message
		detail.Brain = be.Brain
		detail.Project = be.Project
		detail.Entity = be.Entity
		detail.Version = be.Version
	}

	if f.Format == "json" {
		if encErr := json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  detail,
		}); encErr != nil {
			return encErr
		}
		return err
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", detail.Kind, detail.Message)
	return err
}

// VerboseLog outputs a message only if verbose mode is enabled. When
// format is JSON, logs go to ErrWriter to avoid corrupting the payload.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
