package brain

import (
	"errors"
	"fmt"
)

// Kind categorizes store errors.
type Kind string

const (
	// KindNotFound indicates an unknown brain/project/entity/version/commit.
	KindNotFound Kind = "NOT_FOUND"

	// KindConflict indicates a duplicate slug, reserved name, or invalid
	// state transition.
	KindConflict Kind = "CONFLICT"

	// KindValidation indicates a malformed payload or metadata.
	KindValidation Kind = "VALIDATION"

	// KindIntegrity indicates a post-write hash mismatch after retry.
	KindIntegrity Kind = "INTEGRITY"

	// KindWriteFailed indicates an I/O-level persistence failure.
	KindWriteFailed Kind = "WRITE_FAILED"
)

// Error is the store's typed error. NotFound/Conflict/Validation are
// expected, recoverable conditions; Integrity/WriteFailed are storage
// faults that abort the whole operation.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Brain, Project, Entity, Version locate the affected record where known.
	Brain   string
	Project string
	Entity  string
	Version int64

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Project != "" && e.Entity != "":
		return fmt.Sprintf("%s: %s (project=%s, entity=%s)", e.Kind, e.Message, e.Project, e.Entity)
	case e.Project != "":
		return fmt.Sprintf("%s: %s (project=%s)", e.Kind, e.Message, e.Project)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithBrain attaches the brain slug and returns e for chaining.
func (e *Error) WithBrain(slug string) *Error {
	e.Brain = slug
	return e
}

// WithProject attaches the project slug and returns e for chaining.
func (e *Error) WithProject(slug string) *Error {
	e.Project = slug
	return e
}

// WithEntity attaches the entity path and returns e for chaining.
func (e *Error) WithEntity(path string) *Error {
	e.Entity = path
	return e
}

// WithVersion attaches the version number and returns e for chaining.
func (e *Error) WithVersion(n int64) *Error {
	e.Version = n
	return e
}

// WithCause attaches an underlying error and returns e for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// NewNotFound creates a NOT_FOUND error.
func NewNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflict creates a CONFLICT error.
func NewConflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewValidation creates a VALIDATION error.
func NewValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewIntegrity creates an INTEGRITY error.
func NewIntegrity(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...)}
}

// NewWriteFailed creates a WRITE_FAILED error.
func NewWriteFailed(format string, args ...any) *Error {
	return &Error{Kind: KindWriteFailed, Message: fmt.Sprintf(format, args...)}
}

func isKind(err error, kind Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND store error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsConflict reports whether err is a CONFLICT store error.
func IsConflict(err error) bool { return isKind(err, KindConflict) }

// IsValidation reports whether err is a VALIDATION store error.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsIntegrity reports whether err is an INTEGRITY store error.
func IsIntegrity(err error) bool { return isKind(err, KindIntegrity) }

// IsWriteFailed reports whether err is a WRITE_FAILED store error.
func IsWriteFailed(err error) bool { return isKind(err, KindWriteFailed) }

// IsStorageFault reports whether err is fatal to the operation
// (integrity or write failure), as opposed to a recoverable condition.
func IsStorageFault(err error) bool {
	return IsIntegrity(err) || IsWriteFailed(err)
}
