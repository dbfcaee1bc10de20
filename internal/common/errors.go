// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Document store errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Classification errors.
	ErrNoCandidate = errors.New("no candidate type")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Review workflow errors.
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrReviewInProgress  = errors.New("another file is mid-review")
)

// GuardReason identifies which pre-flight check rejected a file.
type GuardReason string

// Guard rejection reasons. Terminal for the file, logged, never retried.
const (
	ReasonFileNotFound         GuardReason = "file_not_found"
	ReasonNotAFile             GuardReason = "not_a_file"
	ReasonZeroByteFile         GuardReason = "zero_byte_file"
	ReasonFileLocked           GuardReason = "file_locked"
	ReasonTempOrHiddenFile     GuardReason = "temp_or_hidden_file"
	ReasonIncompleteDownload   GuardReason = "incomplete_download"
	ReasonPasswordProtectedPDF GuardReason = "password_protected_pdf"
)

// GuardError reports a file failing a pre-flight guard check.
type GuardError struct {
	Path   string
	Reason GuardReason
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard rejected %s: %s", e.Path, e.Reason)
}

// NewGuardError creates a guard rejection for the given file.
func NewGuardError(path string, reason GuardReason) error {
	return &GuardError{Path: path, Reason: reason}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
