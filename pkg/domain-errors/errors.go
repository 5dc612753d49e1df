// Package dErrors provides coded domain errors shared across features.
//
// Errors carry a stable machine-readable code plus a human-readable
// description. Transport layers translate codes to HTTP statuses via
// pkg/platform/httputil; services match on codes with Is/As helpers rather
// than string comparison.
package dErrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain error.
type Code string

const (
	// CodeValidation marks malformed input: required fields missing or of
	// the wrong shape. Rejected before any side effect is attempted.
	CodeValidation Code = "validation_error"

	// CodeVocabulary marks input whose value falls outside a closed
	// enumeration (risk level, decision, evidence kind). Never coerced.
	CodeVocabulary Code = "vocabulary_error"

	// CodeBadRequest marks transport-level request problems (bad JSON,
	// missing body).
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeNotFound marks a lookup miss.
	CodeNotFound Code = "not_found"

	// CodeChannel marks a failure reported by an external channel (Slack,
	// Zendesk). Recorded in the outcome; the ledger is aborted for case
	// failures so a retry stays possible.
	CodeChannel Code = "channel_error"

	// CodeState marks an idempotency-ledger invariant violation. This is a
	// coordination bug, not a retryable fault.
	CodeState Code = "state_error"

	// CodePolicy marks an intent combination the policy rules do not
	// produce. Should be unreachable; surfaced loudly when hit.
	CodePolicy Code = "policy_violation"

	// CodeInternal marks everything else. Descriptions are not exposed to
	// clients.
	CodeInternal Code = "internal_error"
)

// Error is the concrete coded error type.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a coded error.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Wrap constructs a coded error that preserves the underlying cause for
// errors.Is/errors.As chains.
func Wrap(code Code, description string, cause error) *Error {
	return &Error{Code: code, Description: description, cause: cause}
}

// CodeOf extracts the domain code from err, or CodeInternal when err carries
// no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
