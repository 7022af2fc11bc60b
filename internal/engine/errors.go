package engine

import (
	"errors"
	"fmt"
)

// RewriteError represents an error detected while rewriting a call site.
//
// Rewrite errors include:
//   - Unknown function: no rules are registered for the callee
//   - Unsupported overload: no rule matches the call's shape
//   - Invalid site: the call-site descriptor cannot be evaluated
//
// Unsupported overloads normally surface as unsupported outcomes rather
// than errors; the error form is returned by Registry.Select.
type RewriteError struct {
	// Code identifies the error category.
	Code RewriteErrorCode

	// Message is a human-readable description.
	Message string

	// Callee is the qualified source function name.
	Callee string

	// Location is file:line:column of the call, when known.
	Location string
}

// RewriteErrorCode categorizes rewrite errors.
type RewriteErrorCode string

const (
	// ErrCodeUnknownFunction indicates no rules exist for the callee.
	ErrCodeUnknownFunction RewriteErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeOverloadUnsupported indicates no overload matches the call.
	ErrCodeOverloadUnsupported RewriteErrorCode = "OVERLOAD_UNSUPPORTED"

	// ErrCodeInvalidSite indicates a malformed call-site descriptor.
	ErrCodeInvalidSite RewriteErrorCode = "INVALID_SITE"
)

// Error implements the error interface.
func (e *RewriteError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s (callee=%s, at=%s)", e.Code, e.Message, e.Callee, e.Location)
	}
	if e.Callee != "" {
		return fmt.Sprintf("%s: %s (callee=%s)", e.Code, e.Message, e.Callee)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownFunctionError returns true if err is an unknown function error.
// Uses errors.As to handle wrapped errors.
func IsUnknownFunctionError(err error) bool {
	var re *RewriteError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownFunction
	}
	return false
}

// IsUnsupportedOverloadError returns true if err is an unsupported
// overload error. Uses errors.As to handle wrapped errors.
func IsUnsupportedOverloadError(err error) bool {
	var re *RewriteError
	if errors.As(err, &re) {
		return re.Code == ErrCodeOverloadUnsupported
	}
	return false
}

// NewUnknownFunctionError creates a RewriteError for a callee with no rules.
func NewUnknownFunctionError(callee, location string) *RewriteError {
	return &RewriteError{
		Code:     ErrCodeUnknownFunction,
		Message:  "no rewrite rules registered",
		Callee:   callee,
		Location: location,
	}
}

// NewUnsupportedOverloadError creates a RewriteError for a call shape no
// overload rule matches.
func NewUnsupportedOverloadError(callee, location string, argCount int, hasPolicy bool) *RewriteError {
	policy := "without"
	if hasPolicy {
		policy = "with"
	}
	return &RewriteError{
		Code:     ErrCodeOverloadUnsupported,
		Message:  fmt.Sprintf("no overload takes %d arguments %s an execution policy", argCount, policy),
		Callee:   callee,
		Location: location,
	}
}
