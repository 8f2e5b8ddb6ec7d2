// Package domain defines the error vocabulary shared by the Sabertooth core.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a core error with a structured error code.
// Codes have the form ST-<AREA>-<NNNN>, where the number mirrors the
// closest HTTP status.
type DomainError struct {
	Code    string // Error code (e.g., "ST-ROUTE-5000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true // Only check if it's a DomainError
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Routing errors (ROUTE)

var (
	// ErrNoRoute indicates no mandate claims the requested host and no
	// mandate claims root.
	ErrNoRoute = NewDomainError("ST-ROUTE-5000", "no mandate claims this host")

	// ErrNotReady indicates no routing snapshot has been published yet.
	ErrNotReady = NewDomainError("ST-ROUTE-5030", "routing snapshot not published")
)

// Mandate errors (MAND)

var (
	// ErrMandateNotFound indicates an unknown mandate name.
	ErrMandateNotFound = NewDomainError("ST-MAND-4040", "mandate not found")

	// ErrMandateNotBuilt indicates a mandate has no valid generation.
	ErrMandateNotBuilt = NewDomainError("ST-MAND-5000", "mandate has no valid build")

	// ErrManifestInvalid indicates the manifest could not be read.
	ErrManifestInvalid = NewDomainError("ST-MAND-4000", "manifest unreadable")
)

// Build errors (BUILD)

var (
	// ErrBuildFailed indicates the compile collaborator rejected the sources.
	ErrBuildFailed = NewDomainError("ST-BUILD-5000", "build failed")

	// ErrNoSites indicates a build succeeded but declared no sites.
	ErrNoSites = NewDomainError("ST-BUILD-5001", "build declared no sites")

	// ErrNoCompiler indicates no compiler handles the mandate's sources.
	ErrNoCompiler = NewDomainError("ST-BUILD-5002", "no compiler for sources")
)
