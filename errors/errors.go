// Package errors provides error handling for longrun.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for operators
//
// Usage:
//
//	if err := adapter.Register(ctx, j); err != nil {
//	    return errors.Wrapf(err, "register job %s", j.ID())
//	}
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // unknown job identity
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to an error, if any.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors shared across longrun.
// Wrap these with Wrap/Wrapf to add context while keeping errors.Is() working.
var (
	// ErrNotFound indicates the requested job or record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates run parameters were missing or malformed
	ErrInvalidRequest = New("invalid request")

	// ErrAllocation indicates a job or batch could not be constructed
	ErrAllocation = New("allocation failure")

	// ErrMalformedRecord indicates a durable record is missing required fields
	ErrMalformedRecord = New("malformed record")

	// ErrRegistry indicates a jobs registry call failed
	ErrRegistry = New("registry failure")

	// ErrJobsInFlight indicates teardown was refused because jobs are still pending or running
	ErrJobsInFlight = New("jobs still in flight")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}

// NewMalformedRecordError creates a malformed-record error with a formatted message
func NewMalformedRecordError(format string, args ...interface{}) error {
	return Wrapf(ErrMalformedRecord, format, args...)
}
