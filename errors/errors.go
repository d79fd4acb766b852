// Package errors provides error handling for taxa.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints
//
// On top of that it defines the error taxonomy of the query service. Every
// failure a caller can observe wraps exactly one of the sentinel errors below,
// and KindOf recovers that classification through any amount of wrapping:
//
//	if id == "" {
//	    return errors.NewInvalidParams("'id' is required")
//	}
//	...
//	switch errors.KindOf(err) {
//	case errors.KindNotFound:
//	    // 404
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

	// CombineErrors keeps the first error and attaches the second as a secondary cause
	CombineErrors = crdb.CombineErrors
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
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors of the query service.
// Wrap these with errors.Wrap() to add context while preserving the kind.
var (
	// ErrInvalidParams indicates missing or malformed request arguments
	ErrInvalidParams = New("invalid params")

	// ErrUnknownMethod indicates the RPC method is not registered
	ErrUnknownMethod = New("unknown method")

	// ErrUnknownNamespace indicates the namespace is not in the registry
	ErrUnknownNamespace = New("unknown namespace")

	// ErrNotFound indicates the requested taxon or object does not exist
	ErrNotFound = New("not found")

	// ErrUnsupportedTransport indicates a disallowed HTTP verb
	ErrUnsupportedTransport = New("unsupported transport")

	// ErrRateLimited indicates the gateway request budget is exhausted
	ErrRateLimited = New("rate limited")
)

// Kind classifies an error for callers of the query service.
type Kind string

const (
	KindInvalidParams        Kind = "InvalidParams"
	KindUnknownMethod        Kind = "UnknownMethod"
	KindUnknownNamespace     Kind = "UnknownNamespace"
	KindNotFound             Kind = "NotFound"
	KindUnsupportedTransport Kind = "UnsupportedTransport"
	KindRateLimited          Kind = "RateLimited"
	KindInternal             Kind = "Internal"
)

var kindSentinels = []struct {
	kind     Kind
	sentinel error
}{
	{KindInvalidParams, ErrInvalidParams},
	{KindUnknownMethod, ErrUnknownMethod},
	{KindUnknownNamespace, ErrUnknownNamespace},
	{KindNotFound, ErrNotFound},
	{KindUnsupportedTransport, ErrUnsupportedTransport},
	{KindRateLimited, ErrRateLimited},
}

// KindOf returns the classification of err. Errors that wrap none of the
// sentinels are KindInternal. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, ks := range kindSentinels {
		if Is(err, ks.sentinel) {
			return ks.kind
		}
	}
	return KindInternal
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidParamsError checks if an error is or wraps ErrInvalidParams
func IsInvalidParamsError(err error) bool {
	return err != nil && Is(err, ErrInvalidParams)
}

// NewInvalidParams creates an invalid-params error with a formatted message
func NewInvalidParams(format string, args ...interface{}) error {
	return Wrap(ErrInvalidParams, Newf(format, args...).Error())
}

// NewNotFound creates a not-found error with a formatted message
func NewNotFound(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewUnknownNamespace creates an unknown-namespace error for ns
func NewUnknownNamespace(ns string) error {
	return Wrapf(ErrUnknownNamespace, "namespace %q", ns)
}

// NewUnknownMethod creates an unknown-method error for method
func NewUnknownMethod(method string) error {
	return Wrapf(ErrUnknownMethod, "method %q", method)
}

// WrapInvalidParams wraps an error as an invalid-params error with context
func WrapInvalidParams(err error, context string) error {
	return Wrap(Wrap(ErrInvalidParams, err.Error()), context)
}
