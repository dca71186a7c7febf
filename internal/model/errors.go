// Package model holds the immutable domain types shared across the
// lakehouse subsystem: processes, streams, blocks, view metadata, and
// partitions, plus the error taxonomy every component reports through.
package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error by where it originated and how a caller
// should react, per the propagation policy in the design: recoverable
// errors are retried at the component best positioned to know about them,
// unrecoverable errors surface verbatim.
type ErrorKind int

const (
	// ErrUnknown is the zero value; never constructed intentionally.
	ErrUnknown ErrorKind = iota
	// ErrMalformedBlock marks a block that failed to decode (C1). The
	// containing block is unusable; callers skip it and continue.
	ErrMalformedBlock
	// ErrMissingPayload marks an object-store read that could not be
	// satisfied (C5). Retryable with backoff; a partition build fails
	// only after retries are exhausted.
	ErrMissingPayload
	// ErrCatalogTransient marks a catalog error expected to clear on
	// retry (connection blips, lock contention).
	ErrCatalogTransient
	// ErrCatalogConflict marks a uniqueness-constraint violation on
	// partition insert. Expected under concurrent writers (C6); callers
	// treat it as success and discard their own file.
	ErrCatalogConflict
	// ErrSchemaMismatch marks a query against a view whose schema hash
	// no longer matches the partitions available (C12).
	ErrSchemaMismatch
	// ErrInvalidInstanceID marks a view-instance identifier a factory
	// rejected (C7).
	ErrInvalidInstanceID
	// ErrQueryTimeout marks a query cancelled by its deadline (C12).
	ErrQueryTimeout
	// ErrInternal marks a bug: state that should be unreachable.
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedBlock:
		return "malformed_block"
	case ErrMissingPayload:
		return "missing_payload"
	case ErrCatalogTransient:
		return "catalog_transient"
	case ErrCatalogConflict:
		return "catalog_conflict"
	case ErrSchemaMismatch:
		return "schema_mismatch"
	case ErrInvalidInstanceID:
		return "invalid_instance_id"
	case ErrQueryTimeout:
		return "query_timeout"
	case ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the context-carrying error type every component wraps its
// failures in: a kind, the component and operation that raised it, a set
// of identifying keys (block id, view name, ...), and the underlying
// cause.
type Error struct {
	Kind      ErrorKind
	Component string
	Operation string
	Keys      map[string]string
	Cause     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s[%s]", e.Component, e.Operation, e.Kind)
	for k, v := range e.Keys {
		msg += fmt.Sprintf(" %s=%s", k, v)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Wrap builds a model.Error with the given context. Keys are supplied as
// alternating key/value pairs, following the corpus's own "identifying
// keys as varargs" idiom for span attributes.
func Wrap(kind ErrorKind, component, operation string, cause error, kv ...string) error {
	keys := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		keys[kv[i]] = kv[i+1]
	}
	return &Error{Kind: kind, Component: component, Operation: operation, Keys: keys, Cause: cause}
}

// KindOf extracts the ErrorKind from err, walking the unwrap chain.
// Returns ErrUnknown if err (or nothing in its chain) is a *Error.
func KindOf(err error) ErrorKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return ErrUnknown
}

// IsRetryable reports whether err's kind is expected to clear on retry.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrMissingPayload, ErrCatalogTransient:
		return true
	default:
		return false
	}
}
