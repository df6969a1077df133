// Package bserror defines the error kinds shared by every tier of
// bitservice, and the HTTP status mapping used at the coordinator and peer
// API boundary.
package bserror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure the way spec section 7 names them. Kind values
// are never retried automatically by any layer.
type Kind string

const (
	BadRequest       Kind = "BadRequest"
	NotFound         Kind = "NotFound"
	UpstreamError    Kind = "UpstreamError"
	TimeoutError     Kind = "TimeoutError"
	SessionConflict  Kind = "SessionConflict"
	ProtocolError    Kind = "ProtocolError"
	ProofError       Kind = "ProofError"
	PersistenceError Kind = "PersistenceError"
	InternalError    Kind = "InternalError"
)

// Error wraps an underlying cause with a Kind that every HTTP boundary maps
// to a status code, and every client surfaces to its caller.
type Error struct {
	Kind  Kind
	Field string // optional, e.g. the offending envelope field name
	cause error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, cause: errors.New(msg)}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, cause: errors.Wrap(err, msg)}
}

// WithField attaches the name of the offending field to a BadRequest.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field=%s): %v", e.Kind, e.Field, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

// Cause unwraps to the underlying error, matching the pkg/errors convention.
func (e *Error) Cause() error { return e.cause }

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the Kind of err, defaulting to InternalError for any
// error that isn't a *Error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return InternalError
}

// HTTPStatus maps a Kind to the status code the coordinator/peer HTTP
// surface returns for it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest, ProtocolError:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case TimeoutError:
		return http.StatusGatewayTimeout
	case UpstreamError:
		return http.StatusBadGateway
	case SessionConflict:
		return http.StatusConflict
	case ProofError:
		return http.StatusUnprocessableEntity
	case PersistenceError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
