// Package service holds the auth and catalog flows.  Handlers translate the
// Kind of a returned *Error into an HTTP status.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindConflict
	KindNotFound
	KindUnsupportedType
	KindTooLarge
	KindUpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnsupportedType:
		return "unsupported_type"
	case KindTooLarge:
		return "too_large"
	case KindUpstreamFailure:
		return "upstream_failure"
	}
	return "internal"
}

// Error is a classified failure.  Msg is safe to show clients; Err is the
// underlying cause and is only exposed outside production.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(k Kind, msg string, err error) *Error { return &Error{Kind: k, Msg: msg, Err: err} }

func BadRequest(msg string) *Error      { return newError(KindBadRequest, msg, nil) }
func Unauthorized(msg string) *Error    { return newError(KindUnauthorized, msg, nil) }
func Forbidden(msg string) *Error       { return newError(KindForbidden, msg, nil) }
func Conflict(msg string) *Error        { return newError(KindConflict, msg, nil) }
func NotFound(msg string) *Error        { return newError(KindNotFound, msg, nil) }
func UnsupportedType(msg string) *Error { return newError(KindUnsupportedType, msg, nil) }
func TooLarge(msg string) *Error        { return newError(KindTooLarge, msg, nil) }

// Upstream wraps a failure of the image host or another remote dependency.
func Upstream(msg string, err error) *Error { return newError(KindUpstreamFailure, msg, err) }

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// KindOf returns the Kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
