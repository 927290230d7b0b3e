package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error so that transports can map it to a
// status code and clients can react (e.g. prompt for a new API key).
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindAuthentication      Kind = "authentication_error"
	KindUpstreamFetch       Kind = "upstream_fetch_error"
	KindInsufficientContent Kind = "insufficient_content_error"
	KindAIFormat            Kind = "ai_format_error"
	KindConfiguration       Kind = "configuration_error"
	KindNotFound            Kind = "not_found"
	KindUpstream            Kind = "upstream_error"
	KindInternal            Kind = "internal_error"
)

// Error is the single error type surfaced by every component boundary.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so sentinel comparisons like
// errors.Is(err, apperr.New(apperr.KindNotFound, "")) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientContent:
		return http.StatusUnprocessableEntity
	case KindUpstreamFetch, KindAIFormat, KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error {
	return New(KindValidation, msg)
}

// ValidationFields builds a validation error carrying per-field failures.
func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Authentication(msg string, err error) *Error {
	return Wrap(KindAuthentication, msg, err)
}

func Fetch(msg string, err error) *Error {
	return Wrap(KindUpstreamFetch, msg, err)
}

func InsufficientContent(msg string) *Error {
	return New(KindInsufficientContent, msg)
}

func AIFormat(msg string, err error) *Error {
	return Wrap(KindAIFormat, msg, err)
}

func Configuration(msg string) *Error {
	return New(KindConfiguration, msg)
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg)
}

func Upstream(msg string, err error) *Error {
	return Wrap(KindUpstream, msg, err)
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
