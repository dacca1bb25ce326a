package models

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, user visible error category
type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable" // provider timeout, network error or 5xx
	KindUpstreamRejected    ErrorKind = "upstream_rejected"    // bad credential, bookmaker limit exceeded
	KindUnsupportedMarket   ErrorKind = "unsupported_market"
	KindMalformedQuote      ErrorKind = "malformed_quote"
	KindInsufficientQuotes  ErrorKind = "insufficient_quotes"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindInternal            ErrorKind = "internal"
)

// Error carries a kind and a human readable message. Err is kept for logs
// and never rendered to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates a typed error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
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

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// across wrapped chains.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks
var (
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrUpstreamRejected    = &Error{Kind: KindUpstreamRejected}
	ErrUnsupportedMarket   = &Error{Kind: KindUnsupportedMarket}
	ErrMalformedQuote      = &Error{Kind: KindMalformedQuote}
	ErrInsufficientQuotes  = &Error{Kind: KindInsufficientQuotes}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
)

// KindOf returns the kind of the first typed error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller safe message for err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
