// Package errs defines the error kinds shared by the mail source, the
// outbound transport, the store, and configuration loading.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether it is fatal,
// aborts a monitoring pass, or is only recorded.
type Kind int

const (
	// Connection means the remote server could not be reached.
	Connection Kind = iota + 1
	// Auth means the server rejected the account credentials.
	Auth
	// TransientSend means an outbound message could not be delivered.
	TransientSend
	// Store means a persistence operation failed.
	Store
	// Config means required settings are missing or invalid.
	Config
)

func (k Kind) String() string {
	switch k {
	case Connection:
		return "connection error"
	case Auth:
		return "auth error"
	case TransientSend:
		return "send error"
	case Store:
		return "store error"
	case Config:
		return "config error"
	default:
		return "unknown error"
	}
}

// Error is a classified error. Op names the operation that failed
// (e.g. "imap login", "record sent").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind and operation name.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or any error in its chain) is an *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind == kind {
		return true
	}
	// An outer classification may wrap an inner one of a different kind.
	return Is(e.Err, kind)
}

// KindOf returns the kind of the outermost *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
