package airindex

import (
	"errors"
	"fmt"
)

// Error wraps an ErrorKind with a human message and an optional underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("airindex: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("airindex: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind is the closed taxonomy of error kinds from spec §7.
type ErrorKind int

const (
	// ConfigError is an invalid flag/config combination, reported before any I/O.
	ConfigError ErrorKind = iota + 1

	// IoError is a failed read/write, a short read, or an unsupported URL scheme.
	IoError

	// FitError is a drafter's failure to produce any piece within ε_max for a
	// (drafter, P) candidate; the planner skips the candidate and continues.
	FitError

	// BuildError is a fatal planner failure: no feasible chain under the
	// given constraints, or every candidate at some stage failed to fit.
	BuildError

	// NotFoundKind marks a query key outside the indexed key range. Not a
	// fault of the core: it is returned to the caller as an ordinary value.
	NotFoundKind
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigError:
		return "config"
	case IoError:
		return "io"
	case FitError:
		return "fit"
	case BuildError:
		return "build"
	case NotFoundKind:
		return "not-found"
	default:
		return "unknown"
	}
}

// NewError creates an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind wrapping an underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrNotFound is a NotFoundKind error value for a key outside [min_key,
// max_key] of the indexed KeyBuffer (spec §4.5, §7). Lookup does not return
// this value itself: it returns a new NotFoundKind *Error that names the
// key, so errors.Is(err, ErrNotFound) is false for Lookup's errors while
// IsNotFound is true.
var ErrNotFound = &Error{Kind: NotFoundKind, Message: "key outside indexed range"}

// IsNotFound reports whether err is (or wraps) an *Error of kind NotFoundKind.
func IsNotFound(err error) bool {
	return KindOf(err) == NotFoundKind
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	return KindOf(err) == ConfigError
}

// IsFitError reports whether err is a FitError.
func IsFitError(err error) bool {
	return KindOf(err) == FitError
}

// IsBuildError reports whether err is a BuildError.
func IsBuildError(err error) bool {
	return KindOf(err) == BuildError
}

// IsIoError reports whether err is an IoError.
func IsIoError(err error) bool {
	return KindOf(err) == IoError
}

// KindOf extracts the ErrorKind from err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
