// Package srunerr defines the tagged error taxonomy shared by every core
// component: the planner, the asset manager, the permission model, the
// sandbox, and the runner all return *Error rather than bare errors so that
// callers can branch on Kind without string-matching messages.
package srunerr

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Kind tags an Error with the category of failure it represents.
type Kind int

const (
	// Unknown is the fallback kind for failures that don't fit elsewhere.
	Unknown Kind = iota
	// Spec means the task document (or one of its assets) was malformed.
	Spec
	// Build means the Container Engine reported a build-side failure.
	Build
	// IO means a host filesystem operation failed.
	IO
	// PermissionDenied means a read/write/net check failed.
	PermissionDenied
	// Cache means the asset HTTP cache layer failed.
	Cache
	// ErrorCode means a container exited with a non-zero status.
	ErrorCode
	// Connection means the transport to the Container Engine failed.
	Connection
	// Docker means the Container Engine reported a non-build failure.
	Docker
	// Encoding means log bytes from a container were not valid UTF-8.
	Encoding
)

func (k Kind) String() string {
	switch k {
	case Spec:
		return "Spec"
	case Build:
		return "Build"
	case IO:
		return "IO"
	case PermissionDenied:
		return "PermissionDenied"
	case Cache:
		return "Cache"
	case ErrorCode:
		return "ErrorCode"
	case Connection:
		return "Connection"
	case Docker:
		return "Docker"
	case Encoding:
		return "Encoding"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every core component returns.
type Error struct {
	Kind    Kind
	Message string
	// Code carries the container exit status for Kind == ErrorCode.
	Code  uint64
	cause error
	frame xerrors.Frame
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(1),
	}
}

// Wrap attaches a Kind to an underlying error, preserving it as the cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
		frame:   xerrors.Caller(1),
	}
}

// WithCode builds the ErrorCode kind produced when a container's script
// exits non-zero.
func WithCode(code uint64) *Error {
	return &Error{
		Kind:    ErrorCode,
		Message: fmt.Sprintf("container exited with code %d", code),
		Code:    code,
		frame:   xerrors.Caller(1),
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// FormatError renders a stack frame the same way lazydocker's ComplexError
// does, so a top-level handler can print a trace in debug mode.
func (e *Error) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", e.Kind, e.Message)
	e.frame.Format(p)
	return e.cause
}

func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// CodeOf extracts the container exit code carried by an ErrorCode-kind
// error anywhere in err's chain, mirroring lazydocker's HasErrorCode helper.
func CodeOf(err error) (uint64, bool) {
	var e *Error
	if xerrors.As(err, &e) && e.Kind == ErrorCode {
		return e.Code, true
	}
	return 0, false
}

// KindOf extracts the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind, true
	}
	return Unknown, false
}

// As extracts the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if xerrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HandledError wraps an *Error that has already been emitted to a Reporter
// via report_status(Error(...)). It exists purely to stop the Runner from
// reporting the same failure twice as it propagates up through nested
// "handle or ignore" calls; it carries no meaning beyond that.
//
// The *Error is embedded through the reported alias so that the embedded
// field is not named Error, which would shadow the promoted Error() method
// and leave HandledError without one.
type HandledError struct {
	*reported
}

type reported = Error

// Unwrap exposes the wrapped *Error itself, overriding the promoted
// *Error.Unwrap (which would return the Error's own cause, skipping past
// the Error and hiding its Kind/Code from KindOf/CodeOf/As).
func (h *HandledError) Unwrap() error {
	return h.reported
}

// Handled wraps err as an already-reported error. Wrapping nil returns nil,
// matching goerrors.Wrap's behavior that the teacher's WrapError works
// around.
func Handled(err *Error) error {
	if err == nil {
		return nil
	}
	return &HandledError{reported: err}
}

// IsHandled reports whether err has already been reported to a Reporter.
func IsHandled(err error) bool {
	var h *HandledError
	return xerrors.As(err, &h)
}

// Stack renders a full stack trace for err the way main.go prints one for
// an unexpected top-level failure.
func Stack(err error) string {
	return goerrors.Wrap(err, 1).ErrorStack()
}
