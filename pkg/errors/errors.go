// Package errors provides structured error handling for the permission dispatcher.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindConfiguration indicates a request that was built incorrectly:
	// an empty capability set, mixed pathways, or a missing granted handler.
	// Configuration errors are fatal and never retried.
	KindConfiguration
	// KindDuplicateToken indicates a consent token collided with one that is
	// still pending. This is an invariant violation.
	KindDuplicateToken
	// KindPlatform indicates a host or native bridge error.
	KindPlatform
	// KindParsing indicates a consent result event could not be parsed.
	KindParsing
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDuplicateToken:
		return "duplicate_token"
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel causes wrapped by Error.
var (
	// ErrEmptySet is returned when a capability set has no members.
	ErrEmptySet = stderrors.New("capability set is empty")

	// ErrBlankCapability is returned when a capability identifier is empty.
	ErrBlankCapability = stderrors.New("capability identifier is blank")

	// ErrMixedPathways is returned when a capability set mixes ordinary and
	// settings-redirect capabilities, or holds more than one settings capability.
	ErrMixedPathways = stderrors.New("capability set mixes consent pathways")

	// ErrMissingGranted is returned when a request has no granted handler.
	ErrMissingGranted = stderrors.New("granted handler is required")

	// ErrDuplicateToken is returned when a consent token is already pending.
	ErrDuplicateToken = stderrors.New("consent token already pending")
)

// Error represents a structured error raised by the dispatcher.
type Error struct {
	// Op is the operation that failed (e.g., "capability.Ordinary").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Token is the consent token involved, if any.
	Token string
	// Channel is the platform channel name, if applicable.
	Channel string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]", e.Op, e.Kind)
	if e.Channel != "" {
		fmt.Fprintf(&sb, " channel=%s", e.Channel)
	}
	if e.Token != "" {
		fmt.Fprintf(&sb, " token=%s", e.Token)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration returns a KindConfiguration error for op.
func Configuration(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err, Timestamp: time.Now()}
}

// IsConfiguration reports whether err is, or wraps, a configuration error.
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name errors keep access to them.
var (
	Is = stderrors.Is
	As = stderrors.As
)

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "dispatcher.onGranted").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse event data.
type ParseError struct {
	// Channel is the platform channel that received the event.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported by the dispatcher.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
