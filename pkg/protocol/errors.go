package protocol

import (
	"errors"
	"fmt"
)

// ErrorCode is a wire-level error classification. Clients key behavior on
// the code; the accompanying message is for logs only.
type ErrorCode uint32

const (
	ErrorCodeNotFound ErrorCode = iota + 1
	ErrorCodePermissionDenied
	ErrorCodeInvalidArgument
	ErrorCodeAlreadyExists
	ErrorCodeResourceExhausted
	ErrorCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNotFound:
		return "NOT_FOUND"
	case ErrorCodePermissionDenied:
		return "PERMISSION_DENIED"
	case ErrorCodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrorCodeAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrorCodeResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case ErrorCodeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is the error type carried by *_ERR frames. It implements the
// standard error interface so daemon-internal code can return it like any
// other error right up until a response frame is written.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError constructs an *Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError returns err as a *protocol.Error if it (or something it wraps) is
// one, falling back to ErrorCodeInternal with err's message otherwise.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr
	}
	return &Error{Code: ErrorCodeInternal, Message: err.Error()}
}
