package core

import "github.com/pkg/errors"

// ErrorCode is the stable, machine readable identifier of a domain error.
type ErrorCode string

const (
	CodeNotEnrolled          ErrorCode = "not_enrolled"
	CodeAlreadyEnrolled      ErrorCode = "already_enrolled"
	CodeAttemptLimitExceeded ErrorCode = "attempt_limit_exceeded"
	CodeNotFound             ErrorCode = "not_found"
	CodeInvalidConfiguration ErrorCode = "invalid_configuration"
	CodeConcurrentUpdate     ErrorCode = "concurrent_update_conflict"
	CodeForbidden            ErrorCode = "forbidden"
)

// MaxWriteAttempts bounds the optimistic retries done on a lost compare-and-swap.
const MaxWriteAttempts = 3

// ErrConcurrentUpdate is returned by repositories when a conditional write lost against a concurrent one,
// and by services once MaxWriteAttempts have been exhausted.
var ErrConcurrentUpdate = NewError(CodeConcurrentUpdate, "the record was modified concurrently, please retry")

// Error is a domain error carrying a stable code.
type Error struct {
	Code    ErrorCode
	Message string
}

func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (err *Error) Error() string {
	return err.Message
}

// ErrorCodeOf returns the code of the domain error at the root of err, or "" if there is none.
func ErrorCodeOf(err error) ErrorCode {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Code
	}
	return ""
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
