package zerror

import (
	"fmt"
)

// ZError represents the error structure.
type ZError struct {
	parent error
	status Status
	code   string
	msg    string
}

// NewZError initializes a ZError instance.
//
// code example: PRODUCT_NOT_FOUND
func NewZError(parent error, status Status, code, msg string) ZError {
	return ZError{
		parent: parent,
		status: status,
		code:   code,
		msg:    msg,
	}
}

// Error renders "CODE: message", followed by the parent error when set.
func (e ZError) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.parent)
	}
	return e.code + ": " + e.msg
}

// WrapParent attaches an underlying error to an existing predefined ZError.
func (e ZError) WrapParent(parent error) ZError {
	if parent == nil {
		return e
	}
	e.parent = parent
	return e
}

// WithMsg returns a copy of the ZError carrying a more specific message.
func (e ZError) WithMsg(msg string) ZError {
	e.msg = msg
	return e
}

// Unwrap returns the underlying error for the ZError.
func (e ZError) Unwrap() error {
	return e.parent
}

// Is reports whether target is a ZError with the same code, so predefined
// errors can be matched with errors.Is after WrapParent or WithMsg.
func (e ZError) Is(target error) bool {
	t, ok := target.(ZError)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Status returns the status of the ZError.
func (e ZError) Status() Status {
	return e.status
}

// Code returns the code of the ZError.
func (e ZError) Code() string {
	return e.code
}

// Msg returns the message of the ZError.
func (e ZError) Msg() string {
	return e.msg
}

// Parent returns the underlying error for the ZError.
func (e ZError) Parent() error {
	return e.parent
}

// New returns a ZError without a parent. The helpers below fix the status.
func New(status Status, code, msg string) ZError {
	return NewZError(nil, status, code, msg)
}

func NewUnauthorized(code, msg string) ZError { return New(StatusUnauthorized, code, msg) }

func NewForbidden(code, msg string) ZError { return New(StatusForbidden, code, msg) }

func NewNotFound(code, msg string) ZError { return New(StatusNotFound, code, msg) }

func NewConflict(code, msg string) ZError { return New(StatusConflict, code, msg) }

func NewBadRequest(code, msg string) ZError { return New(StatusBadRequest, code, msg) }

func NewValidationFailed(code, msg string) ZError { return New(StatusValidationFailed, code, msg) }

func NewServiceUnavailable(code, msg string) ZError { return New(StatusServiceUnavailable, code, msg) }
