// Package errors defines AppError, the structured error shared by every broker
// layer. HTTP status codes, worker results and log fields are all derived from
// its Code.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 32

// stack renders the caller frames above skip, omitting runtime frames.
func stack(skip int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for more := true; more; {
		var f runtime.Frame
		f, more = frames.Next()
		if strings.Contains(f.File, "runtime/") {
			continue
		}
		fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
	}
	return sb.String()
}

// AppError carries a typed code, a caller-facing message and optional detail
// such as the offending structure or mass.
//
//	errors.TooLarge("structure mass exceeds ceiling").WithDetail("mass=1622.4")
//	errors.Wrap(err, errors.ErrCodeStandardizerUnavailable, "standardizer call failed")
type AppError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Cause   error
	// Stack is captured at construction and never printed by Error.
	Stack string
}

func (e *AppError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetail returns a copy with Detail set. Nil receivers stay nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	out := *e
	out.Detail = detail
	return &out
}

// WithCause returns a copy wrapping err. Nil receivers stay nil.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	out := *e
	out.Cause = err
	return &out
}

func build(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause, Stack: stack(2)}
}

// New returns an AppError with code and message.
func New(code ErrorCode, message string) *AppError {
	return build(code, message, nil)
}

// Wrap returns an AppError caused by err, or nil when err is nil. CodeUnknown
// inherits the code of an AppError already in err's chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var inner *AppError
		if errors.As(err, &inner) {
			code = inner.Code
		}
	}
	return build(code, message, err)
}

// IsCode reports whether any AppError in err's chain has code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// GetCode returns the code of the outermost AppError in err's chain: CodeOK
// for nil, CodeUnknown for foreign errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsRejection reports whether err is a structure rejection rather than a
// service failure.
func IsRejection(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidStructure, ErrCodeTooLarge, ErrCodeUnsupportedStructure:
		return true
	}
	return false
}

func InvalidStructure(message string) *AppError {
	return build(ErrCodeInvalidStructure, message, nil)
}

func TooLarge(message string) *AppError {
	return build(ErrCodeTooLarge, message, nil)
}

func UnsupportedStructure(message string) *AppError {
	return build(ErrCodeUnsupportedStructure, message, nil)
}

// ServiceUnavailable reports a standardizer or calculator service that could
// not be reached or answered with a non-success status.
func ServiceUnavailable(message string) *AppError {
	return build(ErrCodeStandardizerUnavailable, message, nil)
}

func MalformedResponse(message string) *AppError {
	return build(ErrCodeMalformedResponse, message, nil)
}

func InvalidParam(message string) *AppError {
	return build(CodeInvalidParam, message, nil)
}

func NotFound(message string) *AppError {
	return build(CodeNotFound, message, nil)
}

func Internal(message string) *AppError {
	return build(CodeInternal, message, nil)
}
