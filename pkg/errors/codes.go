package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases used by generic layers.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// Structure Module Error Codes
const (
	// ErrCodeInvalidStructure marks a structure matched by the exclusion list.
	ErrCodeInvalidStructure ErrorCode = "STRUCT_001"
	// ErrCodeTooLarge marks a structure at or above the mass ceiling, or with
	// a non-positive mass.
	ErrCodeTooLarge ErrorCode = "STRUCT_002"
	// ErrCodeUnsupportedStructure marks a bracketed structure sent to a
	// calculator that cannot parse brackets.
	ErrCodeUnsupportedStructure ErrorCode = "STRUCT_003"
)

// Standardizer Service Error Codes
const (
	ErrCodeStandardizerUnavailable ErrorCode = "SVC_001"
	ErrCodeMalformedResponse       ErrorCode = "SVC_002"
)

// Calculator Module Error Codes
const (
	ErrCodeUnknownCalculator   ErrorCode = "CALC_001"
	ErrCodeUnsupportedProperty ErrorCode = "CALC_002"
	ErrCodeCalculatorFailed    ErrorCode = "CALC_003"
)

// ErrorCodeHTTPStatus maps each ErrorCode to the HTTP status returned by the API.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeInvalidStructure:     http.StatusBadRequest,
	ErrCodeTooLarge:             http.StatusUnprocessableEntity,
	ErrCodeUnsupportedStructure: http.StatusUnprocessableEntity,

	ErrCodeStandardizerUnavailable: http.StatusServiceUnavailable,
	ErrCodeMalformedResponse:       http.StatusBadGateway,

	ErrCodeUnknownCalculator:   http.StatusBadRequest,
	ErrCodeUnsupportedProperty: http.StatusBadRequest,
	ErrCodeCalculatorFailed:    http.StatusBadGateway,
}

// ErrorCodeMessage maps each ErrorCode to its default message.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeInvalidStructure:     "structure is not valid for calculation",
	ErrCodeTooLarge:             "structure mass is outside the accepted range",
	ErrCodeUnsupportedStructure: "structure is not supported by the calculator",

	ErrCodeStandardizerUnavailable: "structure standardizer unavailable",
	ErrCodeMalformedResponse:       "malformed standardizer response",

	ErrCodeUnknownCalculator:   "unknown calculator",
	ErrCodeUnsupportedProperty: "property not supported by calculator",
	ErrCodeCalculatorFailed:    "calculator could not process chemical",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
