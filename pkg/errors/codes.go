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

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"

	ErrCodeUnknown ErrorCode = "COMMON_000"
	CodeOK         ErrorCode = "OK"
)

// Script module error codes.
const (
	ErrCodeScriptNotFound       ErrorCode = "SCRIPT_001"
	ErrCodeScriptParseFailed    ErrorCode = "SCRIPT_002"
	ErrCodeScriptStatusInvalid  ErrorCode = "SCRIPT_003"
	ErrCodeScriptFormatUnknown  ErrorCode = "SCRIPT_004"
	ErrCodeScriptAlreadyExists  ErrorCode = "SCRIPT_005"
	ErrCodeScriptLocked         ErrorCode = "SCRIPT_006"
	ErrCodeScriptUploadRejected ErrorCode = "SCRIPT_007"
)

// Element module error codes.
const (
	ErrCodeElementNotFound    ErrorCode = "ELEM_001"
	ErrCodeElementArchived    ErrorCode = "ELEM_002"
	ErrCodeElementNameEmpty   ErrorCode = "ELEM_003"
	ErrCodeElementTypeInvalid ErrorCode = "ELEM_004"
)

// Matching / reconciliation error codes.
const (
	ErrCodeMatchNotFound        ErrorCode = "MATCH_001"
	ErrCodeMatchAlreadyResolved ErrorCode = "MATCH_002"
	ErrCodeDecisionInvalid      ErrorCode = "MATCH_003"
	ErrCodeReconcileFailed      ErrorCode = "MATCH_004"
)

// Storage / source error codes.
const (
	ErrCodeObjectNotFound  ErrorCode = "SRC_001"
	ErrCodeStorageError    ErrorCode = "SRC_002"
	ErrCodeSourceRejected  ErrorCode = "SRC_003"
	ErrCodeQueueError      ErrorCode = "SRC_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeScriptNotFound:       http.StatusNotFound,
	ErrCodeScriptParseFailed:    http.StatusUnprocessableEntity,
	ErrCodeScriptStatusInvalid:  http.StatusConflict,
	ErrCodeScriptFormatUnknown:  http.StatusUnprocessableEntity,
	ErrCodeScriptAlreadyExists:  http.StatusConflict,
	ErrCodeScriptLocked:         http.StatusConflict,
	ErrCodeScriptUploadRejected: http.StatusBadRequest,

	ErrCodeElementNotFound:    http.StatusNotFound,
	ErrCodeElementArchived:    http.StatusConflict,
	ErrCodeElementNameEmpty:   http.StatusBadRequest,
	ErrCodeElementTypeInvalid: http.StatusBadRequest,

	ErrCodeMatchNotFound:        http.StatusNotFound,
	ErrCodeMatchAlreadyResolved: http.StatusConflict,
	ErrCodeDecisionInvalid:      http.StatusUnprocessableEntity,
	ErrCodeReconcileFailed:      http.StatusInternalServerError,

	ErrCodeObjectNotFound: http.StatusNotFound,
	ErrCodeStorageError:   http.StatusBadGateway,
	ErrCodeSourceRejected: http.StatusBadRequest,
	ErrCodeQueueError:     http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeScriptNotFound:       "script not found",
	ErrCodeScriptParseFailed:    "failed to parse script document",
	ErrCodeScriptStatusInvalid:  "script is not in the expected lifecycle state",
	ErrCodeScriptFormatUnknown:  "unrecognized script document format",
	ErrCodeScriptAlreadyExists:  "script already exists",
	ErrCodeScriptLocked:         "script is being reconciled by another run",
	ErrCodeScriptUploadRejected: "script upload rejected",

	ErrCodeElementNotFound:    "element not found",
	ErrCodeElementArchived:    "element is archived",
	ErrCodeElementNameEmpty:   "element name must not be empty",
	ErrCodeElementTypeInvalid: "invalid element type",

	ErrCodeMatchNotFound:        "revision match not found",
	ErrCodeMatchAlreadyResolved: "revision match already resolved",
	ErrCodeDecisionInvalid:      "invalid reconciliation decision",
	ErrCodeReconcileFailed:      "revision reconciliation failed",

	ErrCodeObjectNotFound: "stored object not found",
	ErrCodeStorageError:   "object storage error",
	ErrCodeSourceRejected: "source document rejected",
	ErrCodeQueueError:     "task queue error",
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
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
