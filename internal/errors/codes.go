package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a failure inside the resolution core
type Kind int

const (
	KindInternal Kind = iota
	KindParseError
	KindCacheFailure
	KindNotFound
	KindAmbiguousResult
	KindDataInconsistency
	KindLogicError
	KindTimeout
	KindUnavailable
	KindCanceled
	KindInvalidArgument
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindParseError:        "parse_error",
	KindCacheFailure:      "cache_failure",
	KindNotFound:          "not_found",
	KindAmbiguousResult:   "ambiguous_result",
	KindDataInconsistency: "data_inconsistency",
	KindLogicError:        "logic_error",
	KindTimeout:           "timeout",
	KindUnavailable:       "unavailable",
	KindCanceled:          "canceled",
	KindInvalidArgument:   "invalid_argument",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Severity of a reported failure, ordered from least to most severe
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "trace"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "fatal"
	}
}

// HTTP-like status codes carried by errors and accumulated by resolution
const (
	StatusOK                 = http.StatusOK
	StatusBadRequest         = http.StatusBadRequest
	StatusNotFound           = http.StatusNotFound
	StatusInternalError      = http.StatusInternalServerError
	StatusBadGateway         = http.StatusBadGateway
	StatusServiceUnavailable = http.StatusServiceUnavailable
	StatusGatewayTimeout     = http.StatusGatewayTimeout
)

// Error is a structured failure with kind, status and context
type Error struct {
	Kind     Kind
	Status   int
	Severity Severity
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// ToGRPCStatus converts the error to a gRPC status
func (e *Error) ToGRPCStatus() *status.Status {
	return status.New(e.grpcCode(), e.Error())
}

func (e *Error) grpcCode() codes.Code {
	switch e.Kind {
	case KindParseError, KindInvalidArgument:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindAmbiguousResult:
		return codes.FailedPrecondition
	case KindDataInconsistency:
		return codes.DataLoss
	case KindTimeout:
		return codes.DeadlineExceeded
	case KindUnavailable, KindCacheFailure:
		return codes.Unavailable
	case KindCanceled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// New creates a new Error with the default status of its kind
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:     kind,
		Status:   defaultStatus(kind),
		Severity: defaultSeverity(kind),
		Message:  message,
		Details:  make(map[string]interface{}),
		Cause:    cause,
	}
}

func defaultStatus(kind Kind) int {
	switch kind {
	case KindParseError, KindInvalidArgument:
		return StatusBadRequest
	case KindNotFound:
		return StatusNotFound
	case KindDataInconsistency:
		return StatusBadGateway
	case KindUnavailable:
		return StatusServiceUnavailable
	case KindTimeout:
		return StatusGatewayTimeout
	default:
		return StatusInternalError
	}
}

func defaultSeverity(kind Kind) Severity {
	switch kind {
	case KindNotFound, KindParseError, KindCanceled:
		return SeverityInfo
	case KindCacheFailure, KindTimeout, KindInvalidArgument:
		return SeverityWarning
	case KindLogicError:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// Convenience constructors for the resolution taxonomy

func ParseFailed(text string, cause error) *Error {
	return New(KindParseError, fmt.Sprintf("cannot parse seq_id %q", text), cause).
		WithDetail("seq_id", text)
}

func CacheFailed(operation string, cause error) *Error {
	return New(KindCacheFailure, fmt.Sprintf("cache %s failed", operation), cause).
		WithDetail("operation", operation)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func Ambiguous(message string) *Error {
	return New(KindAmbiguousResult, message, nil)
}

func DataInconsistency(message string) *Error {
	return New(KindDataInconsistency, message, nil)
}

func Logic(message string) *Error {
	return New(KindLogicError, message, nil)
}

func Timeout(message string) *Error {
	return New(KindTimeout, message, nil)
}

func Unavailable(message string, cause error) *Error {
	return New(KindUnavailable, message, cause)
}

func Canceled(message string) *Error {
	return New(KindCanceled, message, nil)
}

func InvalidArgument(message string) *Error {
	return New(KindInvalidArgument, message, nil)
}

// From converts any error into an *Error, keeping typed errors as is
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, context.Canceled):
		return New(KindCanceled, "query canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return New(KindTimeout, "query timed out", err)
	}
	return New(KindInternal, "storage query failed", err)
}

// KindOf extracts the kind from an error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusOf extracts the status code from an error
func StatusOf(err error) int {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusInternalError
}

// IsHardError reports whether the error counts against error-rate alerting.
// Timeouts and cancellations are recorded but excluded.
func IsHardError(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindTimeout, KindCanceled, KindNotFound:
		return false
	default:
		return true
	}
}
