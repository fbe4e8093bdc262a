// Package apperror provides the error taxonomy shared by every layer of
// the QC engine, plus the translation to gRPC status codes at the
// facade boundary.
package apperror

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode identifies the kind of failure, independent of the layer
// that raised it.
type ErrorCode string

const (
	// Data switch / connector errors (§7).
	CodeInvalidDataSource  ErrorCode = "INVALID_DATA_SOURCE"
	CodeInvalidSeriesID    ErrorCode = "INVALID_SERIES_ID"
	CodeInvalidDataID      ErrorCode = "INVALID_DATA_ID"
	CodeInvalidExtraSpec   ErrorCode = "INVALID_EXTRA_SPEC"
	CodeUnimplementedSeries ErrorCode = "UNIMPLEMENTED_SERIES"
	CodeUnimplementedSpatial ErrorCode = "UNIMPLEMENTED_SPATIAL"
	CodeIO                 ErrorCode = "IO"
	CodeJoin                ErrorCode = "JOIN"
	CodeConnectorOther      ErrorCode = "CONNECTOR_OTHER"

	// Scheduler / pipeline errors (§7).
	CodeInvalidArg      ErrorCode = "INVALID_ARG"
	CodeTestNotInDag    ErrorCode = "TEST_NOT_IN_DAG"

	// Check-harness errors (§7, §4.4).
	CodeInvalidTestName   ErrorCode = "INVALID_TEST_NAME"
	CodeFailedTest        ErrorCode = "FAILED_TEST"
	CodeUnknownFlag       ErrorCode = "UNKNOWN_FLAG"
	CodeUnimplementedCheck ErrorCode = "UNIMPLEMENTED_CHECK"

	// General.
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// CodeAborted marks a request that failed partway through a
	// response stream, as opposed to being rejected before it started.
	CodeAborted ErrorCode = "ABORTED"
)

// Error is the structured error carried through the engine. It wraps an
// optional cause and maps cleanly onto a gRPC status at the facade.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// GRPCStatus lets status.FromError / status.Code read the error
// directly.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.grpcCode(), e.Message)
}

func (e *Error) grpcCode() codes.Code {
	switch e.Code {
	case CodeInvalidDataSource, CodeNotFound:
		return codes.NotFound
	case CodeInvalidSeriesID, CodeInvalidDataID, CodeInvalidExtraSpec,
		CodeInvalidArg, CodeInvalidArgument, CodeInvalidTestName, CodeTestNotInDag:
		return codes.InvalidArgument
	case CodeUnimplementedSeries, CodeUnimplementedSpatial, CodeUnimplementedCheck:
		return codes.Unimplemented
	case CodeUnauthenticated:
		return codes.Unauthenticated
	case CodePermissionDenied:
		return codes.PermissionDenied
	case CodeFailedTest, CodeUnknownFlag, CodeAborted:
		return codes.Aborted
	case CodeIO, CodeJoin, CodeConnectorOther:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// New creates an error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Details: make(map[string]any)}
}

// NewWithField is New plus the offending field name.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{Code: code, Message: message, Field: field, Details: make(map[string]any)}
}

// Wrap attaches a code/message to an underlying cause.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Details: make(map[string]any)}
}

// WithDetails attaches a key/value pair and returns the same error.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from err, defaulting to CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ToGRPC converts err into a gRPC status error, passing through errors
// that already carry a GRPCStatus() and wrapping anything else as
// Internal.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.GRPCStatus().Err()
	}
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	return status.New(codes.Internal, err.Error()).Err()
}
