// Package apperror defines the error taxonomy of the matching engine.
//
// Every failure that leaves a package boundary is an *Error with a stable
// ErrorCode; callers branch on the code with Is, never on message text.
// GRPCStatus lets an outer gRPC layer surface the same codes unchanged.
package apperror

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ErrorCode string

const (
	// Input validation
	CodeInvalidPatient       ErrorCode = "INVALID_PATIENT"
	CodeDuplicatePatient     ErrorCode = "DUPLICATE_PATIENT"
	CodeDanglingPairing      ErrorCode = "DANGLING_PAIRING"
	CodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	CodeInvalidHLACode       ErrorCode = "INVALID_HLA_CODE"

	// Solver
	CodeUnsupportedCombination ErrorCode = "UNSUPPORTED_COMBINATION"
	CodeConsistencyFault       ErrorCode = "CONSISTENCY_FAULT"
	CodeEnumerationCap         ErrorCode = "ENUMERATION_CAP"
	CodeLockUnavailable        ErrorCode = "LOCK_UNAVAILABLE"

	// Storage
	CodeStorage  ErrorCode = "STORAGE_ERROR"
	CodeNotFound ErrorCode = "NOT_FOUND"

	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput        ErrorCode = "NIL_INPUT"
	CodeTimeout         ErrorCode = "TIMEOUT"
)

// grpcCodes maps error codes to transport codes; anything absent is Internal.
var grpcCodes = map[ErrorCode]codes.Code{
	CodeInvalidPatient:         codes.InvalidArgument,
	CodeDuplicatePatient:       codes.InvalidArgument,
	CodeDanglingPairing:        codes.InvalidArgument,
	CodeInvalidConfiguration:   codes.InvalidArgument,
	CodeInvalidHLACode:         codes.InvalidArgument,
	CodeUnsupportedCombination: codes.InvalidArgument,
	CodeInvalidArgument:        codes.InvalidArgument,
	CodeNilInput:               codes.InvalidArgument,
	CodeNotFound:               codes.NotFound,
	CodeTimeout:                codes.DeadlineExceeded,
	CodeLockUnavailable:        codes.Unavailable,
	CodeEnumerationCap:         codes.ResourceExhausted,
	CodeConsistencyFault:       codes.DataLoss,
}

// Severity orders errors by how the caller should react.
type Severity int

const (
	// SeverityWarning: the result is still usable.
	SeverityWarning Severity = iota
	SeverityError
	// SeverityCritical: corrupted input or state, never retried.
	SeverityCritical
)

var severityNames = [...]string{"warning", "error", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

type Error struct {
	Code     ErrorCode
	Message  string
	Field    string // offending input field, if any
	Details  map[string]any
	Cause    error
	Severity Severity
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
}

func (e *Error) Unwrap() error { return e.Cause }

// GRPCStatus is picked up by status.FromError.
func (e *Error) GRPCStatus() *status.Status {
	c, ok := grpcCodes[e.Code]
	if !ok {
		c = codes.Internal
	}
	return status.New(c, e.Message)
}

func build(code ErrorCode, message string, sev Severity) *Error {
	return &Error{Code: code, Message: message, Details: map[string]any{}, Severity: sev}
}

func New(code ErrorCode, message string) *Error {
	return build(code, message, SeverityError)
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return build(code, fmt.Sprintf(format, args...), SeverityError)
}

func NewWithField(code ErrorCode, message, field string) *Error {
	return New(code, message).WithField(field)
}

func NewWarning(code ErrorCode, message string) *Error {
	return build(code, message, SeverityWarning)
}

func NewCritical(code ErrorCode, message string) *Error {
	return build(code, message, SeverityCritical)
}

// Wrap attaches a code to a foreign error; errors.Is still reaches cause.
func Wrap(cause error, code ErrorCode, message string) *Error {
	e := New(code, message)
	e.Cause = cause
	return e
}

func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// find returns the outermost *Error in err's chain.
func find(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Is reports whether the outermost *Error in the chain carries code.
func Is(err error, code ErrorCode) bool {
	e, ok := find(err)
	return ok && e.Code == code
}

// Code returns CodeInternal for errors outside the taxonomy.
func Code(err error) ErrorCode {
	if e, ok := find(err); ok {
		return e.Code
	}
	return CodeInternal
}

func IsWarning(err error) bool {
	e, ok := find(err)
	return ok && e.Severity == SeverityWarning
}

// IsCritical marks corrupted upstream data; such errors are not retried.
func IsCritical(err error) bool {
	e, ok := find(err)
	return ok && e.Severity == SeverityCritical
}

// ToGRPC leaves status errors as they are and maps foreign errors to Internal.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := find(err); ok {
		return e.GRPCStatus().Err()
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

var (
	ErrNilPool          = New(CodeNilInput, "patient pool is nil")
	ErrNilConfiguration = New(CodeNilInput, "configuration is nil")
	ErrNotFound         = New(CodeNotFound, "pairing result not found")
)

// ValidationErrors collects the findings of a validation pass. Warnings do
// not make the input invalid.
type ValidationErrors struct {
	Errors   []*Error
	Warnings []*Error
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: []*Error{}, Warnings: []*Error{}}
}

// Add files err by its severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
		return
	}
	v.Errors = append(v.Errors, err)
}

func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Add(New(code, message))
}

func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Add(NewWarning(code, message))
}

func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Add(NewWithField(code, message, field))
}

func (v *ValidationErrors) HasErrors() bool   { return len(v.Errors) > 0 }
func (v *ValidationErrors) HasWarnings() bool { return len(v.Warnings) > 0 }
func (v *ValidationErrors) IsValid() bool     { return !v.HasErrors() }

func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

func (v *ValidationErrors) ErrorMessages() []string {
	out := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		out = append(out, e.Error())
	}
	return out
}

// Err is nil for a valid collection. Otherwise it returns one *Error with the
// given code; the first finding is its Cause and all messages are in
// Details["errors"].
func (v *ValidationErrors) Err(code ErrorCode, message string) error {
	if v.IsValid() {
		return nil
	}
	return Wrap(v.Errors[0], code, message).WithDetails("errors", v.ErrorMessages())
}
