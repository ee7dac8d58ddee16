package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeConsistencyFault, "round walk broke"),
			expected: "[CONSISTENCY_FAULT] round walk broke",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeInvalidConfiguration, "must be positive", "max_cycle_length"),
			expected: "[INVALID_CONFIGURATION] must be positive (field: max_cycle_length)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeStorage, "wrapped error")

	assert.Same(t, cause, err.Unwrap())
	assert.ErrorIs(t, fmt.Errorf("outer: %w", err), cause)
}

func TestError_GRPCStatus(t *testing.T) {
	tests := []struct {
		code         ErrorCode
		expectedCode codes.Code
	}{
		{CodeUnsupportedCombination, codes.InvalidArgument},
		{CodeInvalidConfiguration, codes.InvalidArgument},
		{CodeNotFound, codes.NotFound},
		{CodeConsistencyFault, codes.DataLoss},
		{CodeEnumerationCap, codes.ResourceExhausted},
		{CodeLockUnavailable, codes.Unavailable},
		{CodeStorage, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			st := New(tt.code, "msg").GRPCStatus()
			assert.Equal(t, tt.expectedCode, st.Code())
		})
	}
}

func TestSeverityHelpers(t *testing.T) {
	critical := NewCritical(CodeConsistencyFault, "bad graph")
	warning := NewWarning(CodeEnumerationCap, "cap reached")
	plain := New(CodeInternal, "x")

	assert.True(t, IsCritical(fmt.Errorf("ctx: %w", critical)))
	assert.False(t, IsCritical(plain))
	assert.True(t, IsWarning(warning))
	assert.False(t, IsWarning(errors.New("foreign")))
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "unknown", Severity(42).String())
}

func TestIsAndCode(t *testing.T) {
	err := fmt.Errorf("solve: %w", New(CodeUnsupportedCombination, "nope"))

	assert.True(t, Is(err, CodeUnsupportedCombination))
	assert.False(t, Is(err, CodeNotFound))
	assert.Equal(t, CodeUnsupportedCombination, Code(err))
	assert.Equal(t, CodeInternal, Code(errors.New("plain")))
}

func TestToGRPC(t *testing.T) {
	assert.NoError(t, ToGRPC(nil))

	st, ok := status.FromError(ToGRPC(New(CodeNotFound, "missing")))
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())

	already := status.Error(codes.Canceled, "canceled")
	assert.Equal(t, already, ToGRPC(already))

	st, ok = status.FromError(ToGRPC(errors.New("boom")))
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err(CodeInvalidConfiguration, "invalid"))

	v.AddWarning(CodeInvalidHLACode, "unparseable code")
	assert.True(t, v.IsValid())
	assert.True(t, v.HasWarnings())

	v.AddErrorWithField(CodeInvalidConfiguration, "must be positive", "max_cycle_length")
	other := NewValidationErrors()
	other.AddError(CodeInvalidConfiguration, "negative score")
	v.Merge(other)
	v.Merge(nil)

	require.True(t, v.HasErrors())
	assert.Len(t, v.ErrorMessages(), 2)

	err := v.Err(CodeInvalidConfiguration, "configuration is invalid")
	require.Error(t, err)
	assert.True(t, Is(err, CodeInvalidConfiguration))

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Details["errors"], 2)
}
