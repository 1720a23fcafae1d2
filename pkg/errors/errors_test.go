package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	wrapped := stdErrors.New("connection reset")
	err := NewInternalError("exec-1", "request failed", "NETWORK_ERROR", wrapped)

	assert.Equal(t, "[NETWORK_ERROR] request failed: connection reset", err.Error())
	assert.Equal(t, wrapped, stdErrors.Unwrap(err))

	bare := NewValidationError("", "jobName is required", ErrorCodeConfiguration, nil)
	assert.Equal(t, "[CONFIGURATION_ERROR] jobName is required", bare.Error())
	assert.Nil(t, stdErrors.Unwrap(bare))
}

func TestConstructorsSetType(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want ErrorType
	}{
		{"validation", NewValidationError("", "m", "c", nil), ValidationFailed},
		{"not found", NewNotFoundError("", "m", "c", nil), NotFound},
		{"unauthorized", NewUnauthorizedError("", "m", "c", nil), Unauthorized},
		{"permission", NewPermissionError("", "m", "c", nil), PermissionDenied},
		{"bad request", NewBadRequestError("", "m", "c", nil), BadRequest},
		{"parse", NewParseError("", "m", "c", nil), ParseFailed},
		{"internal", NewInternalError("", "m", "c", nil), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Type)
			assert.Equal(t, "c", tt.err.Code)
			assert.Equal(t, "m", tt.err.Message)
		})
	}
}

func TestAppErrorUnwrapChain(t *testing.T) {
	sentinel := stdErrors.New("root cause")
	err := NewInternalError("", "outer", "c", fmt.Errorf("middle: %w", sentinel))

	require.True(t, stdErrors.Is(err, sentinel))

	var appErr *AppError
	wrapped := fmt.Errorf("item 1: %w", err)
	require.True(t, stdErrors.As(wrapped, &appErr))
	assert.Equal(t, "outer", appErr.Message)
}

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "dial tcp: fake" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

var _ net.Error = (*fakeNetError)(nil)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation app error", NewValidationError("", "m", "c", nil), ErrorCodeValidation},
		{"not found app error", NewNotFoundError("", "m", "c", nil), ErrorCodeNotFound},
		{"unauthorized app error", NewUnauthorizedError("", "m", "c", nil), ErrorCodeUnauthorized},
		{"permission app error", NewPermissionError("", "m", "c", nil), ErrorCodeForbidden},
		{"bad request app error", NewBadRequestError("", "m", "c", nil), ErrorCodeBadRequest},
		{"parse app error", NewParseError("", "m", "c", nil), ErrorCodeParse},
		{"internal app error", NewInternalError("", "m", "c", nil), ErrorCodeInternal},
		{"wrapped app error", fmt.Errorf("item 0: %w", NewParseError("", "m", "c", nil)), ErrorCodeParse},
		{"deadline exceeded", context.DeadlineExceeded, ErrorCodeTimeout},
		{"net timeout", &fakeNetError{timeout: true}, ErrorCodeTimeout},
		{"net error", &fakeNetError{}, ErrorCodeNetwork},
		{"timeout message", stdErrors.New("request timed out"), ErrorCodeTimeout},
		{"connection message", stdErrors.New("connection refused"), ErrorCodeNetwork},
		{"invalid message", stdErrors.New("invalid parameter"), ErrorCodeValidation},
		{"not found message", stdErrors.New("job not found"), ErrorCodeNotFound},
		{"unmarshal message", stdErrors.New("unmarshal response body"), ErrorCodeParse},
		{"config message", stdErrors.New("missing configuration"), ErrorCodeConfiguration},
		{"anything else", stdErrors.New("boom"), ErrorCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"net error", &fakeNetError{}, true},
		{"os timeout", &net.OpError{Op: "dial", Err: os.ErrDeadlineExceeded}, true},
		{"internal", NewInternalError("", "m", "c", nil), true},
		{"validation", NewValidationError("", "m", "c", nil), false},
		{"unauthorized", NewUnauthorizedError("", "m", "c", nil), false},
		{"parse", NewParseError("", "m", "c", nil), false},
		{"unknown", stdErrors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestSentinelHelpers(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("pull: %w", ErrTimeout)))
	assert.False(t, IsTimeout(stdErrors.New("other")))

	assert.True(t, IsNotConnected(fmt.Errorf("ping: %w", ErrNotConnected)))
	assert.False(t, IsNotConnected(ErrTimeout))
}
