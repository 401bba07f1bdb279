package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeLoad, "content missing", baseErr)

	assert.Equal(t, ErrorTypeLoad, domainErr.Type)
	assert.Equal(t, "content missing", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeLoad,
				Message: "lesson content unavailable",
				Err:     errors.New("permission denied"),
			},
			wantMsg: "load: lesson content unavailable (permission denied)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "malformed chat request",
			},
			wantMsg: "validation: malformed chat request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewDomainError(ErrorTypeExternal, "upstream 500", nil),
			target: ErrCompletionUnavailable,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrCompletionUnavailable,
			want:   false,
		},
		{
			name:   "wrapped domain error",
			err:    fmt.Errorf("pipeline: %w", ErrInvalidChunking),
			target: ErrInvalidChunking,
			want:   true,
		},
		{
			name:   "plain error",
			err:    errors.New("plain"),
			target: ErrInternal,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := ErrInvalidChunking.WithDetail("size", 10).WithDetail("overlap", 10)

	assert.Equal(t, 10, err.Details["size"])
	assert.Equal(t, 10, err.Details["overlap"])
	assert.Empty(t, ErrInvalidChunking.Details, "sentinel must not be mutated")
	assert.True(t, errors.Is(err, ErrInvalidChunking))
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", ErrNoUserMessage, IsValidationError},
		{"configuration", ErrInvalidChunking, IsConfigurationError},
		{"load", WrapLoad("read dir", errors.New("enoent")), IsLoadError},
		{"rate limit", ErrRateLimitExceeded, IsRateLimitError},
		{"internal", WrapInternal("boom", nil), IsInternalError},
		{"external", ErrCompletionTimeout, IsExternalError},
	}

	checkers := []func(error) bool{
		IsValidationError,
		IsConfigurationError,
		IsLoadError,
		IsRateLimitError,
		IsInternalError,
		IsExternalError,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))

			matches := 0
			for _, c := range checkers {
				if c(tt.err) {
					matches++
				}
			}
			assert.Equal(t, 1, matches, "exactly one checker should match")
		})
	}

	for _, c := range checkers {
		assert.False(t, c(errors.New("plain")))
		assert.False(t, c(nil))
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeLoad, GetErrorType(ErrContentUnavailable))
	assert.Equal(t, ErrorTypeExternal, GetErrorType(fmt.Errorf("x: %w", ErrEmptyCompletion)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestGetErrorDetails(t *testing.T) {
	err := ErrMalformedRequest.WithDetail("messages", "messages is required")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "messages is required", details["messages"])
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}

func TestGetErrorMessage(t *testing.T) {
	err := WrapExternal("completion service unavailable", errors.New("dial tcp: refused"))

	assert.Equal(t, "completion service unavailable", GetErrorMessage(err))
	assert.Empty(t, GetErrorMessage(errors.New("plain")))
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("cause")

	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"WrapError", WrapError(ErrorTypeRateLimit, "slow down", base), ErrorTypeRateLimit},
		{"WrapValidation", WrapValidation("bad body", base), ErrorTypeValidation},
		{"WrapConfiguration", WrapConfiguration("bad config", base), ErrorTypeConfiguration},
		{"WrapLoad", WrapLoad("read failed", base), ErrorTypeLoad},
		{"WrapInternal", WrapInternal("oops", base), ErrorTypeInternal},
		{"WrapExternal", WrapExternal("upstream", base), ErrorTypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
			assert.ErrorIs(t, tt.err, base)
		})
	}
}
