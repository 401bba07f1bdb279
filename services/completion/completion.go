// Package completion defines the contract with the language-model completion service.
package completion

import (
	"context"
	"errors"
	"net"
	"time"
)

// Message roles understood by every provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is an opaque completion service
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic")
	Name() string

	// Complete performs a single chat completion. Implementations never retry.
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Request is a provider-neutral chat completion request
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is a provider-neutral completion result
type Response struct {
	Text         string        `json:"text"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Latency      time.Duration `json:"latency"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config holds common configuration for providers
type Config struct {
	APIKey  string
	BaseURL string

	// Timeout bounds the HTTP client; callers also pass a context deadline
	Timeout time.Duration

	Headers map[string]string
}

// Error codes shared by the adapters
const (
	CodeNotConfigured = "NOT_CONFIGURED"
	CodeMarshal       = "MARSHAL_ERROR"
	CodeRequest       = "REQUEST_ERROR"
	CodeHTTP          = "HTTP_ERROR"
	CodeRead          = "READ_ERROR"
	CodeUnmarshal     = "UNMARSHAL_ERROR"
	CodeUnknown       = "UNKNOWN_ERROR"
	CodeEmpty         = "EMPTY_COMPLETION"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// IsTimeout reports whether err is a deadline or network timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Unconfigured stands in for a provider whose credentials are missing.
// Every call fails, which readiness checks surface to operators.
type Unconfigured struct {
	name   string
	reason string
}

// NewUnconfigured creates a placeholder provider
func NewUnconfigured(name, reason string) *Unconfigured {
	return &Unconfigured{name: name, reason: reason}
}

// Name returns the provider name
func (u *Unconfigured) Name() string {
	return u.name
}

// Reason explains why the provider is unusable
func (u *Unconfigured) Reason() string {
	return u.reason
}

// Complete always fails
func (u *Unconfigured) Complete(ctx context.Context, req *Request) (*Response, error) {
	return nil, NewProviderError(u.name, CodeNotConfigured, u.reason, 0, false, nil)
}

// IsConfigured reports whether p can serve requests
func IsConfigured(p Provider) bool {
	if p == nil {
		return false
	}
	_, unconfigured := p.(*Unconfigured)
	return !unconfigured
}
