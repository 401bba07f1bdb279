// Package anthropic adapts the Anthropic Messages API to completion.Provider.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/physics-tutor/services/completion"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024

	// anthropicVersion is the required API version header
	anthropicVersion = "2023-06-01"

	maxResponseBytes = 4 << 20
)

// Adapter implements completion.Provider for the Anthropic Messages API
type Adapter struct {
	config     completion.Config
	httpClient *http.Client
}

// NewAdapter creates a new Anthropic adapter
func NewAdapter(config completion.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "anthropic"
}

// messagesRequest is the /v1/messages request format
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the /v1/messages response format
type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// buildRequest moves system messages into the top-level system field
func (a *Adapter) buildRequest(req *completion.Request) messagesRequest {
	out := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    make([]messagesMessage, 0, len(req.Messages)),
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultMaxTokens
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == completion.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		out.Messages = append(out.Messages, messagesMessage{Role: msg.Role, Content: msg.Content})
	}
	out.System = strings.Join(system, "\n\n")

	return out
}

// Complete performs one Messages API call
func (a *Adapter) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	startTime := time.Now()

	body, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, completion.NewProviderError(a.Name(), completion.CodeMarshal, "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, completion.NewProviderError(a.Name(), completion.CodeRequest, "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, completion.NewProviderError(a.Name(), completion.CodeHTTP, "HTTP request failed", 0, true, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, completion.NewProviderError(a.Name(), completion.CodeRead, "failed to read response", resp.StatusCode, false, err)
	}

	var result messagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, completion.NewProviderError(a.Name(), completion.CodeUnknown, http.StatusText(resp.StatusCode), resp.StatusCode,
				resp.StatusCode >= 500, errors.New(strings.TrimSpace(string(respBody))))
		}
		return nil, completion.NewProviderError(a.Name(), completion.CodeUnmarshal, "failed to unmarshal response", resp.StatusCode, false, err)
	}

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		code, message := completion.CodeUnknown, http.StatusText(resp.StatusCode)
		if result.Error != nil {
			code, message = result.Error.Type, result.Error.Message
		}
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, completion.NewProviderError(a.Name(), code, message, resp.StatusCode, retryable, nil)
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &completion.Response{
		Text:         text.String(),
		Model:        result.Model,
		FinishReason: result.StopReason,
		Usage: completion.Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
		Latency: time.Since(startTime),
	}, nil
}
