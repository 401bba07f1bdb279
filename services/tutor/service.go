// Package tutor orchestrates one chat exchange: scope gate, retrieval, prompt and completion.
package tutor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/services"
	"github.com/upb/physics-tutor/services/chunker"
	"github.com/upb/physics-tutor/services/completion"
	"github.com/upb/physics-tutor/services/content"
	"github.com/upb/physics-tutor/services/prompt"
	"github.com/upb/physics-tutor/services/retrieval"
	"github.com/upb/physics-tutor/services/scope"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single completion call
const DefaultTimeout = 30 * time.Second

// Classifier decides whether a query is in scope
type Classifier interface {
	Classify(query string) scope.Decision
}

// Config holds the pipeline parameters
type Config struct {
	Chunking    chunker.Config
	TopK        int
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() Config {
	return Config{
		Chunking:    chunker.DefaultConfig(),
		TopK:        retrieval.DefaultTopK,
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		Timeout:     DefaultTimeout,
	}
}

// Validate checks the pipeline parameters
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if c.TopK <= 0 {
		return services.NewDomainError(services.ErrorTypeConfiguration, "retrieval top-k must be positive", nil).
			WithDetail("top_k", c.TopK)
	}
	if c.Model == "" {
		return services.NewDomainError(services.ErrorTypeConfiguration, "completion model is required", nil)
	}
	return nil
}

// Reply is the outcome of one exchange. Refusals are replies, not errors.
type Reply struct {
	Text      string
	Refused   bool
	Reason    string
	Sources   []string
	RequestID string
}

// Service runs the tutor pipeline. It holds no per-request state and is safe for concurrent use.
type Service struct {
	classifier Classifier
	loader     content.Loader
	provider   completion.Provider
	cfg        Config
	logger     *zap.Logger
}

// NewService creates a new tutor service
func NewService(classifier Classifier, loader content.Loader, provider completion.Provider, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		classifier: classifier,
		loader:     loader,
		provider:   provider,
		cfg:        cfg,
		logger:     logger,
	}
}

// Provider returns the completion provider in use
func (s *Service) Provider() completion.Provider {
	return s.provider
}

// Reply answers the most recent user message of the conversation
func (s *Service) Reply(ctx context.Context, messages []models.ChatMessage) (*Reply, error) {
	requestID := models.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	log := s.logger.With(zap.String("request_id", requestID))

	// Step 1: pick the question
	if len(messages) == 0 {
		return nil, services.ErrNoMessages
	}
	query, ok := models.LastUserMessage(messages)
	if !ok {
		return nil, services.ErrNoUserMessage
	}
	log.Debug("step 1: selected user message", zap.Int("turns", len(messages)), zap.Int("query_len", len(query)))

	// Step 2: scope gate
	decision := s.classifier.Classify(query)
	log.Debug("step 2: scope decision", zap.Bool("allowed", decision.Allowed), zap.String("reason", decision.Reason))
	if !decision.Allowed {
		log.Info("query refused", zap.String("reason", decision.Reason))
		return &Reply{
			Text:      decision.Refusal,
			Refused:   true,
			Reason:    decision.Reason,
			Sources:   []string{},
			RequestID: requestID,
		}, nil
	}

	// Steps 3-5: load, chunk, retrieve
	ranked, err := s.retrieve(ctx, log, query, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	// Step 6: prompts
	system := prompt.BuildSystemPrompt()
	user := prompt.BuildUserPrompt(query, ranked)
	log.Debug("step 6: prompts built", zap.Int("user_prompt_len", len(user)))

	// Step 7: completion
	text, err := s.complete(ctx, log, system, user)
	if err != nil {
		return nil, err
	}

	sources := models.Sources(ranked)
	return &Reply{
		Text:      text,
		Reason:    decision.Reason,
		Sources:   sources,
		RequestID: requestID,
	}, nil
}

// Retrieve runs load, chunk and retrieval for query without calling the completion service
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	return s.retrieve(ctx, s.logger, query, k)
}

func (s *Service) retrieve(ctx context.Context, log *zap.Logger, query string, k int) ([]models.ScoredChunk, error) {
	docs, err := s.loader.Load(ctx)
	if err != nil {
		log.Error("failed to load lessons", zap.Error(err))
		if services.IsLoadError(err) {
			return nil, err
		}
		return nil, services.WrapLoad("failed to load lessons", err)
	}
	log.Debug("step 3: lessons loaded", zap.Int("documents", len(docs)))

	chunks, err := chunker.ChunkAll(docs, s.cfg.Chunking)
	if err != nil {
		log.Error("failed to chunk lessons", zap.Error(err), zap.Stringer("chunking", s.cfg.Chunking))
		return nil, err
	}
	log.Debug("step 4: lessons chunked", zap.Int("chunks", len(chunks)))

	ranked := retrieval.Retrieve(query, chunks, k)
	log.Debug("step 5: chunks retrieved", zap.Int("results", len(ranked)), zap.Int("k", k))
	return ranked, nil
}

func (s *Service) complete(ctx context.Context, log *zap.Logger, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req := &completion.Request{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Messages: []completion.Message{
			{Role: completion.RoleSystem, Content: system},
			{Role: completion.RoleUser, Content: user},
		},
	}

	start := time.Now()
	log.Debug("step 7: invoking completion service", zap.String("provider", s.provider.Name()), zap.String("model", req.Model))
	resp, err := s.provider.Complete(ctx, req)
	latency := time.Since(start)
	if err != nil {
		fields := []zap.Field{
			zap.String("provider", s.provider.Name()),
			zap.Duration("latency", latency),
			zap.Bool("retryable", completion.IsRetryable(err)),
			zap.Error(err),
		}
		var provErr *completion.ProviderError
		if errors.As(err, &provErr) {
			fields = append(fields, zap.String("code", provErr.Code), zap.Int("status_code", provErr.StatusCode))
		}
		log.Error("completion failed", fields...)
		if completion.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.NewDomainError(services.ErrorTypeExternal, services.ErrCompletionTimeout.Message, err)
		}
		return "", services.WrapExternal(services.ErrCompletionUnavailable.Message, err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		log.Error("completion returned no text",
			zap.String("provider", s.provider.Name()),
			zap.String("finish_reason", resp.FinishReason),
		)
		return "", services.ErrEmptyCompletion
	}

	log.Info("completion succeeded",
		zap.String("provider", s.provider.Name()),
		zap.String("model", resp.Model),
		zap.Duration("latency", latency),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", resp.FinishReason),
	)
	return resp.Text, nil
}
