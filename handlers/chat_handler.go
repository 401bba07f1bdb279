package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/physics-tutor/middleware"
	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/services/tutor"
	"github.com/upb/physics-tutor/utils"
	"go.uber.org/zap"
)

const (
	// MaxMessages bounds the conversation length accepted per request
	MaxMessages = 50
	// MaxContentLength bounds a single message, in characters
	MaxContentLength = 8000
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

// ChatMessage is one conversation turn as sent by the browser
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=8000"`
}

// ChatResponse is returned for both answers and scope refusals
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatService defines the tutor operations the handler needs
type ChatService interface {
	Reply(ctx context.Context, messages []models.ChatMessage) (*tutor.Reply, error)
}

// ChatHandler handles the public chat endpoint
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req ChatRequest
	if err := utils.DecodeJSON(w, r, &req, utils.MaxBodyBytes); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		if errors.Is(err, utils.ErrBodyTooLarge) {
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	reply, err := h.service.Reply(ctx, req.toModels())
	if err != nil {
		HandleServiceError(w, err, h.logger.With(zap.String("request_id", requestID)))
		return
	}

	h.logger.Debug("chat reply sent",
		zap.String("request_id", requestID),
		zap.Bool("refused", reply.Refused),
		zap.Strings("sources", reply.Sources))

	if err := utils.WriteJSON(w, http.StatusOK, ChatResponse{Reply: reply.Text}); err != nil {
		h.logger.Error("failed to write chat response", zap.String("request_id", requestID), zap.Error(err))
	}
}

func (r ChatRequest) toModels() []models.ChatMessage {
	out := make([]models.ChatMessage, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = models.ChatMessage{Role: models.Role(m.Role), Content: m.Content}
	}
	return out
}
