package handlers

import (
	"net/http"

	"github.com/upb/physics-tutor/services"
	"github.com/upb/physics-tutor/utils"
	"go.uber.org/zap"
)

// Plain-text bodies for server-side failures. Full detail goes to the log only.
const (
	msgInternal              = "internal server error"
	msgCompletionUnavailable = "completion service unavailable"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, services.GetErrorMessage(err), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsConfigurationError(err):
		logger.Error("configuration error", zap.Error(err), zap.Any("details", details))
		if err := utils.WriteError(w, http.StatusUnprocessableEntity, services.GetErrorMessage(err), details); err != nil {
			logger.Error("failed to write configuration error response", zap.Error(err))
		}

	case services.IsRateLimitError(err):
		if err := utils.WriteTooManyRequests(w, services.GetErrorMessage(err), details); err != nil {
			logger.Error("failed to write rate limit response", zap.Error(err))
		}

	case services.IsExternalError(err):
		logger.Error("completion service error", zap.Error(err))
		utils.WriteText(w, http.StatusBadGateway, msgCompletionUnavailable)

	case services.IsLoadError(err), services.IsInternalError(err):
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		utils.WriteText(w, http.StatusInternalServerError, msgInternal)

	default:
		logger.Error("unhandled error type", zap.Error(err))
		utils.WriteText(w, http.StatusInternalServerError, msgInternal)
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
