package handlers

import (
	"net/http"

	"github.com/upb/physics-tutor/app"
	"github.com/upb/physics-tutor/services/completion"
	"github.com/upb/physics-tutor/utils"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// StatusResponse describes the running service
type StatusResponse struct {
	Version              string `json:"version"`
	Environment          string `json:"environment"`
	Provider             string `json:"provider"`
	Model                string `json:"model"`
	CompletionConfigured bool   `json:"completion_configured"`
	ContentSource        string `json:"content_source"`
	CacheEnabled         bool   `json:"cache_enabled"`
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := StatusResponse{
			Version:              Version,
			Environment:          deps.Config.Environment,
			Provider:             deps.Provider.Name(),
			Model:                deps.Config.Completion.Model,
			CompletionConfigured: completion.IsConfigured(deps.Provider),
			ContentSource:        deps.Config.Content.Source,
			CacheEnabled:         deps.LessonCache != nil,
		}

		_ = utils.WriteJSON(w, http.StatusOK, response)
	}
}
