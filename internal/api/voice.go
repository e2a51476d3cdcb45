package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milady-ai/streamnode/internal/api/models"
)

// registerVoiceRoutes registers the narration endpoints
func (s *Server) registerVoiceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-voice-settings",
		Method:      http.MethodGet,
		Path:        "/stream/voice",
		Summary:     "Get Voice Settings",
		Description: "Get the persisted narration settings",
		Tags:        []string{"voice"},
	}, func(ctx context.Context, input *struct{}) (*models.VoiceSettingsResponse, error) {
		voiceSettings := s.opts.Store.Voice()
		return &models.VoiceSettingsResponse{
			Body: models.VoiceSettingsData{
				Enabled:   voiceSettings.Enabled,
				AutoSpeak: voiceSettings.AutoSpeak,
				Provider:  voiceSettings.Provider,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-voice-settings",
		Method:      http.MethodPost,
		Path:        "/stream/voice",
		Summary:     "Update Voice Settings",
		Description: "Update the persisted narration settings",
		Tags:        []string{"voice"},
		Errors:      []int{400, 500},
	}, func(ctx context.Context, input *models.VoiceSettingsRequest) (*models.VoiceSettingsResponse, error) {
		voiceObj := map[string]any{"enabled": input.Body.Enabled}
		if input.Body.AutoSpeak != nil {
			voiceObj["autoSpeak"] = *input.Body.AutoSpeak
		}
		if input.Body.Provider != nil {
			voiceObj["provider"] = *input.Body.Provider
		}

		// Merge with the other persisted keys so a voice update does not
		// drop the theme or avatar selection.
		raw := map[string]any{"voice": voiceObj}
		current := s.opts.Store.Settings()
		if current.Theme != nil {
			raw["theme"] = *current.Theme
		}
		if current.AvatarIndex != nil {
			raw["avatarIndex"] = float64(*current.AvatarIndex)
		}

		saved, err := s.opts.Store.SaveSettings(raw)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		out := models.VoiceSettingsData{}
		if saved.Voice != nil {
			out.Enabled = saved.Voice.Enabled
			out.AutoSpeak = saved.Voice.AutoSpeak
			out.Provider = saved.Voice.Provider
		}
		return &models.VoiceSettingsResponse{Body: out}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "speak",
		Method:      http.MethodPost,
		Path:        "/stream/voice/speak",
		Summary:     "Speak",
		Description: "Narrate a text over the active stream",
		Tags:        []string{"voice"},
		Errors:      []int{400, 429},
	}, func(ctx context.Context, input *models.SpeakRequest) (*models.SpeakResponse, error) {
		if err := s.opts.Gate.Speak(context.WithoutCancel(ctx), input.Body.Text); err != nil {
			return nil, s.mapPipelineError(err)
		}
		return &models.SpeakResponse{Body: models.SpeakData{Speaking: true}}, nil
	})
}
