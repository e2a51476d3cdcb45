package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milady-ai/streamnode/internal/api/models"
	"github.com/milady-ai/streamnode/internal/destination"
	"github.com/milady-ai/streamnode/internal/events"
	"github.com/milady-ai/streamnode/internal/settings"
)

// registerSettingsRoutes registers the settings and overlay endpoints
func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/stream/settings",
		Summary:     "Get Settings",
		Description: "Get the persisted visual settings",
		Tags:        []string{"settings"},
	}, func(ctx context.Context, input *struct{}) (*models.SettingsResponse, error) {
		return &models.SettingsResponse{Body: s.opts.Store.Settings()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPost,
		Path:        "/stream/settings",
		Summary:     "Update Settings",
		Description: "Validate and persist visual settings",
		Tags:        []string{"settings"},
		Errors:      []int{400},
	}, func(ctx context.Context, input *models.SettingsRequest) (*models.SettingsResponse, error) {
		saved, err := s.opts.Store.SaveSettings(input.Body)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		s.publish(events.SettingsChangedEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)})
		return &models.SettingsResponse{Body: saved}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-overlay",
		Method:      http.MethodGet,
		Path:        "/stream/overlay",
		Summary:     "Get Overlay Layout",
		Description: "Resolve the overlay layout for a destination scope",
		Tags:        []string{"settings"},
	}, func(ctx context.Context, input *models.OverlayGetRequest) (*models.OverlayResponse, error) {
		layout := s.opts.Store.Overlay(input.DestinationID, s.overlayDefaulter(input.DestinationID))
		if layout == nil {
			return &models.OverlayResponse{Body: nil}, nil
		}
		var decoded any
		if err := json.Unmarshal(layout, &decoded); err != nil {
			return nil, huma.Error500InternalServerError("failed to decode overlay layout", err)
		}
		return &models.OverlayResponse{Body: decoded}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "save-overlay",
		Method:      http.MethodPost,
		Path:        "/stream/overlay",
		Summary:     "Save Overlay Layout",
		Description: "Persist an overlay layout for a destination scope",
		Tags:        []string{"settings"},
		Errors:      []int{400},
		// The layout is opaque JSON; the handler validates it itself. Without
		// this, huma validates the body against RawBody's binary-string schema
		// and rejects every JSON object.
		SkipValidateBody: true,
	}, func(ctx context.Context, input *models.OverlaySaveRequest) (*models.OverlayResponse, error) {
		if err := s.opts.Store.SaveOverlay(input.DestinationID, json.RawMessage(input.RawBody)); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		var decoded any
		if err := json.Unmarshal(input.RawBody, &decoded); err != nil {
			return nil, huma.Error400BadRequest("overlay layout is not valid JSON")
		}
		return &models.OverlayResponse{Body: decoded}, nil
	})
}

// overlayDefaulter returns the built-in layout source for the scoped
// destination, falling back to the active one for the global scope.
func (s *Server) overlayDefaulter(destID string) settings.OverlayDefaulter {
	id := destID
	if id == "" {
		id = s.opts.Registry.ActiveID()
	}
	dest, ok := s.opts.Registry.Get(id)
	if !ok {
		return nil
	}
	if defaulter, ok := dest.(destination.OverlayDefaulter); ok {
		return defaulter
	}
	return nil
}
