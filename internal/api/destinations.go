package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milady-ai/streamnode/internal/api/models"
)

// registerDestinationRoutes registers the destination endpoints
func (s *Server) registerDestinationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-destinations",
		Method:      http.MethodGet,
		Path:        "/streaming/destinations",
		Summary:     "List Destinations",
		Description: "List configured streaming destinations",
		Tags:        []string{"destinations"},
	}, func(ctx context.Context, input *struct{}) (*models.DestinationListResponse, error) {
		infos := s.opts.Registry.List()
		out := make([]models.DestinationInfo, len(infos))
		for i, info := range infos {
			out[i] = models.DestinationInfo{ID: info.ID, Name: info.Name, Active: info.Active}
		}
		return &models.DestinationListResponse{
			Body: models.DestinationListData{Destinations: out},
		}, nil
	})

	// Selection only accepts the already-active destination today. The
	// endpoint shape is kept for multi-destination support, so a mismatch
	// is a 404 rather than a switch.
	huma.Register(s.api, huma.Operation{
		OperationID: "select-destination",
		Method:      http.MethodPost,
		Path:        "/streaming/destination",
		Summary:     "Select Destination",
		Description: "Select the streaming destination by id",
		Tags:        []string{"destinations"},
		Errors:      []int{400, 404},
	}, func(ctx context.Context, input *models.DestinationSelectRequest) (*models.DestinationSelectResponse, error) {
		id := input.Body.DestinationID
		if id == "" {
			return nil, huma.Error400BadRequest("destinationId is required")
		}
		if id != s.opts.Registry.ActiveID() {
			return nil, huma.Error404NotFound("unknown destination: " + id)
		}
		dest := s.opts.Registry.Active()
		return &models.DestinationSelectResponse{
			Body: models.DestinationInfo{ID: dest.ID(), Name: dest.Name(), Active: true},
		}, nil
	})
}
