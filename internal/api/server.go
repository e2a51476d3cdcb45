// Package api is the HTTP control surface for the streaming node.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/milady-ai/streamnode/internal/api/models"
	"github.com/milady-ai/streamnode/internal/destination"
	"github.com/milady-ai/streamnode/internal/encoder"
	"github.com/milady-ai/streamnode/internal/events"
	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/milady-ai/streamnode/internal/pipeline"
	"github.com/milady-ai/streamnode/internal/settings"
	"github.com/milady-ai/streamnode/internal/version"
	"github.com/milady-ai/streamnode/internal/voice"
)

// Options carries the collaborators the server routes requests to.
// Authentication is owned by the deployment gateway, so the server applies
// no auth middleware of its own.
type Options struct {
	Orchestrator      *pipeline.Orchestrator
	Encoder           encoder.Supervisor
	Registry          *destination.Registry
	Store             *settings.Store
	Gate              *voice.Gate
	Bus               *events.Bus
	PrometheusHandler http.Handler
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	opts       *Options
	logger     *slog.Logger
}

// NewServer creates the API server with Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("StreamNode API", version.String())
	config.Info.Description = "Streaming pipeline orchestration API"
	// Empty servers list makes OpenAPI use relative paths, working with any host.
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:    api,
		mux:    mux,
		opts:   opts,
		logger: logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetAPI returns the Huma API instance, used by tests.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// GetMux returns the underlying HTTP ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start starts the HTTP server on the specified address.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open connections.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStreamRoutes()
	s.registerDestinationRoutes()
	s.registerVoiceRoutes()
	s.registerSettingsRoutes()
}

// mapPipelineError maps domain errors to HTTP errors.
func (s *Server) mapPipelineError(err error) error {
	if perr, ok := err.(*pipeline.Error); ok {
		switch perr.Code {
		case pipeline.ErrCodeValidation, pipeline.ErrCodePrecondition:
			return huma.Error400BadRequest(perr.Message, err)
		case pipeline.ErrCodeConflict:
			return huma.Error429TooManyRequests(perr.Message, err)
		case pipeline.ErrCodeNotFound:
			return huma.Error404NotFound(perr.Message, err)
		case pipeline.ErrCodeUpstream:
			return huma.Error500InternalServerError(perr.Message, err)
		default:
			return huma.Error500InternalServerError("internal server error", err)
		}
	}
	return huma.Error500InternalServerError("internal server error", err)
}
