package api

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milady-ai/streamnode/internal/api/models"
	"github.com/milady-ai/streamnode/internal/encoder"
	"github.com/milady-ai/streamnode/internal/events"
)

var (
	resolutionPattern = regexp.MustCompile(`^\d+x\d+$`)
	bitratePattern    = regexp.MustCompile(`^\d+k$`)
)

// registerStreamRoutes registers the stream lifecycle endpoints
func (s *Server) registerStreamRoutes() {
	// Frame ingestion for pipe mode. The body is the raw frame; size is
	// bounded by the gateway in front of us.
	huma.Register(s.api, huma.Operation{
		OperationID: "ingest-frame",
		Method:      http.MethodPost,
		Path:        "/stream/frame",
		Summary:     "Ingest Frame",
		Description: "Push a single raw frame to the running encoder",
		Tags:        []string{"stream"},
		Errors:      []int{400, 500, 503},
	}, func(ctx context.Context, input *models.FrameRequest) (*models.FrameResponse, error) {
		if !s.opts.Encoder.IsRunning() {
			return nil, huma.Error503ServiceUnavailable("stream is not running")
		}
		if len(input.RawBody) == 0 {
			return nil, huma.Error400BadRequest("frame body is empty")
		}
		if err := s.opts.Encoder.WriteFrame(input.RawBody); err != nil {
			return nil, huma.Error500InternalServerError("failed to write frame", err)
		}
		s.publish(events.FrameReceivedEvent{Bytes: len(input.RawBody)})
		return &models.FrameResponse{Body: models.FrameData{Status: "ok"}}, nil
	})

	// Go live against the active destination.
	huma.Register(s.api, huma.Operation{
		OperationID: "go-live",
		Method:      http.MethodPost,
		Path:        "/stream/live",
		Summary:     "Go Live",
		Description: "Start the streaming pipeline against the active destination",
		Tags:        []string{"stream"},
		Errors:      []int{400, 500},
	}, func(ctx context.Context, input *struct{}) (*models.LiveResponse, error) {
		result, already, err := s.opts.Orchestrator.GoLive(ctx)
		if err != nil {
			return nil, s.mapPipelineError(err)
		}
		body := models.LiveData{
			Live:        true,
			Mode:        string(result.Mode),
			AudioSource: result.AudioSource,
			Destination: s.opts.Registry.ActiveID(),
		}
		if already {
			body.Message = "Already streaming"
		}
		return &models.LiveResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "go-offline",
		Method:      http.MethodPost,
		Path:        "/stream/offline",
		Summary:     "Go Offline",
		Description: "Tear down the streaming pipeline",
		Tags:        []string{"stream"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*models.OfflineResponse, error) {
		if err := s.opts.Orchestrator.GoOffline(ctx); err != nil {
			return nil, s.mapPipelineError(err)
		}
		return &models.OfflineResponse{Body: models.OfflineData{Live: false}}, nil
	})

	// Explicit start with caller-supplied credentials. Bypasses the
	// destination abstraction, kept for manual and testing use.
	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/stream/start",
		Summary:     "Start Stream",
		Description: "Start the encoder with explicit RTMP credentials",
		Tags:        []string{"stream"},
		Errors:      []int{400, 500},
	}, func(ctx context.Context, input *models.StartRequest) (*models.StartResponse, error) {
		cfg, err := s.validateStartRequest(input.Body)
		if err != nil {
			return nil, err
		}
		if err := s.opts.Encoder.Start(ctx, *cfg); err != nil {
			return nil, huma.Error500InternalServerError("failed to start encoder", err)
		}
		s.publish(events.PipelineStartedEvent{
			Mode:        cfg.InputMode,
			AudioSource: cfg.AudioSource,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
		return &models.StartResponse{Body: models.StartData{Status: "started", Mode: cfg.InputMode}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/stream/stop",
		Summary:     "Stop Stream",
		Description: "Stop the encoder",
		Tags:        []string{"stream"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*models.StopResponse, error) {
		wasRunning := s.opts.Encoder.IsRunning()
		if err := s.opts.Encoder.Stop(ctx); err != nil {
			return nil, huma.Error500InternalServerError("failed to stop encoder", err)
		}
		if wasRunning {
			s.publish(events.PipelineStoppedEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)})
		}
		return &models.StopResponse{Body: models.StopData{Status: "stopped"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stream-status",
		Method:      http.MethodGet,
		Path:        "/stream/status",
		Summary:     "Stream Status",
		Description: "Get pipeline health and the active destination",
		Tags:        []string{"stream"},
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		health := s.opts.Encoder.Health()
		body := models.StatusData{
			Running:       health.Running,
			EncoderAlive:  health.EncoderAlive,
			UptimeSeconds: health.UptimeSeconds,
			FrameCount:    health.FrameCount,
			Volume:        health.Volume,
			Muted:         health.Muted,
			AudioSource:   health.AudioSource,
			CaptureMode:   health.CaptureMode,
		}
		if dest := s.opts.Registry.Active(); dest != nil {
			body.Destination = &models.DestinationRef{ID: dest.ID(), Name: dest.Name()}
		}
		return &models.StatusResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-volume",
		Method:      http.MethodPost,
		Path:        "/stream/volume",
		Summary:     "Set Volume",
		Description: "Set the audio volume",
		Tags:        []string{"stream"},
		Errors:      []int{400, 500},
	}, func(ctx context.Context, input *models.VolumeRequest) (*models.VolumeResponse, error) {
		vol, ok := numericVolume(input.Body.Volume)
		if !ok {
			return nil, huma.Error400BadRequest("volume must be a number between 0 and 100")
		}
		volume, muted, err := s.opts.Encoder.SetVolume(vol)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to set volume", err)
		}
		s.publish(events.VolumeChangedEvent{Volume: volume, Muted: muted})
		return &models.VolumeResponse{Body: models.VolumeData{Volume: volume, Muted: muted}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "mute",
		Method:      http.MethodPost,
		Path:        "/stream/mute",
		Summary:     "Mute",
		Description: "Mute the audio",
		Tags:        []string{"stream"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*models.VolumeResponse, error) {
		if err := s.opts.Encoder.Mute(); err != nil {
			return nil, huma.Error500InternalServerError("failed to mute", err)
		}
		health := s.opts.Encoder.Health()
		s.publish(events.VolumeChangedEvent{Volume: health.Volume, Muted: true})
		return &models.VolumeResponse{Body: models.VolumeData{Volume: health.Volume, Muted: true}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "unmute",
		Method:      http.MethodPost,
		Path:        "/stream/unmute",
		Summary:     "Unmute",
		Description: "Unmute the audio",
		Tags:        []string{"stream"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*models.VolumeResponse, error) {
		if err := s.opts.Encoder.Unmute(); err != nil {
			return nil, huma.Error500InternalServerError("failed to unmute", err)
		}
		health := s.opts.Encoder.Health()
		s.publish(events.VolumeChangedEvent{Volume: health.Volume, Muted: false})
		return &models.VolumeResponse{Body: models.VolumeData{Volume: health.Volume, Muted: false}}, nil
	})
}

// validateStartRequest checks the explicit start parameters and fills in
// defaults for omitted optional fields.
func (s *Server) validateStartRequest(body models.StartRequestData) (*encoder.Config, error) {
	if body.RemoteURL == "" || body.RemoteKey == "" {
		return nil, huma.Error400BadRequest("remoteUrl and remoteKey are required")
	}
	parsed, err := url.Parse(body.RemoteURL)
	if err != nil || (parsed.Scheme != "rtmp" && parsed.Scheme != "rtmps") {
		return nil, huma.Error400BadRequest("remoteUrl must use the rtmp:// or rtmps:// scheme")
	}

	cfg := &encoder.Config{
		RemoteURL:  body.RemoteURL,
		RemoteKey:  body.RemoteKey,
		InputMode:  encoder.InputTestSource,
		Resolution: "1280x720",
		Bitrate:    "2500k",
		Framerate:  30,
		Volume:     100,
	}

	if body.Resolution != "" {
		if !resolutionPattern.MatchString(body.Resolution) {
			return nil, huma.Error400BadRequest("resolution must match WxH, e.g. 1280x720")
		}
		cfg.Resolution = body.Resolution
	}
	if body.Bitrate != "" {
		if !bitratePattern.MatchString(body.Bitrate) {
			return nil, huma.Error400BadRequest("bitrate must match <n>k, e.g. 2500k")
		}
		cfg.Bitrate = body.Bitrate
	}
	if body.InputMode != "" {
		if !encoder.ValidInputMode(body.InputMode) {
			return nil, huma.Error400BadRequest("inputMode is not supported")
		}
		cfg.InputMode = body.InputMode
	}
	if body.Framerate != nil {
		fps, ok := body.Framerate.(float64)
		if !ok || fps != float64(int(fps)) {
			return nil, huma.Error400BadRequest("framerate must be an integer")
		}
		if fps < 1 || fps > 60 {
			return nil, huma.Error400BadRequest("framerate must be between 1 and 60")
		}
		cfg.Framerate = int(fps)
	}
	return cfg, nil
}

// numericVolume accepts JSON numbers in [0,100] and rejects everything else.
func numericVolume(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if f < 0 || f > 100 {
		return 0, false
	}
	return int(f), true
}

func (s *Server) publish(ev events.Event) {
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}
