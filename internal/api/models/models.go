package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go version used for build"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Stream lifecycle models
type LiveData struct {
	Live        bool   `json:"live" example:"true" doc:"Whether the pipeline is live"`
	Mode        string `json:"mode" example:"display-grab" doc:"Selected capture mode"`
	AudioSource string `json:"audioSource,omitempty" example:"pulse" doc:"Audio source feeding the encoder"`
	Destination string `json:"destination,omitempty" example:"custom-rtmp" doc:"Active destination id"`
	Message     string `json:"message,omitempty" example:"Already streaming" doc:"Informational message"`
}

type LiveResponse struct {
	Body LiveData
}

type OfflineData struct {
	Live bool `json:"live" example:"false" doc:"Whether the pipeline is live"`
}

type OfflineResponse struct {
	Body OfflineData
}

// StartRequestData carries the explicit start parameters. Framerate is
// loosely typed so a non-integer value maps to a 400 instead of a schema
// error.
type StartRequestData struct {
	RemoteURL  string `json:"remoteUrl,omitempty" example:"rtmp://live.example.com/app" doc:"RTMP publish URL"`
	RemoteKey  string `json:"remoteKey,omitempty" example:"stream-key" doc:"RTMP stream key"`
	Resolution string `json:"resolution,omitempty" example:"1280x720" doc:"Resolution as WxH"`
	Bitrate    string `json:"bitrate,omitempty" example:"2500k" doc:"Video bitrate"`
	InputMode  string `json:"inputMode,omitempty" example:"testsrc" doc:"Input mode"`
	Framerate  any    `json:"framerate,omitempty" doc:"Framerate 1-60"`
}

type StartRequest struct {
	Body StartRequestData
}

type StartData struct {
	Status string `json:"status" example:"started" doc:"Start outcome"`
	Mode   string `json:"mode" example:"testsrc" doc:"Input mode in effect"`
}

type StartResponse struct {
	Body StartData
}

type StopData struct {
	Status string `json:"status" example:"stopped" doc:"Stop outcome"`
}

type StopResponse struct {
	Body StopData
}

// Status models
type DestinationRef struct {
	ID   string `json:"id" example:"custom-rtmp" doc:"Destination identifier"`
	Name string `json:"name" example:"Custom RTMP" doc:"Display name"`
}

type StatusData struct {
	Running       bool            `json:"running" example:"true" doc:"Whether the pipeline is live"`
	EncoderAlive  bool            `json:"encoder_alive" example:"true" doc:"Whether the encoder process is alive"`
	UptimeSeconds float64         `json:"uptime_seconds" example:"42.5" doc:"Encoder uptime"`
	FrameCount    int64           `json:"frame_count" example:"1200" doc:"Frames ingested since start"`
	Volume        int             `json:"volume" example:"100" doc:"Audio volume 0-100"`
	Muted         bool            `json:"muted" example:"false" doc:"Mute state"`
	AudioSource   string          `json:"audio_source,omitempty" example:"pulse" doc:"Audio source"`
	CaptureMode   string          `json:"capture_mode,omitempty" example:"pipe" doc:"Capture mode in effect"`
	Destination   *DestinationRef `json:"destination" doc:"Active destination, null when none"`
}

type StatusResponse struct {
	Body StatusData
}

// Volume models. The field is loosely typed so strings, nulls, and missing
// values map to a 400 instead of a schema error.
type VolumeRequestData struct {
	Volume any `json:"volume,omitempty" doc:"Volume 0-100"`
}

type VolumeRequest struct {
	Body VolumeRequestData
}

type VolumeData struct {
	Volume int  `json:"volume" example:"80" doc:"Volume 0-100"`
	Muted  bool `json:"muted" example:"false" doc:"Mute state"`
}

type VolumeResponse struct {
	Body VolumeData
}

// Frame ingestion models
type FrameRequest struct {
	RawBody []byte `contentType:"application/octet-stream"`
}

type FrameData struct {
	Status string `json:"status" example:"ok" doc:"Ingestion outcome"`
}

type FrameResponse struct {
	Body FrameData
}

// Destination models
type DestinationInfo struct {
	ID     string `json:"id" example:"custom-rtmp" doc:"Destination identifier"`
	Name   string `json:"name" example:"Custom RTMP" doc:"Display name"`
	Active bool   `json:"active" example:"true" doc:"Whether this destination is selected"`
}

type DestinationListData struct {
	Destinations []DestinationInfo `json:"destinations" doc:"Configured destinations"`
}

type DestinationListResponse struct {
	Body DestinationListData
}

type DestinationSelectData struct {
	DestinationID string `json:"destinationId,omitempty" example:"custom-rtmp" doc:"Destination to select"`
}

type DestinationSelectRequest struct {
	Body DestinationSelectData
}

type DestinationSelectResponse struct {
	Body DestinationInfo
}

// Voice models
type VoiceSettingsData struct {
	Enabled   bool    `json:"enabled" example:"false" doc:"Whether narration is enabled"`
	AutoSpeak *bool   `json:"autoSpeak,omitempty" doc:"Auto-narrate generated messages"`
	Provider  *string `json:"provider,omitempty" example:"elevenlabs" doc:"Narration provider"`
}

type VoiceSettingsResponse struct {
	Body VoiceSettingsData
}

type VoiceSettingsRequest struct {
	Body VoiceSettingsData
}

type SpeakRequestData struct {
	Text string `json:"text,omitempty" example:"Going live now" doc:"Utterance text, at most 2000 characters"`
}

type SpeakRequest struct {
	Body SpeakRequestData
}

type SpeakData struct {
	Speaking bool `json:"speaking" example:"true" doc:"Whether an utterance was dispatched"`
}

type SpeakResponse struct {
	Body SpeakData
}

// Settings and overlay models. Bodies are loosely typed because the settings
// document is whitelist-validated by the store and the overlay layout is
// opaque to the API.
type SettingsRequest struct {
	Body map[string]any
}

type SettingsResponse struct {
	Body any
}

type OverlayGetRequest struct {
	DestinationID string `query:"destinationId" example:"custom-rtmp" doc:"Destination scope, global when empty"`
}

type OverlayResponse struct {
	Body any
}

type OverlaySaveRequest struct {
	DestinationID string `query:"destinationId" example:"custom-rtmp" doc:"Destination scope, global when empty"`
	RawBody       []byte `contentType:"application/json"`
}
