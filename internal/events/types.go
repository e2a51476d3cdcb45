package events

// Event type constants for kelindar/event.
const (
	TypePipelineStarted uint32 = iota + 1
	TypePipelineStopped
	TypeVolumeChanged
	TypeFrameReceived
	TypeSpeechStarted
	TypeSpeechFinished
	TypeSettingsChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PipelineStartedEvent fires when the encoder pipeline goes live.
type PipelineStartedEvent struct {
	Mode        string `json:"mode" example:"display-grab" doc:"Capture mode selected for the pipeline"`
	AudioSource string `json:"audio_source" example:"pulse" doc:"Audio source feeding the encoder"`
	Destination string `json:"destination" example:"custom-rtmp" doc:"Active destination id, empty for explicit starts"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (e PipelineStartedEvent) Type() uint32 { return TypePipelineStarted }

// PipelineStoppedEvent fires when the pipeline is torn down.
type PipelineStoppedEvent struct {
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (e PipelineStoppedEvent) Type() uint32 { return TypePipelineStopped }

// VolumeChangedEvent fires on volume or mute changes.
type VolumeChangedEvent struct {
	Volume int  `json:"volume" example:"80" doc:"Volume 0-100"`
	Muted  bool `json:"muted" example:"false" doc:"Mute state"`
}

func (e VolumeChangedEvent) Type() uint32 { return TypeVolumeChanged }

// FrameReceivedEvent fires for each frame ingested over HTTP.
type FrameReceivedEvent struct {
	Bytes int `json:"bytes" example:"48213" doc:"Frame payload size"`
}

func (e FrameReceivedEvent) Type() uint32 { return TypeFrameReceived }

// SpeechStartedEvent fires when a narration utterance is dispatched.
type SpeechStartedEvent struct {
	Chars    int    `json:"chars" example:"120" doc:"Utterance length in characters"`
	Provider string `json:"provider" example:"elevenlabs" doc:"Configured narration provider"`
}

func (e SpeechStartedEvent) Type() uint32 { return TypeSpeechStarted }

// SpeechFinishedEvent fires when an utterance completes or fails.
type SpeechFinishedEvent struct {
	Error string `json:"error,omitempty" doc:"Narration error, empty on success"`
}

func (e SpeechFinishedEvent) Type() uint32 { return TypeSpeechFinished }

// SettingsChangedEvent fires when the persisted visual settings change,
// either through the API or an on-disk edit picked up by the watcher.
type SettingsChangedEvent struct {
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

func (e SettingsChangedEvent) Type() uint32 { return TypeSettingsChanged }
