// Package encoder defines the contract with the process that turns captured
// frames and audio into an RTMP publish, plus the ffmpeg-backed default
// implementation. The orchestrator treats the Supervisor as a black box; the
// only coupling is the Config handed to Start and the Health read back.
package encoder

import "context"

// Input modes accepted by the supervisor. The first four mirror the capture
// modes; testsrc generates a synthetic pattern and is reachable only through
// the explicit start endpoint.
const (
	InputPipe        = "pipe"
	InputDisplayGrab = "display-grab"
	InputNativeGrab  = "native-grab"
	InputFileRelay   = "file-relay"
	InputTestSource  = "testsrc"
)

// InputModes lists every input mode the supervisor accepts.
var InputModes = []string{InputPipe, InputDisplayGrab, InputNativeGrab, InputFileRelay, InputTestSource}

// Config is the fully-populated pipeline configuration handed to Start.
// Display, VideoDevice, and FramePath are mutually exclusive; only the field
// matching InputMode may be set.
type Config struct {
	RemoteURL string
	RemoteKey string

	InputMode  string
	Resolution string // WxH
	Bitrate    string // "<n>k"
	Framerate  int    // 1-60

	AudioSource string // pulse, alsa, or none
	AudioDevice string
	Volume      int // 0-100

	Display     string // display-grab: X display id
	VideoDevice string // native-grab: avfoundation device index
	FramePath   string // file-relay: frame file to poll
}

// Health is the supervisor's view of the running pipeline, produced on
// demand and never cached by callers.
type Health struct {
	Running       bool    `json:"running"`
	EncoderAlive  bool    `json:"encoder_alive"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	FrameCount    int64   `json:"frame_count"`
	Volume        int     `json:"volume"`
	Muted         bool    `json:"muted"`
	AudioSource   string  `json:"audio_source"`
	CaptureMode   string  `json:"capture_mode"`
}

// Supervisor owns the encoding process.
type Supervisor interface {
	Start(ctx context.Context, cfg Config) error
	Stop(ctx context.Context) error
	IsRunning() bool
	Health() Health
	WriteFrame(frame []byte) error
	SetVolume(volume int) (int, bool, error)
	Mute() error
	Unmute() error
}

// ValidInputMode reports whether mode is accepted by Start.
func ValidInputMode(mode string) bool {
	for _, m := range InputModes {
		if m == mode {
			return true
		}
	}
	return false
}
