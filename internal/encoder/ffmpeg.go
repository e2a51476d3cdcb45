package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/milady-ai/streamnode/internal/process"
)

// FFmpeg is the default Supervisor backed by an ffmpeg subprocess publishing
// to RTMP. Volume and mute are tracked state applied through the audio
// filter at (re)start; SetVolume while live records the value for the next
// start and reports it immediately.
type FFmpeg struct {
	logger *slog.Logger

	mu         sync.Mutex
	runner     *process.Runner
	cfg        Config
	volume     int
	muted      bool
	frameCount atomic.Int64
}

// NewFFmpeg creates an ffmpeg supervisor with volume at 100.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		logger: logging.GetLogger("encoder"),
		volume: 100,
	}
}

// Start launches ffmpeg with the given pipeline configuration. Starting
// while already running is an error; callers check IsRunning first.
func (f *FFmpeg) Start(_ context.Context, cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.runner != nil && f.runner.Alive() {
		return fmt.Errorf("encoder already running")
	}

	args, err := buildArgs(cfg, f.volume, f.muted)
	if err != nil {
		return fmt.Errorf("build encoder command: %w", err)
	}

	runner := process.NewRunner("ffmpeg", args, f.logger,
		process.WithLogParser(logging.GetLogger("ffmpeg"), ParseLogLevel))

	if err := runner.Start(cfg.InputMode == InputPipe); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}

	f.runner = runner
	f.cfg = cfg
	f.frameCount.Store(0)
	f.logger.Info("Encoder started", "input_mode", cfg.InputMode, "resolution", cfg.Resolution, "bitrate", cfg.Bitrate)
	return nil
}

// Stop terminates the encoder process. Stopping a stopped encoder is a no-op.
func (f *FFmpeg) Stop(ctx context.Context) error {
	f.mu.Lock()
	runner := f.runner
	f.runner = nil
	f.mu.Unlock()

	if runner == nil {
		return nil
	}
	if err := runner.Stop(ctx); err != nil {
		return fmt.Errorf("stop encoder: %w", err)
	}
	f.logger.Info("Encoder stopped")
	return nil
}

// IsRunning reports whether the encoder process is alive.
func (f *FFmpeg) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runner != nil && f.runner.Alive()
}

// Health reports the current pipeline health. Never cached.
func (f *FFmpeg) Health() Health {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := Health{
		Volume:      f.volume,
		Muted:       f.muted,
		AudioSource: f.cfg.AudioSource,
	}
	if f.runner != nil && f.runner.Alive() {
		h.Running = true
		h.EncoderAlive = true
		h.UptimeSeconds = f.runner.Uptime().Seconds()
		h.FrameCount = f.frameCount.Load()
		h.CaptureMode = f.cfg.InputMode
	}
	return h
}

// WriteFrame forwards one frame to the encoder's stdin. Only valid in pipe
// input mode while running.
func (f *FFmpeg) WriteFrame(frame []byte) error {
	f.mu.Lock()
	runner := f.runner
	f.mu.Unlock()

	if runner == nil || !runner.Alive() {
		return fmt.Errorf("encoder not running")
	}
	stdin := runner.Stdin()
	if stdin == nil {
		return fmt.Errorf("encoder input mode does not accept pushed frames")
	}
	if _, err := stdin.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	f.frameCount.Add(1)
	return nil
}

// SetVolume records the output volume (0-100) and returns the resulting
// volume and mute state.
func (f *FFmpeg) SetVolume(volume int) (int, bool, error) {
	if volume < 0 || volume > 100 {
		return 0, false, fmt.Errorf("volume %d out of range", volume)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	f.logger.Info("Volume set", "volume", volume)
	return f.volume, f.muted, nil
}

// Mute silences the audio track.
func (f *FFmpeg) Mute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = true
	return nil
}

// Unmute restores the audio track.
func (f *FFmpeg) Unmute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = false
	return nil
}
