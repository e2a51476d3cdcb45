// Package pipeline sequences the capture side of going live: detect the
// capture mode, provision the display and browser as the mode requires, and
// hand a fully populated config to the encoder supervisor.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/milady-ai/streamnode/internal/browser"
	"github.com/milady-ai/streamnode/internal/capture"
	"github.com/milady-ai/streamnode/internal/destination"
	"github.com/milady-ai/streamnode/internal/display"
	"github.com/milady-ai/streamnode/internal/encoder"
	"github.com/milady-ai/streamnode/internal/events"
	"github.com/milady-ai/streamnode/internal/logging"
)

// Environment variables consumed when assembling the pipeline config.
const (
	EnvDisplay     = "STREAMNODE_DISPLAY"
	EnvVideoDevice = "STREAMNODE_VIDEO_DEVICE"
	EnvAudioSource = "STREAMNODE_AUDIO_SOURCE"
	EnvAudioDevice = "STREAMNODE_AUDIO_DEVICE"
	EnvVolume      = "STREAMNODE_VOLUME"
	EnvCaptureURL  = "STREAMNODE_CAPTURE_URL"
)

const (
	defaultResolution = "1280x720"
	defaultBitrate    = "1500k"
	defaultDisplay    = ":99"
	defaultDevice     = "3"
	defaultCaptureURL = "http://localhost:3000"

	framePollInterval = 200 * time.Millisecond
	framePollTimeout  = 10 * time.Second
)

// StartResult reports what the sequencer chose.
type StartResult struct {
	Mode        capture.Mode `json:"mode"`
	AudioSource string       `json:"audioSource"`
}

// sideEffect records the outcome of a best-effort provisioning step so the
// intentionally-ignored failure path stays visible in logs and tests.
type sideEffect struct {
	OK      bool
	Warning string
}

// modeSetup prepares the mode-specific half of the encoder config and
// returns the best-effort side effects it performed.
type modeSetup func(ctx context.Context, cfg *encoder.Config) ([]sideEffect, error)

// Orchestrator owns the collaborators needed to take a stream live. All of
// them are injected; tests substitute fakes.
type Orchestrator struct {
	encoder  encoder.Supervisor
	registry *destination.Registry
	display  *display.Supervisor
	browser  browser.Launcher
	bus      *events.Bus
	logger   logging.Logger

	detect    func() capture.Mode
	getenv    func(string) string
	handlers  map[capture.Mode]modeSetup
	dataDir   string
	pollEvery time.Duration
	pollMax   time.Duration

	// starting latches the go-live transition so overlapping requests
	// cannot both reach the encoder.
	starting atomic.Bool
}

// New creates an orchestrator over the given collaborators.
func New(enc encoder.Supervisor, registry *destination.Registry, disp *display.Supervisor, br browser.Launcher, bus *events.Bus, dataDir string) *Orchestrator {
	o := &Orchestrator{
		encoder:   enc,
		registry:  registry,
		display:   disp,
		browser:   br,
		bus:       bus,
		logger:    logging.GetLogger("pipeline"),
		detect:    capture.Detect,
		getenv:    os.Getenv,
		dataDir:   dataDir,
		pollEvery: framePollInterval,
		pollMax:   framePollTimeout,
	}
	o.handlers = map[capture.Mode]modeSetup{
		capture.ModePipe:        o.setupPipe,
		capture.ModeDisplayGrab: o.setupDisplayGrab,
		capture.ModeNativeGrab:  o.setupNativeGrab,
		capture.ModeFileRelay:   o.setupFileRelay,
	}
	return o
}

// Running reports whether the encoder pipeline is live.
func (o *Orchestrator) Running() bool {
	return o.encoder.IsRunning()
}

// Health returns the encoder's current health.
func (o *Orchestrator) Health() encoder.Health {
	return o.encoder.Health()
}

// Start detects the capture mode, provisions mode-specific resources, and
// starts the encoder. Errors from config assembly or the encoder propagate;
// provisioning side effects are tolerated as leftovers since re-invoking
// them is harmless.
func (o *Orchestrator) Start(ctx context.Context, remoteURL, remoteKey string) (*StartResult, error) {
	mode := o.detect()
	cfg := o.baseConfig(remoteURL, remoteKey)

	setup, ok := o.handlers[mode]
	if !ok {
		return nil, NewError(ErrCodeUpstream, fmt.Sprintf("no handler for capture mode %q", mode), nil)
	}
	effects, err := setup(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	for _, eff := range effects {
		if !eff.OK {
			o.logger.Warn("Pipeline provisioning degraded", "mode", mode, "warning", eff.Warning)
		}
	}

	if err := o.encoder.Start(ctx, cfg); err != nil {
		return nil, NewError(ErrCodeUpstream, "failed to start encoder", err)
	}

	o.logger.Info("Pipeline started", "mode", mode, "audio_source", cfg.AudioSource)
	return &StartResult{Mode: mode, AudioSource: cfg.AudioSource}, nil
}

// GoLive starts the pipeline against the active destination. Calling it
// while already live is idempotent. The transition is claimed with a
// compare-and-swap so concurrent calls collapse onto a single encoder start;
// losers report already-streaming instead of racing into a second start.
func (o *Orchestrator) GoLive(ctx context.Context) (*StartResult, bool, error) {
	if !o.starting.CompareAndSwap(false, true) {
		return o.liveResult(), true, nil
	}
	defer o.starting.Store(false)

	if o.encoder.IsRunning() {
		return o.liveResult(), true, nil
	}

	dest := o.registry.Active()
	if dest == nil {
		return nil, false, NewError(ErrCodePrecondition, "no streaming destination configured", nil)
	}
	url, key, err := dest.Credentials(ctx)
	if err != nil {
		return nil, false, NewError(ErrCodeUpstream, "failed to resolve destination credentials", err)
	}

	result, err := o.Start(ctx, url, key)
	if err != nil {
		return nil, false, err
	}

	// A failing start hook means the remote side rejected the session.
	if notifier, ok := dest.(destination.StartNotifier); ok {
		if err := notifier.OnStart(ctx); err != nil {
			return nil, false, NewError(ErrCodeUpstream, "destination rejected stream start", err)
		}
	}

	o.publish(events.PipelineStartedEvent{
		Mode:        string(result.Mode),
		AudioSource: result.AudioSource,
		Destination: dest.ID(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	return result, false, nil
}

// liveResult describes the running (or currently starting) pipeline from the
// encoder's health snapshot.
func (o *Orchestrator) liveResult() *StartResult {
	health := o.encoder.Health()
	return &StartResult{
		Mode:        capture.Mode(health.CaptureMode),
		AudioSource: health.AudioSource,
	}
}

// GoOffline tears the pipeline down. Browser stop and the destination's stop
// hook are best-effort; only an encoder stop failure propagates.
func (o *Orchestrator) GoOffline(ctx context.Context) error {
	if o.browser != nil {
		if err := o.browser.Stop(); err != nil {
			o.logger.Warn("Browser stop failed during teardown", "error", err)
		}
	}

	wasRunning := o.encoder.IsRunning()
	if wasRunning {
		if err := o.encoder.Stop(ctx); err != nil {
			return NewError(ErrCodeUpstream, "failed to stop encoder", err)
		}
	}

	if dest := o.registry.Active(); dest != nil {
		if notifier, ok := dest.(destination.StopNotifier); ok {
			if err := notifier.OnStop(ctx); err != nil {
				o.logger.Warn("Destination stop notification failed", "error", err)
			}
		}
	}

	if wasRunning {
		o.publish(events.PipelineStoppedEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)})
	}
	return nil
}

func (o *Orchestrator) baseConfig(remoteURL, remoteKey string) encoder.Config {
	volume := 100
	if v := o.getenv(EnvVolume); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 && parsed <= 100 {
			volume = parsed
		}
	}
	return encoder.Config{
		RemoteURL:   remoteURL,
		RemoteKey:   remoteKey,
		Resolution:  defaultResolution,
		Bitrate:     defaultBitrate,
		AudioSource: o.getenv(EnvAudioSource),
		AudioDevice: o.getenv(EnvAudioDevice),
		Volume:      volume,
	}
}

func (o *Orchestrator) captureURL() string {
	if url := o.getenv(EnvCaptureURL); url != "" {
		return url
	}
	return defaultCaptureURL
}

// setupPipe configures stdin-fed frames. The render surface is started
// best-effort; frames may also arrive from an external producer over HTTP.
func (o *Orchestrator) setupPipe(ctx context.Context, cfg *encoder.Config) ([]sideEffect, error) {
	cfg.InputMode = encoder.InputPipe
	cfg.Framerate = 15

	effect := sideEffect{OK: true}
	if o.browser == nil {
		effect = sideEffect{Warning: "no frame producer available, expecting frames over HTTP"}
	} else if err := o.browser.Start(ctx, o.pageConfig(capture.ModePipe, "")); err != nil {
		effect = sideEffect{Warning: fmt.Sprintf("frame producer failed to start: %v", err)}
	}
	return []sideEffect{effect}, nil
}

// setupDisplayGrab provisions the virtual display, points the browser at it,
// and configures direct display capture. Browser failure is non-fatal.
func (o *Orchestrator) setupDisplayGrab(ctx context.Context, cfg *encoder.Config) ([]sideEffect, error) {
	displayID := o.getenv(EnvDisplay)
	if displayID == "" {
		displayID = defaultDisplay
	}
	cfg.InputMode = encoder.InputDisplayGrab
	cfg.Framerate = 30
	cfg.Display = displayID

	var effects []sideEffect
	if o.display == nil || !o.display.Ensure(displayID, cfg.Resolution) {
		effects = append(effects, sideEffect{Warning: fmt.Sprintf("virtual display %s unavailable", displayID)})
	}
	if o.browser != nil {
		if err := o.browser.Start(ctx, o.pageConfig(capture.ModeDisplayGrab, displayID)); err != nil {
			effects = append(effects, sideEffect{Warning: fmt.Sprintf("browser failed to start: %v", err)})
		}
	}
	return effects, nil
}

func (o *Orchestrator) setupNativeGrab(ctx context.Context, cfg *encoder.Config) ([]sideEffect, error) {
	device := o.getenv(EnvVideoDevice)
	if device == "" {
		device = defaultDevice
	}
	cfg.InputMode = encoder.InputNativeGrab
	cfg.Framerate = 30
	cfg.VideoDevice = device
	return nil, nil
}

// setupFileRelay launches the browser best-effort and waits for the frame
// file to appear. The encoder retries reads itself, so a poll timeout only
// degrades startup rather than aborting it.
func (o *Orchestrator) setupFileRelay(ctx context.Context, cfg *encoder.Config) ([]sideEffect, error) {
	framePath := filepath.Join(o.dataDir, "stream", "frame.jpg")
	cfg.InputMode = encoder.InputFileRelay
	cfg.Framerate = 30
	cfg.FramePath = framePath

	var effects []sideEffect
	if o.browser != nil {
		if err := o.browser.Start(ctx, o.pageConfig(capture.ModeFileRelay, "")); err != nil {
			effects = append(effects, sideEffect{Warning: fmt.Sprintf("browser failed to start: %v", err)})
		}
	}
	if !o.waitForFrameFile(ctx, framePath) {
		effects = append(effects, sideEffect{Warning: fmt.Sprintf("frame file %s not ready, encoder will retry", framePath)})
	}
	return effects, nil
}

// waitForFrameFile polls until the frame file is non-empty or the poll
// budget runs out.
func (o *Orchestrator) waitForFrameFile(ctx context.Context, path string) bool {
	deadline := time.Now().Add(o.pollMax)
	for {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(o.pollEvery):
		}
	}
}

func (o *Orchestrator) pageConfig(mode capture.Mode, displayID string) browser.PageConfig {
	cfg := browser.DefaultPageConfig(mode, o.captureURL(), 1280, 720)
	cfg.Display = displayID
	return cfg
}

func (o *Orchestrator) publish(ev events.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}
