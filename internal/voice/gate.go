// Package voice guards the narration subsystem: at most one utterance in
// flight, dispatched only while a pipeline is live to receive it.
package voice

import (
	"context"
	"sync/atomic"
	"unicode/utf8"

	"github.com/milady-ai/streamnode/internal/events"
	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/milady-ai/streamnode/internal/pipeline"
	"github.com/milady-ai/streamnode/internal/settings"
)

// MaxTextLen is the inclusive utterance length limit in runes.
const MaxTextLen = 2000

// Speaker synthesizes and plays an utterance. Implementations talk to the
// actual TTS provider.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// NopSpeaker logs utterances without synthesizing audio. Used when no
// provider is configured.
type NopSpeaker struct{}

func (NopSpeaker) Speak(ctx context.Context, text string) error {
	logging.GetLogger("voice").Info("No narration provider configured, dropping utterance", "chars", utf8.RuneCountInString(text))
	return nil
}

// Gate is the single-flight guard in front of a Speaker. The speaking flag
// transitions via CompareAndSwap so overlapping requests lose cleanly
// instead of racing.
type Gate struct {
	speaker  Speaker
	store    *settings.Store
	bus      *events.Bus
	logger   logging.Logger
	running  func() bool

	attached atomic.Bool
	speaking atomic.Bool
}

// NewGate creates a gate over the given speaker. running reports whether the
// pipeline is live, used by the auto-speak path.
func NewGate(speaker Speaker, store *settings.Store, bus *events.Bus, running func() bool) *Gate {
	g := &Gate{
		speaker: speaker,
		store:   store,
		bus:     bus,
		logger:  logging.GetLogger("voice"),
		running: running,
	}
	if bus != nil {
		bus.Subscribe(func(e events.PipelineStartedEvent) { g.attached.Store(true) })
		bus.Subscribe(func(e events.PipelineStoppedEvent) { g.attached.Store(false) })
	}
	return g
}

// Attached reports whether the gate is bound to a live pipeline.
func (g *Gate) Attached() bool {
	return g.attached.Load()
}

// Speaking reports whether an utterance is in flight.
func (g *Gate) Speaking() bool {
	return g.speaking.Load()
}

// Speak validates preconditions and dispatches the utterance. The Speaker
// runs in a goroutine; the flag clears when it finishes, success or not.
func (g *Gate) Speak(ctx context.Context, text string) error {
	if text == "" {
		return pipeline.NewError(pipeline.ErrCodeValidation, "text is required", nil)
	}
	chars := utf8.RuneCountInString(text)
	if chars > MaxTextLen {
		return pipeline.NewError(pipeline.ErrCodeValidation, "text exceeds maximum length of 2000 characters", nil)
	}
	if !g.attached.Load() {
		return pipeline.NewError(pipeline.ErrCodePrecondition, "voice bridge is not attached to a stream", nil)
	}
	if !g.speaking.CompareAndSwap(false, true) {
		return pipeline.NewError(pipeline.ErrCodeConflict, "already speaking", nil)
	}

	provider := ""
	if p := g.store.Voice().Provider; p != nil {
		provider = *p
	}
	g.publish(events.SpeechStartedEvent{Chars: chars, Provider: provider})

	go func() {
		err := g.speaker.Speak(ctx, text)
		g.speaking.Store(false)
		finished := events.SpeechFinishedEvent{}
		if err != nil {
			g.logger.Warn("Narration failed", "error", err)
			finished.Error = err.Error()
		}
		g.publish(finished)
	}()
	return nil
}

// AutoSpeak narrates generated messages when every precondition holds:
// pipeline running, gate attached, voice enabled in settings, and autoSpeak
// not explicitly disabled. A failing precondition is a silent no-op.
func (g *Gate) AutoSpeak(ctx context.Context, text string) {
	if g.running == nil || !g.running() {
		return
	}
	if !g.attached.Load() {
		return
	}
	voice := g.store.Voice()
	if !voice.Enabled {
		return
	}
	if voice.AutoSpeak != nil && !*voice.AutoSpeak {
		return
	}
	if err := g.Speak(ctx, text); err != nil {
		g.logger.Debug("Auto-speak skipped", "error", err)
	}
}

func (g *Gate) publish(ev events.Event) {
	if g.bus != nil {
		g.bus.Publish(ev)
	}
}
