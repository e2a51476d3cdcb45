// Package events provides the in-process event bus connecting the pipeline,
// the voice gate, and the metrics exporter without direct coupling.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for typed broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes an event to all subscribers.
// The type switch is required because kelindar/event's generic Publish needs
// the concrete type at the call site.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case PipelineStartedEvent:
		event.Publish(b.dispatcher, e)
	case PipelineStoppedEvent:
		event.Publish(b.dispatcher, e)
	case VolumeChangedEvent:
		event.Publish(b.dispatcher, e)
	case FrameReceivedEvent:
		event.Publish(b.dispatcher, e)
	case SpeechStartedEvent:
		event.Publish(b.dispatcher, e)
	case SpeechFinishedEvent:
		event.Publish(b.dispatcher, e)
	case SettingsChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; the handler's parameter type selects which
// events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e PipelineStartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PipelineStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(VolumeChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameReceivedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SpeechStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SpeechFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unrecognized handler signature gets a no-op unsubscribe.
		return func() {}
	}
}
