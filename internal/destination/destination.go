// Package destination abstracts streaming targets behind a common interface.
// Exactly one destination can be active at a time; the pipeline asks the
// active destination for RTMP credentials when going live.
package destination

import (
	"context"
	"encoding/json"
)

// Destination is a streaming target the pipeline can publish to.
type Destination interface {
	// ID returns the stable identifier used in API requests.
	ID() string

	// Name returns the human-readable display name.
	Name() string

	// Credentials resolves the RTMP base URL and stream key. Called at
	// go-live time so short-lived keys stay fresh.
	Credentials(ctx context.Context) (url, key string, err error)
}

// StartNotifier is implemented by destinations that need a side channel
// call after the encoder is live, such as flipping a broadcast to public.
type StartNotifier interface {
	OnStart(ctx context.Context) error
}

// StopNotifier is implemented by destinations that need notification when
// the stream ends.
type StopNotifier interface {
	OnStop(ctx context.Context) error
}

// OverlayDefaulter is implemented by destinations that ship a built-in
// overlay layout used when no persisted layout exists.
type OverlayDefaulter interface {
	DefaultOverlay() json.RawMessage
}

// Info is the API representation of a destination.
type Info struct {
	ID     string `json:"id" example:"custom-rtmp" doc:"Destination identifier"`
	Name   string `json:"name" example:"Custom RTMP" doc:"Display name"`
	Active bool   `json:"active" example:"true" doc:"Whether this destination is currently selected"`
}
