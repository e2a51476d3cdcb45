package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Environment variables configuring the custom RTMP destination.
const (
	EnvRTMPURL = "STREAMNODE_RTMP_URL"
	EnvRTMPKey = "STREAMNODE_RTMP_KEY"
)

// defaultOverlay is the layout used when no overlay has been persisted for
// the custom RTMP destination.
var defaultOverlay = json.RawMessage(`{
  "version": 1,
  "widgets": [
    {"id": "avatar", "x": 24, "y": 24, "visible": true},
    {"id": "chat", "x": 24, "y": 160, "width": 360, "height": 480, "visible": true},
    {"id": "status", "x": 24, "y": 660, "visible": false}
  ]
}`)

// CustomRTMP publishes to an operator-supplied RTMP endpoint read from the
// environment at go-live time.
type CustomRTMP struct {
	getenv func(string) string
}

// NewCustomRTMP creates the custom RTMP destination.
func NewCustomRTMP() *CustomRTMP {
	return &CustomRTMP{getenv: os.Getenv}
}

func (c *CustomRTMP) ID() string { return "custom-rtmp" }
func (c *CustomRTMP) Name() string { return "Custom RTMP" }

// Credentials reads the RTMP URL and key from the environment. The key may
// be empty when the URL embeds it.
func (c *CustomRTMP) Credentials(ctx context.Context) (string, string, error) {
	url := c.getenv(EnvRTMPURL)
	if url == "" {
		return "", "", fmt.Errorf("%s is not set", EnvRTMPURL)
	}
	return url, c.getenv(EnvRTMPKey), nil
}

// DefaultOverlay returns the compiled-in overlay layout.
func (c *CustomRTMP) DefaultOverlay() json.RawMessage {
	return defaultOverlay
}
