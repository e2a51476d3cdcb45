// Package capture selects the technique used to acquire video frames for the
// outgoing stream. The choice is recomputed on every pipeline start from
// environment signals and the host platform; nothing here has side effects.
package capture

import (
	"os"
	"runtime"
)

// Mode is the frame acquisition technique for a pipeline.
type Mode string

const (
	// ModePipe feeds frames pushed by an in-process host surface into the
	// encoder over stdin.
	ModePipe Mode = "pipe"
	// ModeDisplayGrab captures a virtual X display that a headless browser
	// renders into (Linux only).
	ModeDisplayGrab Mode = "display-grab"
	// ModeNativeGrab uses the OS native screen capture device (macOS).
	ModeNativeGrab Mode = "native-grab"
	// ModeFileRelay polls a frame file written by a headless browser.
	ModeFileRelay Mode = "file-relay"
)

// Environment variables consulted by Detect, in priority order.
const (
	EnvCaptureMode       = "STREAMNODE_CAPTURE_MODE"
	EnvCaptureModeLegacy = "CAPTURE_MODE"
	EnvUIHost            = "STREAMNODE_UI_HOST"
	EnvDisplay           = "DISPLAY"
)

// Detect returns the capture mode for the current process environment.
// It always returns a usable mode; unknown override values fall through to
// platform detection.
func Detect() Mode {
	return detect(runtime.GOOS, os.Getenv)
}

// detect is the testable core of Detect; goos and getenv are injected so every
// branch can be exercised regardless of the host running the tests.
func detect(goos string, getenv func(string) string) Mode {
	for _, key := range []string{EnvCaptureMode, EnvCaptureModeLegacy} {
		if mode, ok := parseOverride(getenv(key)); ok {
			return mode
		}
	}

	// A desktop shell embedding the node pushes frames directly.
	if isTruthy(getenv(EnvUIHost)) {
		return ModePipe
	}

	if goos == "linux" && getenv(EnvDisplay) != "" {
		return ModeDisplayGrab
	}
	if goos == "darwin" {
		return ModeNativeGrab
	}
	return ModeFileRelay
}

// parseOverride maps an explicit override value to a mode. Unknown values are
// ignored rather than rejected so a stale variable cannot block going live.
func parseOverride(value string) (Mode, bool) {
	switch value {
	case "ui", "pipe":
		return ModePipe, true
	case "display-grab":
		return ModeDisplayGrab, true
	case "native-grab", "screen":
		return ModeNativeGrab, true
	case "file":
		return ModeFileRelay, true
	default:
		return "", false
	}
}

func isTruthy(value string) bool {
	switch value {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

// Valid reports whether m is one of the known capture modes.
func (m Mode) Valid() bool {
	switch m {
	case ModePipe, ModeDisplayGrab, ModeNativeGrab, ModeFileRelay:
		return true
	}
	return false
}
