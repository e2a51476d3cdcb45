package encoder

import (
	"fmt"
	"strings"
)

// buildArgs assembles the ffmpeg argument list for a pipeline config.
// Exactly one video input is selected by cfg.InputMode; audio is the
// configured source or a silent anullsrc so the publish always carries an
// audio track.
func buildArgs(cfg Config, volume int, muted bool) ([]string, error) {
	if err := checkModeFields(cfg); err != nil {
		return nil, err
	}

	args := []string{
		"ffmpeg",
		"-hide_banner",
		"-loglevel", "level+info",
	}

	framerate := fmt.Sprintf("%d", cfg.Framerate)

	switch cfg.InputMode {
	case InputPipe:
		args = append(args,
			"-f", "image2pipe",
			"-framerate", framerate,
			"-i", "pipe:0",
		)
	case InputDisplayGrab:
		args = append(args,
			"-f", "x11grab",
			"-framerate", framerate,
			"-video_size", cfg.Resolution,
			"-i", cfg.Display,
		)
	case InputNativeGrab:
		args = append(args,
			"-f", "avfoundation",
			"-framerate", framerate,
			"-i", cfg.VideoDevice+":none",
		)
	case InputFileRelay:
		// The frame file is rewritten continuously; -loop 1 keeps reading it
		// and tolerates the moments it is mid-write.
		args = append(args,
			"-re",
			"-loop", "1",
			"-f", "image2",
			"-framerate", framerate,
			"-i", cfg.FramePath,
		)
	case InputTestSource:
		args = append(args,
			"-re",
			"-f", "lavfi",
			"-i", fmt.Sprintf("testsrc2=size=%s:rate=%s", cfg.Resolution, framerate),
		)
	default:
		return nil, fmt.Errorf("unknown input mode %q", cfg.InputMode)
	}

	// Audio input
	switch cfg.AudioSource {
	case "", "none":
		args = append(args, "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
	default:
		device := cfg.AudioDevice
		if device == "" {
			device = "default"
		}
		args = append(args,
			"-thread_queue_size", "1024",
			"-f", cfg.AudioSource,
			"-i", device,
		)
	}
	args = append(args, "-map", "0:v", "-map", "1:a")

	args = append(args, "-af", volumeFilter(volume, muted))

	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-s", cfg.Resolution,
		"-b:v", cfg.Bitrate,
		"-maxrate", cfg.Bitrate,
		"-bufsize", doubleBitrate(cfg.Bitrate),
		"-g", fmt.Sprintf("%d", cfg.Framerate*2),
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-f", "flv",
		publishURL(cfg.RemoteURL, cfg.RemoteKey),
	)

	return args, nil
}

// checkModeFields enforces the mutual exclusivity of the mode-specific
// fields: only the one matching InputMode may be populated.
func checkModeFields(cfg Config) error {
	want := map[string]string{
		InputDisplayGrab: cfg.Display,
		InputNativeGrab:  cfg.VideoDevice,
		InputFileRelay:   cfg.FramePath,
	}
	for mode, field := range want {
		if cfg.InputMode == mode && field == "" {
			return fmt.Errorf("input mode %s requires its device field", mode)
		}
		if cfg.InputMode != mode && field != "" {
			return fmt.Errorf("field for mode %s set but input mode is %s", mode, cfg.InputMode)
		}
	}
	return nil
}

// volumeFilter maps the 0-100 volume and mute flag to an ffmpeg volume
// filter expression.
func volumeFilter(volume int, muted bool) string {
	if muted {
		return "volume=0"
	}
	return fmt.Sprintf("volume=%.2f", float64(volume)/100)
}

// doubleBitrate doubles a "<n>k" bitrate for the rate-control buffer size.
func doubleBitrate(bitrate string) string {
	n := 0
	if _, err := fmt.Sscanf(bitrate, "%dk", &n); err != nil || n <= 0 {
		return bitrate
	}
	return fmt.Sprintf("%dk", n*2)
}

// publishURL joins the remote URL and stream key.
func publishURL(remoteURL, remoteKey string) string {
	return strings.TrimSuffix(remoteURL, "/") + "/" + remoteKey
}
