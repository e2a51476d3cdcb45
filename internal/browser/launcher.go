// Package browser sequences the headless browser that renders the local
// capture surface. The node only starts and stops it; everything the browser
// does in between belongs to the render surface, not to this package.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/milady-ai/streamnode/internal/capture"
	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/milady-ai/streamnode/internal/process"
)

// PageConfig describes the render surface the browser should load.
type PageConfig struct {
	URL     string
	Width   int
	Height  int
	Quality int    // JPEG quality for file-relay screenshots, 0 = default
	Display string // X display for display-grab mode, empty otherwise
}

// Launcher starts and stops a capture browser. Callers treat Start failures
// as degraded-but-continue and swallow Stop failures during teardown.
type Launcher interface {
	Start(ctx context.Context, cfg PageConfig) error
	Stop() error
}

// chromiumCandidates are tried in order when launching the capture browser.
var chromiumCandidates = []string{"chromium", "chromium-browser", "google-chrome"}

// browserProcess is the slice of process.Runner the launcher needs; tests
// substitute a fake.
type browserProcess interface {
	Alive() bool
	Stop(ctx context.Context) error
}

// Chromium launches a headless Chromium pointed at the render surface.
type Chromium struct {
	logger *slog.Logger

	mu     sync.Mutex
	runner browserProcess

	lookPath func(string) (string, error)
	launch   func(args []string, opts ...process.Option) (browserProcess, error)
}

// NewChromium creates a Chromium launcher.
func NewChromium() *Chromium {
	c := &Chromium{
		logger:   logging.GetLogger("browser"),
		lookPath: exec.LookPath,
	}
	c.launch = func(args []string, opts ...process.Option) (browserProcess, error) {
		runner := process.NewRunner("capture-browser", args, c.logger, opts...)
		if err := runner.Start(false); err != nil {
			return nil, err
		}
		return runner, nil
	}
	return c
}

// Start launches the browser against cfg.URL. A browser that is already
// alive is left in place; callers re-invoke Start on every pipeline start
// and an active render surface does not need relaunching.
func (c *Chromium) Start(_ context.Context, cfg PageConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runner != nil && c.runner.Alive() {
		c.logger.Debug("Capture browser already running", "url", cfg.URL)
		return nil
	}

	binary, err := c.findBinary()
	if err != nil {
		return err
	}

	args := []string{
		binary,
		"--no-sandbox",
		"--disable-gpu",
		"--autoplay-policy=no-user-gesture-required",
		fmt.Sprintf("--window-size=%d,%d", cfg.Width, cfg.Height),
		fmt.Sprintf("--app=%s", cfg.URL),
	}

	var opts []process.Option
	if cfg.Display != "" {
		// Render into the virtual display so the grab backend can record it.
		opts = append(opts, process.WithEnv("DISPLAY="+cfg.Display))
	} else {
		args = append(args, "--headless=new")
	}

	runner, err := c.launch(args, opts...)
	if err != nil {
		return err
	}
	c.runner = runner

	c.logger.Info("Capture browser started", "url", cfg.URL, "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return nil
}

// Stop terminates the browser if one is running.
func (c *Chromium) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Chromium) stopLocked() error {
	if c.runner == nil {
		return nil
	}
	err := c.runner.Stop(context.Background())
	c.runner = nil
	return err
}

func (c *Chromium) findBinary() (string, error) {
	for _, name := range chromiumCandidates {
		if path, err := c.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no chromium binary found (tried %v)", chromiumCandidates)
}

// DefaultPageConfig builds the page config for a capture mode from the base
// stream geometry.
func DefaultPageConfig(mode capture.Mode, url string, width, height int) PageConfig {
	cfg := PageConfig{URL: url, Width: width, Height: height}
	if mode == capture.ModeFileRelay {
		cfg.Quality = 80
	}
	return cfg
}
