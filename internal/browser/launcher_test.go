package browser

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/milady-ai/streamnode/internal/capture"
	"github.com/milady-ai/streamnode/internal/process"
)

type fakeProcess struct {
	alive bool
	stops int
}

func (f *fakeProcess) Alive() bool { return f.alive }

func (f *fakeProcess) Stop(ctx context.Context) error {
	f.alive = false
	f.stops++
	return nil
}

type launchRecorder struct {
	calls     int
	lastArgs  []string
	launchErr error
	proc      *fakeProcess
}

func newTestChromium(rec *launchRecorder) *Chromium {
	c := &Chromium{
		logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		lookPath: func(string) (string, error) { return "/usr/bin/chromium", nil },
	}
	c.launch = func(args []string, opts ...process.Option) (browserProcess, error) {
		rec.calls++
		rec.lastArgs = args
		if rec.launchErr != nil {
			return nil, rec.launchErr
		}
		rec.proc = &fakeProcess{alive: true}
		return rec.proc, nil
	}
	return c
}

func TestStartLaunchesHeadless(t *testing.T) {
	rec := &launchRecorder{}
	c := newTestChromium(rec)

	cfg := DefaultPageConfig(capture.ModePipe, "http://localhost:3000", 1280, 720)
	if err := c.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if rec.calls != 1 {
		t.Fatalf("launches = %d", rec.calls)
	}
	joined := strings.Join(rec.lastArgs, " ")
	if !strings.Contains(joined, "--app=http://localhost:3000") {
		t.Errorf("args missing app url: %s", joined)
	}
	if !strings.Contains(joined, "--headless=new") {
		t.Errorf("displayless start should be headless: %s", joined)
	}
	if !strings.Contains(joined, "--window-size=1280,720") {
		t.Errorf("args missing window size: %s", joined)
	}
}

func TestStartSkipsWhenAlreadyAlive(t *testing.T) {
	rec := &launchRecorder{}
	c := newTestChromium(rec)

	cfg := DefaultPageConfig(capture.ModePipe, "http://localhost:3000", 1280, 720)
	if err := c.Start(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	if rec.calls != 1 {
		t.Errorf("launches = %d, want 1 for an already-active browser", rec.calls)
	}
	if rec.proc.stops != 0 {
		t.Errorf("active browser was stopped %d times", rec.proc.stops)
	}
}

func TestStartRelaunchesDeadBrowser(t *testing.T) {
	rec := &launchRecorder{}
	c := newTestChromium(rec)

	cfg := DefaultPageConfig(capture.ModePipe, "http://localhost:3000", 1280, 720)
	if err := c.Start(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	rec.proc.alive = false

	if err := c.Start(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if rec.calls != 2 {
		t.Errorf("launches = %d, want relaunch after the browser died", rec.calls)
	}
}

func TestStartNoBinaryFound(t *testing.T) {
	rec := &launchRecorder{}
	c := newTestChromium(rec)
	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	cfg := DefaultPageConfig(capture.ModePipe, "http://localhost:3000", 1280, 720)
	if err := c.Start(context.Background(), cfg); err == nil {
		t.Error("Start() should fail when no browser binary exists")
	}
	if rec.calls != 0 {
		t.Errorf("launches = %d", rec.calls)
	}
}

func TestStopTerminatesBrowser(t *testing.T) {
	rec := &launchRecorder{}
	c := newTestChromium(rec)

	cfg := DefaultPageConfig(capture.ModePipe, "http://localhost:3000", 1280, 720)
	if err := c.Start(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if rec.proc.stops != 1 {
		t.Errorf("stops = %d", rec.proc.stops)
	}

	// A second stop with no browser is a no-op.
	if err := c.Stop(); err != nil {
		t.Errorf("idle Stop() error: %v", err)
	}
}

func TestDefaultPageConfigQuality(t *testing.T) {
	if q := DefaultPageConfig(capture.ModeFileRelay, "http://x", 1280, 720).Quality; q != 80 {
		t.Errorf("file-relay quality = %d, want 80", q)
	}
	if q := DefaultPageConfig(capture.ModePipe, "http://x", 1280, 720).Quality; q != 0 {
		t.Errorf("pipe quality = %d, want default 0", q)
	}
}
