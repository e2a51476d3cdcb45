// Package display provisions the virtual X display the grab capture backend
// records from. Linux only; every failure degrades to "no display" rather
// than an error, because the pipeline can still start with a blank capture.
package display

import (
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"time"

	"github.com/milady-ai/streamnode/internal/logging"
	"github.com/milady-ai/streamnode/internal/process"
)

var (
	// displayIDPattern is deliberately strict: a colon followed by digits and
	// nothing else. Display ids reach shell-adjacent call sites, so anything
	// with separators, spaces, or letters is rejected before any exec.
	displayIDPattern  = regexp.MustCompile(`^:\d+$`)
	resolutionPattern = regexp.MustCompile(`^\d+x\d+$`)
)

const settleDelay = time.Second

// Supervisor ensures a virtual display server exists for a display id.
// The launched server is deliberately not tracked: re-invoking Ensure is
// idempotent and the server is cheap to leave running.
type Supervisor struct {
	logger *slog.Logger

	// Injection points for tests.
	goos          string
	activeDisplay func() string
	probe         func(displayID string) bool
	launch        func(displayID, resolution string) error
	settle        func()
}

// NewSupervisor creates a display supervisor using Xvfb and xdpyinfo.
func NewSupervisor() *Supervisor {
	s := &Supervisor{
		logger: logging.GetLogger("display"),
		goos:   runtime.GOOS,
		activeDisplay: func() string {
			return os.Getenv("DISPLAY")
		},
		settle: func() { time.Sleep(settleDelay) },
	}
	s.probe = s.probeX
	s.launch = s.launchXvfb
	return s
}

// Ensure makes sure a display server is running on displayID with the given
// resolution. It returns false for non-Linux hosts, malformed inputs, and any
// OS-level failure; it never returns an error or panics.
func (s *Supervisor) Ensure(displayID, resolution string) bool {
	if s.goos != "linux" {
		s.logger.Debug("Virtual display unsupported on this platform", "goos", s.goos)
		return false
	}

	if !displayIDPattern.MatchString(displayID) {
		s.logger.Warn("Rejected malformed display id", "display", displayID)
		return false
	}

	if s.activeDisplay() == displayID {
		s.logger.Debug("Display already active", "display", displayID)
		return true
	}

	if s.probe(displayID) {
		s.logger.Debug("Display server already running", "display", displayID)
		return true
	}

	if !resolutionPattern.MatchString(resolution) {
		s.logger.Warn("Rejected malformed resolution", "resolution", resolution)
		return false
	}

	if err := s.launch(displayID, resolution); err != nil {
		s.logger.Warn("Failed to launch virtual display", "display", displayID, "error", err)
		return false
	}

	s.settle()
	s.logger.Info("Virtual display started", "display", displayID, "resolution", resolution)
	return true
}

// probeX checks whether an X server already answers on the display.
func (s *Supervisor) probeX(displayID string) bool {
	cmd := exec.Command("xdpyinfo", "-display", displayID)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// launchXvfb starts Xvfb detached; the server is fire-and-forget.
func (s *Supervisor) launchXvfb(displayID, resolution string) error {
	_, err := process.StartDetached([]string{
		"Xvfb", displayID,
		"-screen", "0", resolution + "x24",
		"-nolisten", "tcp",
	}, nil)
	return err
}
