package display

import (
	"errors"
	"testing"

	"github.com/milady-ai/streamnode/internal/logging"
)

// testSupervisor returns a supervisor with all OS interaction faked out and
// counters for the calls that must not happen on invalid input.
func testSupervisor(goos string) (*Supervisor, *int, *int) {
	probes := 0
	launches := 0
	s := &Supervisor{
		logger:        logging.GetLogger("test"),
		goos:          goos,
		activeDisplay: func() string { return "" },
		probe: func(string) bool {
			probes++
			return false
		},
		launch: func(string, string) error {
			launches++
			return nil
		},
		settle: func() {},
	}
	return s, &probes, &launches
}

func TestEnsureRejectsNonLinux(t *testing.T) {
	for _, goos := range []string{"darwin", "windows"} {
		s, probes, launches := testSupervisor(goos)
		if s.Ensure(":99", "1280x720") {
			t.Errorf("Ensure on %s should return false", goos)
		}
		if *probes != 0 || *launches != 0 {
			t.Errorf("Ensure on %s touched the OS (probes=%d launches=%d)", goos, *probes, *launches)
		}
	}
}

func TestEnsureRejectsMalformedDisplayIDs(t *testing.T) {
	bad := []string{
		"",
		"99",
		":99a",
		":",
		": 99",
		":99 ",
		":99;rm -rf /",
		":99&&true",
		"display:99",
		":-1",
	}
	for _, id := range bad {
		s, probes, launches := testSupervisor("linux")
		if s.Ensure(id, "1280x720") {
			t.Errorf("Ensure(%q) = true, want false", id)
		}
		if *probes != 0 || *launches != 0 {
			t.Errorf("Ensure(%q) invoked a subprocess (probes=%d launches=%d)", id, *probes, *launches)
		}
	}
}

func TestEnsureActiveDisplayShortCircuits(t *testing.T) {
	s, probes, launches := testSupervisor("linux")
	s.activeDisplay = func() string { return ":99" }
	if !s.Ensure(":99", "1280x720") {
		t.Error("Ensure should return true when display already active")
	}
	if *probes != 0 || *launches != 0 {
		t.Error("active display match should not probe or launch")
	}
}

func TestEnsureExistingServer(t *testing.T) {
	s, _, launches := testSupervisor("linux")
	s.probe = func(string) bool { return true }
	if !s.Ensure(":42", "1280x720") {
		t.Error("Ensure should return true when a server already answers")
	}
	if *launches != 0 {
		t.Error("existing server should not trigger a launch")
	}
}

func TestEnsureRejectsMalformedResolution(t *testing.T) {
	bad := []string{"", "1280", "1280x", "x720", "1280x720x24", "1280x720;id", "wide"}
	for _, res := range bad {
		s, _, launches := testSupervisor("linux")
		if s.Ensure(":99", res) {
			t.Errorf("Ensure with resolution %q = true, want false", res)
		}
		if *launches != 0 {
			t.Errorf("resolution %q reached launch", res)
		}
	}
}

func TestEnsureLaunches(t *testing.T) {
	s, probes, launches := testSupervisor("linux")
	if !s.Ensure(":99", "1920x1080") {
		t.Error("Ensure should succeed when launch succeeds")
	}
	if *probes != 1 || *launches != 1 {
		t.Errorf("expected one probe and one launch, got probes=%d launches=%d", *probes, *launches)
	}
}

func TestEnsureLaunchFailureReturnsFalse(t *testing.T) {
	s, _, _ := testSupervisor("linux")
	s.launch = func(string, string) error { return errors.New("no Xvfb") }
	if s.Ensure(":99", "1280x720") {
		t.Error("Ensure should return false when launch fails")
	}
}
