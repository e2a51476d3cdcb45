package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"ERROR", slog.LevelError, true},
		{"verbose", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got := parseLevel(tt.input)
		if tt.ok {
			if got == nil {
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			} else if *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		} else if got != nil {
			t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
		}
	}
}

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("gate")
	b := GetLogger("gate")
	if a != b {
		t.Error("GetLogger returned different instances for the same module")
	}
}

func TestInitializeAppliesModuleLevel(t *testing.T) {
	// Create the logger before Initialize to exercise re-leveling.
	_ = GetLogger("relevel-test")

	Initialize(Config{
		Level:   "error",
		Format:  "text",
		Modules: map[string]string{"relevel-test": "debug"},
	})

	mutex.RLock()
	levelVar := moduleLevelVars["relevel-test"]
	mutex.RUnlock()

	if levelVar == nil {
		t.Fatal("module level var missing after Initialize")
	}
	if levelVar.Level() != slog.LevelDebug {
		t.Errorf("module level = %v, want debug", levelVar.Level())
	}
	if globalLevelVar.Level() != slog.LevelError {
		t.Errorf("global level = %v, want error", globalLevelVar.Level())
	}
}
