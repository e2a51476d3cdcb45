package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type fixedDefault struct {
	layout json.RawMessage
}

func (f fixedDefault) DefaultOverlay() json.RawMessage { return f.layout }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return s
}

func TestStoreSaveAndReloadSettings(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.SaveSettings(map[string]any{
		"theme": "dark",
		"voice": map[string]any{"enabled": true},
	})
	if err != nil {
		t.Fatalf("SaveSettings() error: %v", err)
	}
	if saved.Theme == nil || *saved.Theme != "dark" {
		t.Errorf("saved theme = %v", saved.Theme)
	}

	// A fresh store over the same directory must see the persisted file.
	s2, err := NewStore(filepath.Dir(s.dir))
	if err != nil {
		t.Fatal(err)
	}
	if got := s2.Voice(); !got.Enabled {
		t.Error("voice.enabled not persisted")
	}
}

func TestStoreSettingsNeverNil(t *testing.T) {
	s := newTestStore(t)
	if s.Settings() == nil {
		t.Fatal("Settings() returned nil with no file present")
	}
	if s.Voice().Enabled {
		t.Error("voice should default to disabled")
	}
}

func TestStoreRejectsInvalidSettings(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveSettings(map[string]any{"bogus": 1}); err == nil {
		t.Error("SaveSettings accepted unknown key")
	}
	if _, err := os.Stat(s.SettingsPath()); !os.IsNotExist(err) {
		t.Error("rejected payload reached disk")
	}
}

func TestStoreReloadIgnoresCorruptFile(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveSettings(map[string]any{"theme": "dark"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.SettingsPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.Reload()
	if s.Settings().Theme == nil {
		t.Error("corrupt file should keep previous cache")
	}
}

func TestOverlayFallbackChain(t *testing.T) {
	s := newTestStore(t)
	builtin := fixedDefault{layout: json.RawMessage(`{"version":1,"source":"builtin"}`)}

	// Nothing on disk: destination default wins.
	got := s.Overlay("custom-rtmp", builtin)
	if string(got) != string(builtin.layout) {
		t.Errorf("expected builtin default, got %s", got)
	}

	// Nothing on disk and no defaulter: nil.
	if got := s.Overlay("custom-rtmp", nil); got != nil {
		t.Errorf("expected nil, got %s", got)
	}

	// Global file beats the builtin default.
	global := json.RawMessage(`{"version":1,"source":"global"}`)
	if err := s.SaveOverlay("", global); err != nil {
		t.Fatal(err)
	}
	if got := s.Overlay("custom-rtmp", builtin); string(got) != string(global) {
		t.Errorf("expected global layout, got %s", got)
	}

	// Destination-specific file beats everything.
	specific := json.RawMessage(`{"version":1,"source":"dest"}`)
	if err := s.SaveOverlay("custom-rtmp", specific); err != nil {
		t.Fatal(err)
	}
	if got := s.Overlay("custom-rtmp", builtin); string(got) != string(specific) {
		t.Errorf("expected destination layout, got %s", got)
	}

	// Empty destination id skips the destination-specific step.
	if got := s.Overlay("", builtin); string(got) != string(global) {
		t.Errorf("expected global layout for empty id, got %s", got)
	}
}

func TestOverlayCorruptFileTreatedAbsent(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.dir, "overlay-layout.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	builtin := fixedDefault{layout: json.RawMessage(`{"version":1}`)}
	if got := s.Overlay("", builtin); string(got) != string(builtin.layout) {
		t.Errorf("corrupt global file should fall through, got %s", got)
	}
}

func TestSaveOverlayPathTraversal(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveOverlay("../../escape", json.RawMessage(`{"version":1}`)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "overlay-layout-escape.json" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestSaveOverlayRejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveOverlay("", json.RawMessage("nope{")); err == nil {
		t.Error("SaveOverlay accepted invalid JSON")
	}
}
