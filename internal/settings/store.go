package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/milady-ai/streamnode/internal/logging"
)

const (
	settingsFile      = "stream-settings.json"
	overlayGlobalFile = "overlay-layout.json"
)

var destIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeDestID strips everything outside [A-Za-z0-9_-] so a destination id
// can never escape the data directory when used as a filename fragment.
func sanitizeDestID(id string) string {
	return destIDSanitizer.ReplaceAllString(id, "")
}

// OverlayDefaulter supplies a built-in overlay layout for a destination.
type OverlayDefaulter interface {
	DefaultOverlay() json.RawMessage
}

// Store persists settings and overlay layouts under <dataDir>/stream/.
// Settings are cached; the cache is refreshed by Reload, typically driven by
// a file watcher.
type Store struct {
	dir    string
	logger logging.Logger

	mu     sync.RWMutex
	cached *VisualSettings
}

// NewStore creates a store rooted at dataDir and loads any existing settings.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "stream")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}
	s := &Store{
		dir:    dir,
		logger: logging.GetLogger("settings"),
	}
	s.Reload()
	return s, nil
}

// SettingsPath returns the settings file path, for watcher wiring.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.dir, settingsFile)
}

// Settings returns the cached settings, never nil.
func (s *Store) Settings() *VisualSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return &VisualSettings{}
	}
	return s.cached
}

// Voice returns the cached voice settings with defaults applied.
func (s *Store) Voice() VoiceSettings {
	settings := s.Settings()
	if settings.Voice == nil {
		return VoiceSettings{}
	}
	return *settings.Voice
}

// SaveSettings validates and persists a raw settings payload, replacing the
// cache on success.
func (s *Store) SaveSettings(raw map[string]any) (*VisualSettings, error) {
	validated, err := ValidateSettings(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(validated, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing settings: %w", err)
	}
	if err := s.atomicWrite(s.SettingsPath(), data); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cached = validated
	s.mu.Unlock()
	return validated, nil
}

// Reload re-reads the settings file into the cache. A missing file clears
// the cache; a corrupt file keeps the previous cache.
func (s *Store) Reload() {
	data, err := os.ReadFile(s.SettingsPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read settings file", "error", err)
		}
		s.mu.Lock()
		s.cached = nil
		s.mu.Unlock()
		return
	}
	var settings VisualSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.Warn("Ignoring corrupt settings file", "error", err)
		return
	}
	s.mu.Lock()
	s.cached = &settings
	s.mu.Unlock()
}

// Overlay resolves an overlay layout for the given destination. Order:
// destination-specific file, global file, the destination's built-in
// default, then nil. Read errors are logged and treated as absent.
func (s *Store) Overlay(destID string, dest OverlayDefaulter) json.RawMessage {
	if destID != "" {
		if layout := s.readOverlay(s.overlayPath(destID)); layout != nil {
			return layout
		}
	}
	if layout := s.readOverlay(filepath.Join(s.dir, overlayGlobalFile)); layout != nil {
		return layout
	}
	if dest != nil {
		return dest.DefaultOverlay()
	}
	return nil
}

// SaveOverlay persists a layout. A non-empty destID targets the
// destination-specific file, otherwise the global file.
func (s *Store) SaveOverlay(destID string, layout json.RawMessage) error {
	if !json.Valid(layout) {
		return fmt.Errorf("overlay layout is not valid JSON")
	}
	path := filepath.Join(s.dir, overlayGlobalFile)
	if destID != "" {
		path = s.overlayPath(destID)
	}
	return s.atomicWrite(path, layout)
}

func (s *Store) overlayPath(destID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("overlay-layout-%s.json", sanitizeDestID(destID)))
}

func (s *Store) readOverlay(path string) json.RawMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read overlay file", "path", path, "error", err)
		}
		return nil
	}
	if !json.Valid(data) {
		s.logger.Warn("Ignoring corrupt overlay file", "path", path)
		return nil
	}
	return json.RawMessage(data)
}

// atomicWrite writes to a temp file in the same directory then renames it
// over the target, so readers never observe a partial file.
func (s *Store) atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
