package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/store"
)

type recordingPoster struct {
	events []engine.Event
	err    error
}

func (p *recordingPoster) Post(ev engine.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDefaults() map[string]float64 {
	return map[string]float64{
		engine.KeyPinchThreshold:    0.06,
		engine.KeyFistCurlRatio:     1.0,
		engine.KeyFistThumbRatio:    1.5,
		engine.KeyHoverRadius:       0.7,
		engine.KeyRotateSensitivity: 3.0,
		engine.KeyZoomSensitivity:   20.0,
	}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestSettingsHandler_List(t *testing.T) {
	s := newTestStore(t)
	if err := s.Settings().Set(engine.KeyHoverRadius, 0.4); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	h := NewSettingsHandler(s, &recordingPoster{}, testDefaults())

	rec := do(h, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp listSettingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(resp.Settings) != len(engine.TuningKeys) {
		t.Fatalf("got %d settings, want %d", len(resp.Settings), len(engine.TuningKeys))
	}
	for _, s := range resp.Settings {
		switch s.Key {
		case engine.KeyHoverRadius:
			if !s.Overridden || s.Value != 0.4 || s.Default != 0.7 {
				t.Errorf("hover radius = %+v, want overridden 0.4 (default 0.7)", s)
			}
		default:
			if s.Overridden || s.Value != s.Default {
				t.Errorf("%s = %+v, want default value", s.Key, s)
			}
		}
	}
}

func TestSettingsHandler_Put(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantEvent  bool
	}{
		{"valid", "/api/settings/gesture.pinch_threshold", `{"value": 0.05}`, http.StatusOK, true},
		{"unknown key", "/api/settings/camera.device", `{"value": 1}`, http.StatusNotFound, false},
		{"invalid json", "/api/settings/gesture.pinch_threshold", `{`, http.StatusBadRequest, false},
		{"missing value", "/api/settings/gesture.pinch_threshold", `{}`, http.StatusBadRequest, false},
		{"zero", "/api/settings/gesture.pinch_threshold", `{"value": 0}`, http.StatusBadRequest, false},
		{"negative", "/api/settings/view.zoom_sensitivity", `{"value": -2}`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			poster := &recordingPoster{}
			h := NewSettingsHandler(s, poster, testDefaults())

			rec := do(h, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := len(poster.events) == 1; got != tt.wantEvent {
				t.Fatalf("posted %d events, want event = %v", len(poster.events), tt.wantEvent)
			}
			if !tt.wantEvent {
				return
			}

			ev, ok := poster.events[0].(engine.TuningEvent)
			if !ok || ev.Key != engine.KeyPinchThreshold || ev.Value != 0.05 {
				t.Errorf("event = %#v", poster.events[0])
			}
			saved, err := s.Settings().Get(engine.KeyPinchThreshold)
			if err != nil || saved.Value != 0.05 {
				t.Errorf("persisted = %v, %v; want 0.05", saved, err)
			}
		})
	}
}

func TestSettingsHandler_PutEngineBusy(t *testing.T) {
	s := newTestStore(t)
	h := NewSettingsHandler(s, &recordingPoster{err: engine.ErrQueueFull}, testDefaults())

	rec := do(h, http.MethodPut, "/api/settings/view.zoom_sensitivity", `{"value": 10}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if _, err := s.Settings().Get(engine.KeyZoomSensitivity); err == nil {
		t.Error("rejected value should not be persisted")
	}
}

func TestSettingsHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	poster := &recordingPoster{}
	h := NewSettingsHandler(s, poster, testDefaults())

	if rec := do(h, http.MethodDelete, "/api/settings/erase.hover_radius", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete without override status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	do(h, http.MethodPut, "/api/settings/erase.hover_radius", `{"value": 0.3}`)
	rec := do(h, http.MethodDelete, "/api/settings/erase.hover_radius", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	last, ok := poster.events[len(poster.events)-1].(engine.TuningEvent)
	if !ok || last.Value != 0.7 {
		t.Errorf("restore event = %#v, want default 0.7", poster.events[len(poster.events)-1])
	}

	rec = do(h, http.MethodGet, "/api/settings/erase.hover_radius", "")
	var got settingResponse
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Overridden || got.Value != 0.7 {
		t.Errorf("after delete = %+v, want default", got)
	}
}

func TestSettingsHandler_MethodNotAllowed(t *testing.T) {
	h := NewSettingsHandler(newTestStore(t), &recordingPoster{}, testDefaults())

	if rec := do(h, http.MethodPost, "/api/settings", `{}`); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST collection status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if rec := do(h, http.MethodPatch, "/api/settings/view.zoom_sensitivity", `{}`); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH item status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
