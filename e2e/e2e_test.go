package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handboard/internal/app"
	"github.com/ayusman/handboard/internal/capture"
	"github.com/ayusman/handboard/internal/config"
	"github.com/ayusman/handboard/internal/detector"
	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/render"
	"github.com/ayusman/handboard/internal/server"
	"github.com/ayusman/handboard/internal/store"
)

type routesBody struct {
	Routes []engine.RouteSummary `json:"routes"`
	Mode   string                `json:"mode"`
}

type settingBody struct {
	Key        string  `json:"key"`
	Value      float64 `json:"value"`
	Default    float64 `json:"default"`
	Overridden bool    `json:"overridden"`
}

func pinchAt(x, y float64) detector.HandLandmarks {
	h := detector.PinchLandmarks()
	tip := h.Points[detector.IndexTip]
	return h.Translated(x-tip.X, y-tip.Y)
}

func fistAt(x, y float64) detector.HandLandmarks {
	h := detector.FistLandmarks()
	tip := h.Points[detector.IndexTip]
	return h.Translated(x-tip.X, y-tip.Y)
}

func getRoutes(t *testing.T, client *http.Client, url string) routesBody {
	t.Helper()
	resp, err := client.Get(url + "/api/routes")
	if err != nil {
		t.Fatalf("GET /api/routes error = %v", err)
	}
	defer resp.Body.Close()

	var body routesBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode routes: %v", err)
	}
	return body
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cfg := config.Default()
	cfg.Camera.Mirror = false
	cfg.Stroke.Smoothing = 0

	hub := server.NewHub(time.Millisecond)
	renderer := render.NewRenderer(hub, cfg.Render.TubeRadius, cfg.Render.Radial)
	eng := engine.New(cfg.EngineConfig(), renderer, hub)

	modes := make(chan engine.Mode, 16)
	eng.OnModeChange(func(m engine.Mode) {
		select {
		case modes <- m:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	srv := server.New(server.Config{
		Store:    s,
		Events:   eng,
		Hub:      hub,
		Defaults: cfg.Tunings(),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("DrawRoute", func(t *testing.T) {
		base := time.Now()
		frames := []engine.FrameEvent{
			{Hands: []detector.HandLandmarks{pinchAt(0.60, 0.50)}, At: base},
			{Hands: []detector.HandLandmarks{pinchAt(0.65, 0.50)}, At: base.Add(50 * time.Millisecond)},
			{Hands: []detector.HandLandmarks{pinchAt(0.70, 0.50)}, At: base.Add(100 * time.Millisecond)},
			{Hands: []detector.HandLandmarks{detector.OpenPalmLandmarks()}, At: base.Add(300 * time.Millisecond)},
		}
		for _, f := range frames {
			if err := eng.Post(f); err != nil {
				t.Fatalf("Post() error = %v", err)
			}
		}

		waitFor(t, "one route", func() bool {
			return len(getRoutes(t, client, ts.URL).Routes) == 1
		})

		body := getRoutes(t, client, ts.URL)
		if body.Mode != engine.ModeIdle.String() {
			t.Errorf("mode = %q, want %q", body.Mode, engine.ModeIdle)
		}
		if len(body.Routes[0].Points) < 2 {
			t.Errorf("route has %d points, want at least 2", len(body.Routes[0].Points))
		}
		if hub.Meshes() != 1 {
			t.Errorf("hub tracks %d meshes, want 1", hub.Meshes())
		}

		var seen []engine.Mode
		for len(seen) < 2 {
			select {
			case m := <-modes:
				seen = append(seen, m)
			case <-time.After(time.Second):
				t.Fatalf("mode changes = %v, want [draw idle]", seen)
			}
		}
		if seen[0] != engine.ModeDraw || seen[1] != engine.ModeIdle {
			t.Errorf("mode changes = %v, want [draw idle]", seen)
		}
	})

	t.Run("TuneSetting", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut,
			ts.URL+"/api/settings/"+engine.KeyHoverRadius,
			strings.NewReader(`{"value": 0.8}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT setting error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var body settingBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode setting: %v", err)
		}
		if !body.Overridden || body.Value != 0.8 {
			t.Errorf("setting = %+v, want overridden 0.8", body)
		}
		if body.Default != cfg.Erase.HoverRadius {
			t.Errorf("default = %v, want %v", body.Default, cfg.Erase.HoverRadius)
		}

		stored, err := s.Settings().Map()
		if err != nil {
			t.Fatalf("Settings().Map() error = %v", err)
		}
		if stored[engine.KeyHoverRadius] != 0.8 {
			t.Errorf("stored = %v, want 0.8", stored[engine.KeyHoverRadius])
		}
	})

	t.Run("RoutesAreReadOnly", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/routes", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("DELETE routes error = %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
		}
		if n := len(getRoutes(t, client, ts.URL).Routes); n != 1 {
			t.Errorf("routes after DELETE = %d, want 1", n)
		}
	})

	t.Run("EraseRoute", func(t *testing.T) {
		base := time.Now()
		if err := eng.Post(engine.FrameEvent{
			Hands: []detector.HandLandmarks{fistAt(0.65, 0.50)},
			At:    base.Add(time.Second),
		}); err != nil {
			t.Fatalf("Post() error = %v", err)
		}

		waitFor(t, "empty board", func() bool {
			return len(getRoutes(t, client, ts.URL).Routes) == 0
		})
		if hub.Meshes() != 0 {
			t.Errorf("hub tracks %d meshes after erase, want 0", hub.Meshes())
		}
	})

	cancel()
	select {
	case err := <-engineDone:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestE2E_TrackingPipelineDrivesEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Camera.Mirror = false

	hub := server.NewHub(time.Millisecond)
	renderer := render.NewRenderer(hub, cfg.Render.TubeRadius, cfg.Render.Radial)
	eng := engine.New(cfg.EngineConfig(), renderer, hub)

	drawing := make(chan struct{})
	eng.OnModeChange(func(m engine.Mode) {
		if m == engine.ModeDraw {
			select {
			case <-drawing:
			default:
				close(drawing)
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	tracker := app.New(cfg.AppConfig(), eng)
	mock := detector.NewMockDetector()
	mock.SetHands([]detector.HandLandmarks{detector.PinchLandmarks()})
	tracker.SetDetector(mock)

	frames := capture.SyntheticFrames(8, 320, 240)
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()
	tracker.SetCamera(capture.NewMockCamera(frames, true))
	tracker.SetEnabled(true)

	if err := tracker.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tracker.Stop()

	select {
	case <-drawing:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never entered draw mode")
	}

	waitFor(t, "live stroke in snapshot", func() bool {
		snap, ok := hub.Latest()
		return ok && snap.Mode == engine.ModeDraw.String() && len(snap.Stroke) > 0
	})
}
