package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/pointer"
	"github.com/ayusman/handboard/internal/render"
)

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestPointerSocket(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	poster := &recordingPoster{}
	ts := httptest.NewServer(New(Config{Events: poster}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/pointer"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	for _, msg := range []string{
		`{"x": 0.25, "y": 0.75, "pinch": true}`,
		`{"x": 1.5, "y": 0.5}`,
		`not json`,
		`{"x": 0.5}`,
		`{"x": 0.5, "y": 0.5, "source": "device"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(poster.snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	events := poster.snapshot()
	if len(events) != 2 {
		t.Fatalf("posted %d events, want 2 (malformed messages dropped)", len(events))
	}
	first, ok := events[0].(engine.PointerEvent)
	if !ok {
		t.Fatalf("posted %T, want engine.PointerEvent", events[0])
	}
	if first.Pos.X != 0.25 || first.Pos.Y != 0.75 || first.Source != pointer.SourceNetwork {
		t.Errorf("first event = %+v", first)
	}
	second, ok := events[1].(engine.PointerEvent)
	if !ok || second.Source != pointer.SourceDevice {
		t.Errorf("second event = %+v, want device source", events[1])
	}
}

func TestBoardSocket(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	hub := NewHub(time.Millisecond)
	hub.PublishMesh(render.MeshOp{Op: render.OpCreate, ID: 7, Mesh: &render.TubeMesh{}})
	hub.PublishSnapshot(engine.Snapshot{Mode: "idle", At: time.Now()})

	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/board"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	read := func() boardMessage {
		t.Helper()
		var msg boardMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read error = %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != "mesh" || msg.Mesh.ID != 7 {
		t.Errorf("first message = %+v, want replay of mesh 7", msg)
	}
	if msg := read(); msg.Type != "snapshot" || msg.Snapshot.Mode != "idle" {
		t.Errorf("second message = %+v, want latest snapshot", msg)
	}

	deadline := time.Now().Add(time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.PublishMesh(render.MeshOp{Op: render.OpDispose, ID: 7})
	if msg := read(); msg.Type != "mesh" || msg.Mesh.Op != render.OpDispose {
		t.Errorf("live message = %+v, want dispose", msg)
	}

	hub.PublishSnapshot(engine.Snapshot{Mode: "rotate", At: time.Now().Add(time.Second)})
	msg := read()
	if msg.Type != "snapshot" || msg.Snapshot.Mode != "rotate" {
		t.Errorf("live snapshot = %+v", msg)
	}
	raw, _ := json.Marshal(msg.Snapshot)
	if !strings.Contains(string(raw), `"mode":"rotate"`) {
		t.Errorf("snapshot JSON = %s", raw)
	}
}

func TestBoardSocket_LargeReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	hub := NewHub(time.Millisecond)
	live := clientBuffer * 2
	for i := 1; i <= live; i++ {
		hub.PublishMesh(render.MeshOp{Op: render.OpCreate, ID: uint64(i)})
	}

	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/board"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	seen := make(map[uint64]bool, live)
	for len(seen) < live {
		var msg boardMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read error after %d meshes = %v", len(seen), err)
		}
		if msg.Type == "mesh" && msg.Mesh != nil {
			seen[msg.Mesh.ID] = true
		}
	}
}
