package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/pointer"
	"github.com/ayusman/handboard/internal/server/api"
)

// PointerHandler accepts pointer positions from an external tracker on a
// websocket. Each text message {"x": 0..1, "y": 0..1} moves the shared
// pointer as the network source, or as the device source when tagged
// "source": "device"; malformed messages are dropped.
type PointerHandler struct {
	events api.EventPoster
}

// NewPointerHandler creates a handler that posts to events.
func NewPointerHandler(events api.EventPoster) *PointerHandler {
	return &PointerHandler{events: events}
}

func (h *PointerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		pos, src, ok := pointer.ParseMessage(data)
		if !ok {
			continue
		}
		h.events.Post(engine.PointerEvent{Pos: pos, Source: src, At: time.Now()})
	}
}
