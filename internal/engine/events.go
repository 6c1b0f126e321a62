package engine

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/handboard/internal/detector"
	"github.com/ayusman/handboard/internal/pointer"
)

// Event is anything the engine loop consumes. Every producer (tracking
// pipeline, websocket handlers, tray, HTTP API) goes through the same
// queue.
type Event interface {
	event()
}

// FrameEvent carries one tracking result: zero, one or two hands.
type FrameEvent struct {
	Hands []detector.HandLandmarks
	At    time.Time
}

// PointerEvent moves the shared pointer from a non-tracking source.
type PointerEvent struct {
	Pos    r2.Vec
	Source pointer.Source
	At     time.Time
}

// TuningEvent changes one runtime-tunable parameter.
type TuningEvent struct {
	Key   string
	Value float64
}

func (FrameEvent) event()   {}
func (PointerEvent) event() {}
func (TuningEvent) event()  {}

// Runtime tuning keys accepted by TuningEvent.
const (
	KeyPinchThreshold    = "gesture.pinch_threshold"
	KeyFistCurlRatio     = "gesture.fist_curl_ratio"
	KeyFistThumbRatio    = "gesture.fist_thumb_ratio"
	KeyHoverRadius       = "erase.hover_radius"
	KeyRotateSensitivity = "view.rotate_sensitivity"
	KeyZoomSensitivity   = "view.zoom_sensitivity"
)

// TuningKeys lists every key accepted by TuningEvent.
var TuningKeys = []string{
	KeyPinchThreshold,
	KeyFistCurlRatio,
	KeyFistThumbRatio,
	KeyHoverRadius,
	KeyRotateSensitivity,
	KeyZoomSensitivity,
}

// IsTuningKey reports whether key can be tuned at runtime.
func IsTuningKey(key string) bool {
	for _, k := range TuningKeys {
		if k == key {
			return true
		}
	}
	return false
}
