// Package pointer keeps the shared 2D pointer and decodes pointer messages
// from the network channel.
package pointer

import (
	"encoding/json"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Source identifies who wrote the pointer.
type Source int

const (
	SourceNone Source = iota
	SourceTracking
	SourceNetwork
	SourceDevice
)

func (s Source) String() string {
	switch s {
	case SourceTracking:
		return "tracking"
	case SourceNetwork:
		return "network"
	case SourceDevice:
		return "device"
	default:
		return "none"
	}
}

// State is a normalized pointer position. Whichever source wrote last wins.
type State struct {
	Pos       r2.Vec
	Source    Source
	UpdatedAt time.Time
}

// Valid reports whether any source has written a position yet.
func (s State) Valid() bool {
	return s.Source != SourceNone
}

// Set overwrites the pointer.
func (s *State) Set(pos r2.Vec, src Source, at time.Time) {
	s.Pos = pos
	s.Source = src
	s.UpdatedAt = at
}

// message is the wire form: {"x": 0..1, "y": 0..1, "source": "device"}.
// "source" is optional and defaults to network; a browser relaying mouse
// or touch input tags it "device". Other fields, such as "pinch", are
// accepted and ignored.
type message struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Source string   `json:"source"`
}

// ParseMessage decodes a pointer message. It reports false for anything
// that is not a JSON object with finite x and y inside [0, 1], or whose
// source is neither "network" nor "device".
func ParseMessage(data []byte) (r2.Vec, Source, bool) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return r2.Vec{}, SourceNone, false
	}
	if m.X == nil || m.Y == nil {
		return r2.Vec{}, SourceNone, false
	}
	x, y := *m.X, *m.Y
	if !normalized(x) || !normalized(y) {
		return r2.Vec{}, SourceNone, false
	}

	var src Source
	switch m.Source {
	case "", "network":
		src = SourceNetwork
	case "device":
		src = SourceDevice
	default:
		return r2.Vec{}, SourceNone, false
	}
	return r2.Vec{X: x, Y: y}, src, true
}

func normalized(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
