// Package detector provides hand detection interfaces and landmark types.
package detector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// MaxHands is the most hands a tracking frame carries.
const MaxHands = 2

// Point3D is a landmark position. X and Y are normalized to the image
// ([0,1], origin top-left); Z is depth relative to the wrist.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// XY drops the depth component.
func (p Point3D) XY() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Dist2 returns the squared Euclidean distance between two points.
func (p Point3D) Dist2(q Point3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// Dist returns the Euclidean distance between two points.
func (p Point3D) Dist(q Point3D) float64 {
	return math.Sqrt(p.Dist2(q))
}

// HandLandmarks is one detected hand: exactly 21 landmarks.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Mirrored flips the hand horizontally so that movement matches a
// selfie view. Handedness labels are swapped accordingly.
func (h HandLandmarks) Mirrored() HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X = 1 - out.Points[i].X
	}
	switch h.Handedness {
	case "Left":
		out.Handedness = "Right"
	case "Right":
		out.Handedness = "Left"
	}
	return out
}

// Translated shifts every landmark by (dx, dy) in normalized image space.
func (h HandLandmarks) Translated(dx, dy float64) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X += dx
		out.Points[i].Y += dy
	}
	return out
}
