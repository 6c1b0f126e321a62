// Package route builds strokes from projected pointer positions and keeps
// the finalized routes drawn on the board.
package route

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a renderer-owned tube mesh. Dispose must be called exactly
// once before the last reference is dropped.
type Mesh interface {
	Dispose()
}

// MeshFactory builds tube meshes from board-local points.
type MeshFactory interface {
	BuildTube(points []r3.Vec, segments int) Mesh
}

// Stroke and route tuning defaults. Lengths are in board units.
const (
	DefaultSmoothing        = 0.5
	DefaultMinStep          = 0.05
	DefaultDuplicateEpsilon = 1e-6
	DefaultRebuildEvery     = 3
	DefaultStraightenDeg    = 12.0
	DefaultSnapFactor       = 0.5
	DefaultMinSegments      = 8
	DefaultSegmentsPerPoint = 4

	DefaultHoverRadius   = 0.7
	DefaultEraseCooldown = 300 * time.Millisecond
)

// Config holds stroke construction and erasing parameters.
type Config struct {
	// Smoothing is the EMA alpha: smoothed = lerp(smoothed, raw, 1-alpha).
	Smoothing float64
	// MinStep is the distance a smoothed point must travel from the last
	// accepted point before it is appended.
	MinStep float64
	// DuplicateEpsilon is the squared distance under which a point counts
	// as a repeat of the last one.
	DuplicateEpsilon float64
	// RebuildEvery is the number of accepted points between mesh rebuilds.
	RebuildEvery int
	// StraightenDeg is how far from 180 degrees a corner may be and still
	// be straightened.
	StraightenDeg float64
	// SnapFactor is how far a straightened point moves toward its chord.
	SnapFactor       float64
	MinSegments      int
	SegmentsPerPoint int

	HoverRadius   float64
	EraseCooldown time.Duration
}

// DefaultConfig returns the default stroke and eraser parameters.
func DefaultConfig() Config {
	return Config{
		Smoothing:        DefaultSmoothing,
		MinStep:          DefaultMinStep,
		DuplicateEpsilon: DefaultDuplicateEpsilon,
		RebuildEvery:     DefaultRebuildEvery,
		StraightenDeg:    DefaultStraightenDeg,
		SnapFactor:       DefaultSnapFactor,
		MinSegments:      DefaultMinSegments,
		SegmentsPerPoint: DefaultSegmentsPerPoint,
		HoverRadius:      DefaultHoverRadius,
		EraseCooldown:    DefaultEraseCooldown,
	}
}

// Route is a finalized stroke. Its points never change; it is only ever
// removed whole.
type Route struct {
	ID        string
	Points    []r3.Vec
	CreatedAt time.Time

	mesh Mesh
}

// release disposes the route's mesh, if any.
func (r *Route) release() {
	if r.mesh != nil {
		r.mesh.Dispose()
		r.mesh = nil
	}
}

// segments returns the tessellation density for a stroke of n points.
func (c Config) segments(n int) int {
	s := n * c.SegmentsPerPoint
	if s < c.MinSegments {
		return c.MinSegments
	}
	return s
}
