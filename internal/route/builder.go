package route

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Builder owns the single in-progress stroke. Points are smoothed, gated,
// straightened and periodically re-tessellated; on End the stroke moves
// into the Store as a Route.
type Builder struct {
	config  Config
	factory MeshFactory
	store   *Store

	active       bool
	points       []r3.Vec
	smoothed     r3.Vec
	seeded       bool
	sinceRebuild int
	mesh         Mesh
	rebuilds     int
}

// NewBuilder creates a builder that finalizes strokes into store.
func NewBuilder(config Config, factory MeshFactory, store *Store) *Builder {
	if config.RebuildEvery < 1 {
		config.RebuildEvery = 1
	}
	return &Builder{config: config, factory: factory, store: store}
}

// SetConfig replaces the stroke parameters; it takes effect on the next point.
func (b *Builder) SetConfig(config Config) {
	if config.RebuildEvery < 1 {
		config.RebuildEvery = 1
	}
	b.config = config
}

// Active reports whether a stroke is in progress.
func (b *Builder) Active() bool {
	return b.active
}

// Points returns a copy of the in-progress stroke.
func (b *Builder) Points() []r3.Vec {
	out := make([]r3.Vec, len(b.points))
	copy(out, b.points)
	return out
}

// Rebuilds is the number of meshes built so far.
func (b *Builder) Rebuilds() int {
	return b.rebuilds
}

// Start begins a new, empty stroke. Any dangling in-progress mesh is
// disposed.
func (b *Builder) Start() {
	b.disposeMesh()
	b.active = true
	b.points = nil
	b.seeded = false
	b.smoothed = r3.Vec{}
	b.sinceRebuild = 0
}

// Add feeds one raw board-local point into the stroke and reports whether
// it was appended.
func (b *Builder) Add(raw r3.Vec) bool {
	if !b.active {
		return false
	}

	if !b.seeded {
		b.smoothed = raw
		b.seeded = true
	} else {
		b.smoothed = lerp(b.smoothed, raw, 1-b.config.Smoothing)
	}
	p := b.smoothed

	if n := len(b.points); n > 0 {
		last := b.points[n-1]
		if r3.Norm(r3.Sub(p, last)) < b.config.MinStep {
			return false
		}
		if !b.appendable(p) {
			return false
		}
	}

	b.points = append(b.points, p)
	b.sinceRebuild++

	if b.straighten() {
		b.rebuild()
		return true
	}
	if b.sinceRebuild >= b.config.RebuildEvery {
		b.rebuild()
	}
	return true
}

// End finalizes the stroke. A final rebuild always runs; strokes with at
// least two points are stored and the route takes ownership of the mesh.
func (b *Builder) End(now time.Time) *Route {
	if !b.active {
		return nil
	}
	b.rebuild()
	b.active = false

	points := b.points
	b.points = nil
	b.seeded = false
	b.sinceRebuild = 0

	if len(points) < 2 {
		b.disposeMesh()
		return nil
	}

	r := &Route{
		ID:        uuid.NewString(),
		Points:    points,
		CreatedAt: now,
		mesh:      b.mesh,
	}
	b.mesh = nil
	b.store.Add(r)
	return r
}

// Discard drops the in-progress stroke without storing it.
func (b *Builder) Discard() {
	b.disposeMesh()
	b.active = false
	b.points = nil
	b.seeded = false
	b.sinceRebuild = 0
}

// appendable is the fine duplicate gate applied at append time.
func (b *Builder) appendable(p r3.Vec) bool {
	n := len(b.points)
	if n == 0 {
		return true
	}
	return r3.Norm2(r3.Sub(p, b.points[n-1])) >= b.config.DuplicateEpsilon
}

// straighten pulls the second-to-last point toward the chord of its
// neighbours when the three latest points are nearly collinear.
func (b *Builder) straighten() bool {
	n := len(b.points)
	if n < 3 {
		return false
	}
	a, mid, c := b.points[n-3], b.points[n-2], b.points[n-1]
	if cornerAngle(a, mid, c) <= 180-b.config.StraightenDeg {
		return false
	}
	target := closestOnSegment(mid, a, c)
	if r3.Norm2(r3.Sub(target, mid)) == 0 {
		return false
	}
	b.points[n-2] = lerp(mid, target, b.config.SnapFactor)
	return true
}

// rebuild replaces the active mesh with one tessellated from every point.
func (b *Builder) rebuild() {
	b.disposeMesh()
	b.sinceRebuild = 0
	if len(b.points) < 2 || b.factory == nil {
		return
	}
	points := make([]r3.Vec, len(b.points))
	copy(points, b.points)
	b.mesh = b.factory.BuildTube(points, b.config.segments(len(points)))
	b.rebuilds++
}

func (b *Builder) disposeMesh() {
	if b.mesh != nil {
		b.mesh.Dispose()
		b.mesh = nil
	}
}
