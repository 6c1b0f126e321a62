package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handboard/internal/route"
)

// Mesh operation kinds sent to the display client.
const (
	OpCreate  = "create"
	OpDispose = "dispose"
)

// Tube defaults.
const (
	DefaultRadius = 0.08
	DefaultRadial = 8
)

// MeshOp tells the display client to add or drop a mesh.
type MeshOp struct {
	Op   string    `json:"op"`
	ID   uint64    `json:"id"`
	Mesh *TubeMesh `json:"mesh,omitempty"`
}

// Sink receives mesh operations. Implementations must not block.
type Sink interface {
	PublishMesh(op MeshOp)
}

// Renderer implements route.MeshFactory. It tessellates tubes locally and
// forwards create/dispose operations to a Sink. It is not safe for
// concurrent use; the engine calls it from its own goroutine.
type Renderer struct {
	sink   Sink
	radius float64
	radial int
	nextID uint64
	live   map[uint64]struct{}
}

// NewRenderer creates a renderer publishing to sink. A nil sink discards
// operations.
func NewRenderer(sink Sink, radius float64, radial int) *Renderer {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if radial < 3 {
		radial = DefaultRadial
	}
	return &Renderer{
		sink:   sink,
		radius: radius,
		radial: radial,
		live:   make(map[uint64]struct{}),
	}
}

// BuildTube tessellates points and announces the new mesh.
func (r *Renderer) BuildTube(points []r3.Vec, segments int) route.Mesh {
	r.nextID++
	h := &handle{renderer: r, id: r.nextID}
	mesh := Tessellate(points, segments, r.radial, r.radius)

	r.live[h.id] = struct{}{}
	r.publish(MeshOp{Op: OpCreate, ID: h.id, Mesh: &mesh})
	return h
}

// Live returns the number of meshes created and not yet disposed.
func (r *Renderer) Live() int {
	return len(r.live)
}

func (r *Renderer) publish(op MeshOp) {
	if r.sink != nil {
		r.sink.PublishMesh(op)
	}
}

// handle is the route.Mesh given out by BuildTube. Dispose is idempotent.
type handle struct {
	renderer *Renderer
	id       uint64
	disposed bool
}

func (h *handle) Dispose() {
	if h.disposed {
		return
	}
	h.disposed = true
	delete(h.renderer.live, h.id)
	h.renderer.publish(MeshOp{Op: OpDispose, ID: h.id})
}

// ID returns the mesh identifier shared with the display client.
func (h *handle) ID() uint64 {
	return h.id
}
