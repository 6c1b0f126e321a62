package engine

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// shimmerPeriod is one full cycle of the cursor shimmer.
const shimmerPeriod = 1500 * time.Millisecond

// retargetEpsilon is how far the pointer must move before the cursor
// tween restarts.
const retargetEpsilon = 1e-4

// FrameLoop eases the on-screen cursor towards the pointer and advances
// the shimmer phase. It holds presentation state only.
type FrameLoop struct {
	duration float32

	cursor  r2.Vec
	target  r2.Vec
	tweenX  *gween.Tween
	tweenY  *gween.Tween
	visible bool
	phase   float64
}

// NewFrameLoop creates a loop whose cursor reaches a new pointer position
// within easeFor.
func NewFrameLoop(easeFor time.Duration) *FrameLoop {
	if easeFor <= 0 {
		easeFor = DefaultCursorEase
	}
	return &FrameLoop{duration: float32(easeFor.Seconds())}
}

// Advance moves the cursor towards target by dt and returns its position.
// An invalid pointer hides the cursor; the next valid one snaps it.
func (l *FrameLoop) Advance(target r2.Vec, valid bool, dt time.Duration) r2.Vec {
	l.phase = math.Mod(l.phase+dt.Seconds()/shimmerPeriod.Seconds(), 1)

	if !valid {
		l.visible = false
		l.tweenX, l.tweenY = nil, nil
		return l.cursor
	}
	if !l.visible {
		l.visible = true
		l.cursor, l.target = target, target
		return l.cursor
	}

	if r2.Norm(r2.Sub(target, l.target)) > retargetEpsilon {
		l.target = target
		l.tweenX = gween.New(float32(l.cursor.X), float32(target.X), l.duration, ease.OutQuad)
		l.tweenY = gween.New(float32(l.cursor.Y), float32(target.Y), l.duration, ease.OutQuad)
	}
	if l.tweenX != nil {
		step := float32(dt.Seconds())
		x, doneX := l.tweenX.Update(step)
		y, doneY := l.tweenY.Update(step)
		l.cursor = r2.Vec{X: float64(x), Y: float64(y)}
		if doneX && doneY {
			l.cursor = l.target
			l.tweenX, l.tweenY = nil, nil
		}
	}
	return l.cursor
}

// Visible reports whether the cursor is shown.
func (l *FrameLoop) Visible() bool { return l.visible }

// Shimmer returns the shimmer intensity in [0, 1].
func (l *FrameLoop) Shimmer() float64 {
	return 0.5 + 0.5*math.Sin(2*math.Pi*l.phase)
}

// Vec2 is a JSON-friendly 2D point.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a JSON-friendly 3D point.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RouteSummary describes one finalized route for display clients.
type RouteSummary struct {
	ID        string    `json:"id"`
	Points    []Vec3    `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is the display state published on every tick.
type Snapshot struct {
	Mode           string         `json:"mode"`
	Cursor         Vec2           `json:"cursor"`
	CursorVisible  bool           `json:"cursor_visible"`
	Pointer        Vec2           `json:"pointer"`
	Source         string         `json:"source"`
	Yaw            float64        `json:"yaw"`
	Pitch          float64        `json:"pitch"`
	CameraDistance float64        `json:"camera_distance"`
	Shimmer        float64        `json:"shimmer"`
	Routes         []RouteSummary `json:"routes"`
	Stroke         []Vec3         `json:"stroke,omitempty"`
	At             time.Time      `json:"at"`
}

func (e *Engine) snapshot(cursor r2.Vec, now time.Time) Snapshot {
	routes := e.routes.Routes()
	s := Snapshot{
		Mode:           e.machine.Mode.String(),
		Cursor:         Vec2{X: cursor.X, Y: cursor.Y},
		CursorVisible:  e.loop.Visible(),
		Pointer:        Vec2{X: e.pointer.Pos.X, Y: e.pointer.Pos.Y},
		Source:         e.pointer.Source.String(),
		Yaw:            e.board.Yaw,
		Pitch:          e.board.Pitch,
		CameraDistance: e.camera.Distance,
		Shimmer:        e.loop.Shimmer(),
		Routes:         make([]RouteSummary, 0, len(routes)),
		At:             now,
	}
	for _, r := range routes {
		s.Routes = append(s.Routes, RouteSummary{
			ID:        r.ID,
			Points:    toVec3s(r.Points),
			CreatedAt: r.CreatedAt,
		})
	}
	if e.builder.Active() {
		s.Stroke = toVec3s(e.builder.Points())
	}
	return s
}

func toVec3s(points []r3.Vec) []Vec3 {
	out := make([]Vec3, len(points))
	for i, p := range points {
		out[i] = Vec3{X: p.X, Y: p.Y, Z: p.Z}
	}
	return out
}
