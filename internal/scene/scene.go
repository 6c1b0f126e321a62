// Package scene holds the board and camera transforms and projects the
// 2D pointer onto the board plane.
package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	xAxis = r3.Vec{X: 1}
	yAxis = r3.Vec{Y: 1}
)

// Board is the rotatable annotation plane. Its local up axis is +Y, so
// drawn points live in the local XZ plane.
type Board struct {
	Yaw      float64
	Pitch    float64
	Position r3.Vec
}

func (b *Board) yaw() r3.Rotation   { return r3.NewRotation(b.Yaw, yAxis) }
func (b *Board) pitch() r3.Rotation { return r3.NewRotation(b.Pitch, xAxis) }

// ToWorld maps a board-local point into world space. Pitch is applied
// before yaw.
func (b *Board) ToWorld(local r3.Vec) r3.Vec {
	return r3.Add(b.yaw().Rotate(b.pitch().Rotate(local)), b.Position)
}

// ToLocal is the inverse of ToWorld.
func (b *Board) ToLocal(world r3.Vec) r3.Vec {
	p := r3.Sub(world, b.Position)
	p = r3.NewRotation(-b.Yaw, yAxis).Rotate(p)
	return r3.NewRotation(-b.Pitch, xAxis).Rotate(p)
}

// Normal is the board's local up axis in world space.
func (b *Board) Normal() r3.Vec {
	return r3.Unit(b.yaw().Rotate(b.pitch().Rotate(yAxis)))
}

// ClampPitch keeps the pitch inside [min, max].
func (b *Board) ClampPitch(min, max float64) {
	b.Pitch = math.Max(min, math.Min(max, b.Pitch))
}

// Camera orbits a fixed target. Direction points from the target towards
// the camera and is never changed by zooming; only Distance is.
type Camera struct {
	Target    r3.Vec
	Direction r3.Vec
	Distance  float64
	// FOV is the vertical field of view in radians.
	FOV    float64
	Aspect float64
}

// Position is the camera's world-space eye point.
func (c *Camera) Position() r3.Vec {
	return r3.Add(c.Target, r3.Scale(c.Distance, r3.Unit(c.Direction)))
}

// ClampDistance keeps the distance inside [min, max].
func (c *Camera) ClampDistance(min, max float64) {
	c.Distance = math.Max(min, math.Min(max, c.Distance))
}

// Ray is a half-line in world space. Dir is unit length.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// Ray builds the world-space ray through a normalized device coordinate
// (x right, y up, both in [-1, 1]).
func (c *Camera) Ray(ndc r2.Vec) Ray {
	forward := r3.Scale(-1, r3.Unit(c.Direction))
	right := r3.Cross(forward, yAxis)
	if r3.Norm2(right) < 1e-12 {
		right = xAxis
	}
	right = r3.Unit(right)
	up := r3.Cross(right, forward)

	tan := math.Tan(c.FOV / 2)
	dir := r3.Add(forward, r3.Add(
		r3.Scale(ndc.X*tan*c.Aspect, right),
		r3.Scale(ndc.Y*tan, up),
	))
	return Ray{Origin: c.Position(), Dir: r3.Unit(dir)}
}

// Plane is an infinite plane through Point with unit Normal.
type Plane struct {
	Point  r3.Vec
	Normal r3.Vec
}

// parallelEpsilon is the smallest |dot(normal, dir)| treated as a hit.
const parallelEpsilon = 1e-9

// Intersect returns where the ray meets the plane. Rays parallel to the
// plane or pointing away from it report no hit.
func (p Plane) Intersect(ray Ray) (r3.Vec, bool) {
	denom := r3.Dot(p.Normal, ray.Dir)
	if math.Abs(denom) < parallelEpsilon {
		return r3.Vec{}, false
	}
	t := r3.Dot(p.Normal, r3.Sub(p.Point, ray.Origin)) / denom
	if t < 0 {
		return r3.Vec{}, false
	}
	return r3.Add(ray.Origin, r3.Scale(t, ray.Dir)), true
}

// ToNDC converts a normalized pointer (origin top-left, y down) into
// device coordinates.
func ToNDC(pointer r2.Vec) r2.Vec {
	return r2.Vec{X: pointer.X*2 - 1, Y: 1 - pointer.Y*2}
}

// Project maps a normalized pointer onto the board plane and returns the
// hit in board-local coordinates. The plane is rebuilt from the board's
// current orientation on every call.
func Project(cam *Camera, board *Board, pointer r2.Vec) (r3.Vec, bool) {
	plane := Plane{Point: board.Position, Normal: board.Normal()}
	hit, ok := plane.Intersect(cam.Ray(ToNDC(pointer)))
	if !ok {
		return r3.Vec{}, false
	}
	return board.ToLocal(hit), true
}
