// Package render tessellates route polylines into tube meshes and hands
// them to the display client.
package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TubeMesh is an indexed triangle mesh. Vertices are packed x,y,z.
type TubeMesh struct {
	Vertices []float32 `json:"vertices"`
	Indices  []uint32  `json:"indices"`
}

// Tessellate sweeps a circle of the given radius along a Catmull-Rom
// curve through points. segments is the number of rings minus one and
// radial the number of vertices per ring. Fewer than two points yield an
// empty mesh.
func Tessellate(points []r3.Vec, segments, radial int, radius float64) TubeMesh {
	if len(points) < 2 || segments < 1 || radial < 3 {
		return TubeMesh{}
	}

	centres := resample(points, segments)
	tangents := tangentsOf(centres)

	normal := perpendicular(tangents[0])
	vertices := make([]float32, 0, len(centres)*radial*3)
	for i, c := range centres {
		t := tangents[i]
		// Parallel transport: drop the tangential part of the previous normal.
		n := r3.Sub(normal, r3.Scale(r3.Dot(normal, t), t))
		if r3.Norm2(n) < 1e-12 {
			n = perpendicular(t)
		}
		normal = r3.Unit(n)
		binormal := r3.Cross(t, normal)

		for k := 0; k < radial; k++ {
			sin, cos := math.Sincos(2 * math.Pi * float64(k) / float64(radial))
			offset := r3.Add(r3.Scale(cos*radius, normal), r3.Scale(sin*radius, binormal))
			v := r3.Add(c, offset)
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
		}
	}

	indices := make([]uint32, 0, segments*radial*6)
	for i := 0; i < len(centres)-1; i++ {
		for k := 0; k < radial; k++ {
			a := uint32(i*radial + k)
			b := uint32(i*radial + (k+1)%radial)
			c := uint32((i+1)*radial + k)
			d := uint32((i+1)*radial + (k+1)%radial)
			indices = append(indices, a, c, b, b, c, d)
		}
	}

	return TubeMesh{Vertices: vertices, Indices: indices}
}

// resample evaluates a uniform Catmull-Rom spline through points at
// segments+1 evenly spaced parameters.
func resample(points []r3.Vec, segments int) []r3.Vec {
	n := len(points)
	at := func(i int) r3.Vec {
		if i < 0 {
			return points[0]
		}
		if i >= n {
			return points[n-1]
		}
		return points[i]
	}

	out := make([]r3.Vec, segments+1)
	span := float64(n - 1)
	for s := 0; s <= segments; s++ {
		u := span * float64(s) / float64(segments)
		i := int(math.Floor(u))
		if i >= n-1 {
			i = n - 2
		}
		out[s] = catmullRom(at(i-1), at(i), at(i+1), at(i+2), u-float64(i))
	}
	return out
}

func catmullRom(p0, p1, p2, p3 r3.Vec, t float64) r3.Vec {
	t2 := t * t
	t3 := t2 * t
	a := r3.Scale(2, p1)
	b := r3.Scale(t, r3.Sub(p2, p0))
	c := r3.Scale(t2, r3.Add(r3.Sub(r3.Scale(2, p0), r3.Scale(5, p1)), r3.Sub(r3.Scale(4, p2), p3)))
	d := r3.Scale(t3, r3.Add(r3.Sub(r3.Scale(3, p1), p0), r3.Sub(p3, r3.Scale(3, p2))))
	return r3.Scale(0.5, r3.Add(r3.Add(a, b), r3.Add(c, d)))
}

func tangentsOf(centres []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(centres))
	last := r3.Vec{X: 1}
	for i := range centres {
		prev := centres[max(i-1, 0)]
		next := centres[min(i+1, len(centres)-1)]
		d := r3.Sub(next, prev)
		if r3.Norm2(d) > 1e-18 {
			last = r3.Unit(d)
		}
		out[i] = last
	}
	return out
}

// perpendicular returns some unit vector orthogonal to t.
func perpendicular(t r3.Vec) r3.Vec {
	ref := r3.Vec{Y: 1}
	if math.Abs(r3.Dot(ref, t)) > 0.9 {
		ref = r3.Vec{X: 1}
	}
	return r3.Unit(r3.Cross(t, ref))
}
