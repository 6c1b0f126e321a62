package route

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

func lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// closestOnSegment projects p onto segment ab, clamped to its ends.
func closestOnSegment(p, a, b r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return a
	}
	t := r3.Dot(r3.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return r3.Add(a, r3.Scale(t, ab))
}

// segmentDist2XZ is the squared distance from p to segment ab measured in
// the board plane; the height (Y) is ignored.
func segmentDist2XZ(p, a, b r3.Vec) float64 {
	flat := func(v r3.Vec) r3.Vec { return r3.Vec{X: v.X, Z: v.Z} }
	c := closestOnSegment(flat(p), flat(a), flat(b))
	return r3.Norm2(r3.Sub(flat(p), c))
}

// cornerAngle returns the interior angle at b, in degrees, formed by a-b-c.
// Degenerate corners report 0.
func cornerAngle(a, b, c r3.Vec) float64 {
	ba := r3.Sub(a, b)
	bc := r3.Sub(c, b)
	n := r3.Norm(ba) * r3.Norm(bc)
	if n == 0 {
		return 0
	}
	cos := math.Max(-1, math.Min(1, r3.Dot(ba, bc)/n))
	return math.Acos(cos) * 180 / math.Pi
}
