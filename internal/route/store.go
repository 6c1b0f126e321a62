package route

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Store holds finalized routes in insertion order.
type Store struct {
	routes []*Route
}

// NewStore creates an empty route store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a route.
func (s *Store) Add(r *Route) {
	if r == nil {
		return
	}
	s.routes = append(s.routes, r)
}

// Len returns the number of stored routes.
func (s *Store) Len() int {
	return len(s.routes)
}

// Routes returns the routes in insertion order. The slice is a copy; the
// routes themselves are shared and must not be modified.
func (s *Store) Routes() []*Route {
	out := make([]*Route, len(s.routes))
	copy(out, s.routes)
	return out
}

// Get looks up a route by ID.
func (s *Store) Get(id string) (*Route, bool) {
	for _, r := range s.routes {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Clear releases every route at session teardown, disposing their
// meshes, and returns how many were released. During a session routes
// leave the store only through the Eraser.
func (s *Store) Clear() int {
	n := len(s.routes)
	for _, r := range s.routes {
		r.release()
	}
	s.routes = nil
	return n
}

func (s *Store) removeAt(i int) *Route {
	r := s.routes[i]
	r.release()
	s.routes = append(s.routes[:i], s.routes[i+1:]...)
	return r
}

// Eraser removes the route nearest to a hover point.
type Eraser struct {
	store    *Store
	radius   float64
	cooldown time.Duration
	last     time.Time
}

// NewEraser creates an eraser over store.
func NewEraser(store *Store, config Config) *Eraser {
	return &Eraser{
		store:    store,
		radius:   config.HoverRadius,
		cooldown: config.EraseCooldown,
	}
}

// SetConfig updates the hover radius and cooldown.
func (e *Eraser) SetConfig(config Config) {
	e.radius = config.HoverRadius
	e.cooldown = config.EraseCooldown
}

// EraseAt removes the single route closest to p, if one lies within the
// hover radius. Distances are measured in the board plane. Calls made
// within the cooldown of the last removal are ignored. The removed
// route's ID is returned.
func (e *Eraser) EraseAt(p r3.Vec, now time.Time) (string, bool) {
	if !e.last.IsZero() && now.Sub(e.last) < e.cooldown {
		return "", false
	}

	best := -1
	bestDist := e.radius * e.radius
	for i, r := range e.store.routes {
		d := nearestDist2(p, r.Points)
		if d < bestDist || (best < 0 && d == bestDist) {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return "", false
	}

	removed := e.store.removeAt(best)
	e.last = now
	return removed.ID, true
}

// nearestDist2 is the smallest squared XZ distance from p to any segment
// of points. A single-point route is treated as a zero-length segment.
func nearestDist2(p r3.Vec, points []r3.Vec) float64 {
	switch len(points) {
	case 0:
		return math.Inf(1)
	case 1:
		return segmentDist2XZ(p, points[0], points[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(points); i++ {
		best = math.Min(best, segmentDist2XZ(p, points[i-1], points[i]))
	}
	return best
}
