// Package view turns a two-hand pinch into board rotation and camera zoom.
package view

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/handboard/internal/scene"
)

// Default view limits and sensitivities. Angles are radians.
const (
	DefaultRotateSensitivity = 3.0
	DefaultRotateSmoothing   = 0.6
	DefaultMinPitch          = -0.6
	DefaultMaxPitch          = 0.6
	DefaultZoomSensitivity   = 20.0
	DefaultMinDistance       = 6.0
	DefaultMaxDistance       = 30.0
)

// Config holds the rotate and zoom parameters.
type Config struct {
	RotateSensitivity float64
	// RotateSmoothing is the EMA alpha applied to midpoint deltas.
	RotateSmoothing float64
	MinPitch        float64
	MaxPitch        float64
	ZoomSensitivity float64
	MinDistance     float64
	MaxDistance     float64
}

// DefaultConfig returns the default view parameters.
func DefaultConfig() Config {
	return Config{
		RotateSensitivity: DefaultRotateSensitivity,
		RotateSmoothing:   DefaultRotateSmoothing,
		MinPitch:          DefaultMinPitch,
		MaxPitch:          DefaultMaxPitch,
		ZoomSensitivity:   DefaultZoomSensitivity,
		MinDistance:       DefaultMinDistance,
		MaxDistance:       DefaultMaxDistance,
	}
}

// Controller applies bimanual gestures to the board and camera. Each
// episode starts latched: the first frame only records the midpoint and
// spread, later frames apply deltas.
type Controller struct {
	config Config
	board  *scene.Board
	camera *scene.Camera

	latched    bool
	lastMid    r2.Vec
	smoothed   r2.Vec
	lastSpread float64
}

// NewController creates a controller that mutates board and camera.
func NewController(config Config, board *scene.Board, camera *scene.Camera) *Controller {
	return &Controller{config: config, board: board, camera: camera}
}

// SetConfig replaces the parameters and re-clamps the current state.
func (c *Controller) SetConfig(config Config) {
	c.config = config
	c.clamp()
}

// Config returns the active parameters.
func (c *Controller) Config() Config {
	return c.config
}

// Latched reports whether an episode is in progress.
func (c *Controller) Latched() bool {
	return c.latched
}

// Reset ends the current episode.
func (c *Controller) Reset() {
	c.latched = false
	c.lastMid = r2.Vec{}
	c.smoothed = r2.Vec{}
	c.lastSpread = 0
}

// Update consumes the two index fingertips, in normalized image space,
// of a frame where both hands pinch.
func (c *Controller) Update(a, b r2.Vec) {
	mid := r2.Scale(0.5, r2.Add(a, b))
	spread := r2.Norm(r2.Sub(a, b))

	if !c.latched {
		c.latched = true
		c.lastMid = mid
		c.lastSpread = spread
		c.smoothed = r2.Vec{}
		c.clamp()
		return
	}

	delta := r2.Sub(mid, c.lastMid)
	c.lastMid = mid
	alpha := c.config.RotateSmoothing
	c.smoothed = r2.Add(c.smoothed, r2.Scale(1-alpha, r2.Sub(delta, c.smoothed)))

	c.board.Yaw += c.smoothed.X * c.config.RotateSensitivity
	c.board.Pitch += -c.smoothed.Y * c.config.RotateSensitivity

	c.camera.Distance += -(spread - c.lastSpread) * c.config.ZoomSensitivity
	c.lastSpread = spread

	c.clamp()
}

func (c *Controller) clamp() {
	c.board.ClampPitch(c.config.MinPitch, c.config.MaxPitch)
	c.camera.ClampDistance(c.config.MinDistance, c.config.MaxDistance)
}
