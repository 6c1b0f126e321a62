package view

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handboard/internal/scene"
)

func newTestController(c Config) (*Controller, *scene.Board, *scene.Camera) {
	board := &scene.Board{}
	camera := &scene.Camera{Direction: r3.Vec{Y: 0.8, Z: 1}, Distance: 14, FOV: 0.9, Aspect: 1}
	return NewController(c, board, camera), board, camera
}

func TestController_FirstFrameLatches(t *testing.T) {
	c, board, camera := newTestController(DefaultConfig())

	c.Update(r2.Vec{X: 0.3, Y: 0.5}, r2.Vec{X: 0.7, Y: 0.5})

	require.True(t, c.Latched())
	require.Zero(t, board.Yaw)
	require.Zero(t, board.Pitch)
	require.Equal(t, 14.0, camera.Distance)
}

func TestController_Rotate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotateSmoothing = 0
	c, board, camera := newTestController(cfg)

	c.Update(r2.Vec{X: 0.3, Y: 0.5}, r2.Vec{X: 0.7, Y: 0.5})
	c.Update(r2.Vec{X: 0.4, Y: 0.45}, r2.Vec{X: 0.8, Y: 0.45})

	require.InDelta(t, 0.1*cfg.RotateSensitivity, board.Yaw, 1e-9)
	require.InDelta(t, 0.05*cfg.RotateSensitivity, board.Pitch, 1e-9, "moving up tilts the board positively")
	require.InDelta(t, 14.0, camera.Distance, 1e-9, "constant spread leaves zoom alone")
}

func TestController_SmoothingDampsDeltas(t *testing.T) {
	cfg := DefaultConfig()
	c, board, _ := newTestController(cfg)

	c.Update(r2.Vec{X: 0.3, Y: 0.5}, r2.Vec{X: 0.7, Y: 0.5})
	c.Update(r2.Vec{X: 0.4, Y: 0.5}, r2.Vec{X: 0.8, Y: 0.5})

	want := 0.1 * (1 - cfg.RotateSmoothing) * cfg.RotateSensitivity
	require.InDelta(t, want, board.Yaw, 1e-9)
}

func TestController_Zoom(t *testing.T) {
	cfg := DefaultConfig()
	c, _, camera := newTestController(cfg)
	dir := camera.Direction

	c.Update(r2.Vec{X: 0.4, Y: 0.5}, r2.Vec{X: 0.6, Y: 0.5})
	c.Update(r2.Vec{X: 0.35, Y: 0.5}, r2.Vec{X: 0.65, Y: 0.5})

	require.InDelta(t, 14-0.1*cfg.ZoomSensitivity, camera.Distance, 1e-9, "spreading the hands zooms in")
	require.Equal(t, dir, camera.Direction)
}

func TestController_Reset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotateSmoothing = 0
	c, board, _ := newTestController(cfg)

	c.Update(r2.Vec{X: 0.3, Y: 0.5}, r2.Vec{X: 0.7, Y: 0.5})
	c.Reset()
	require.False(t, c.Latched())

	c.Update(r2.Vec{X: 0.5, Y: 0.5}, r2.Vec{X: 0.9, Y: 0.5})
	require.Zero(t, board.Yaw, "a new episode must not jump by the gap between episodes")
}

func TestController_LimitsHold(t *testing.T) {
	cfg := DefaultConfig()
	c, board, camera := newTestController(cfg)
	rng := rand.New(rand.NewSource(7))

	for episode := 0; episode < 20; episode++ {
		c.Reset()
		for frame := 0; frame < 50; frame++ {
			a := r2.Vec{X: rng.Float64(), Y: rng.Float64()}
			b := r2.Vec{X: rng.Float64(), Y: rng.Float64()}
			c.Update(a, b)

			require.GreaterOrEqual(t, board.Pitch, cfg.MinPitch)
			require.LessOrEqual(t, board.Pitch, cfg.MaxPitch)
			require.GreaterOrEqual(t, camera.Distance, cfg.MinDistance)
			require.LessOrEqual(t, camera.Distance, cfg.MaxDistance)
		}
	}
}
