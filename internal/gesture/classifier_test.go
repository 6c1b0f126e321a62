package gesture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ayusman/handboard/internal/detector"
)

func TestClassifier_Pinching(t *testing.T) {
	c := NewClassifier(Config{PinchThreshold: 0.06})

	t.Run("thumb and index 0.02 apart pinch", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.50, Y: 0.50}
		hand.Points[detector.IndexTip] = detector.Point3D{X: 0.52, Y: 0.50}
		require.True(t, c.Pinching(&hand))
	})

	t.Run("just beyond threshold does not pinch", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.50, Y: 0.50}
		hand.Points[detector.IndexTip] = detector.Point3D{X: 0.50, Y: 0.5625}
		require.False(t, c.Pinching(&hand))
	})

	t.Run("presets", func(t *testing.T) {
		pinch := detector.PinchLandmarks()
		open := detector.OpenPalmLandmarks()
		require.True(t, c.Pinching(&pinch))
		require.False(t, c.Pinching(&open))
	})
}

func TestClassifier_Fist(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	t.Run("closed hand is a fist", func(t *testing.T) {
		fist := detector.FistLandmarks()
		state := c.Classify(&fist)
		require.True(t, state.Fist)
		require.False(t, state.Pinching)
	})

	t.Run("open and pinching hands are not fists", func(t *testing.T) {
		open := detector.OpenPalmLandmarks()
		pinch := detector.PinchLandmarks()
		require.False(t, c.Fist(&open))
		require.False(t, c.Fist(&pinch))
	})

	t.Run("two curled fingers are not enough", func(t *testing.T) {
		hand := detector.FistLandmarks()
		open := detector.OpenPalmLandmarks()
		hand.Points[detector.RingTip] = open.Points[detector.RingTip]
		hand.Points[detector.PinkyTip] = open.Points[detector.PinkyTip]
		require.False(t, c.Fist(&hand))
	})

	t.Run("extended thumb breaks the fist", func(t *testing.T) {
		hand := detector.FistLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.80, Y: 0.55}
		require.False(t, c.Fist(&hand))
	})

	t.Run("degenerate palm width is never a fist", func(t *testing.T) {
		var hand detector.HandLandmarks
		for i := range hand.Points {
			hand.Points[i] = detector.Point3D{X: 0.4, Y: 0.4}
		}
		require.Zero(t, PalmWidth(&hand))
		require.False(t, c.Fist(&hand))
	})
}

func TestPalmGeometry(t *testing.T) {
	hand := detector.OpenPalmLandmarks()

	centroid := PalmCentroid(&hand)
	require.InDelta(t, 0.48, centroid.X, 1e-9)
	require.InDelta(t, 0.704, centroid.Y, 1e-9)
	require.InDelta(t, 0.15133, PalmWidth(&hand), 1e-4)
}

func TestClassifier_SetConfig(t *testing.T) {
	c := NewClassifier(Config{})
	require.Equal(t, DefaultConfig(), c.Config())

	c.SetConfig(Config{PinchThreshold: 0.1})
	require.Equal(t, 0.1, c.Config().PinchThreshold)
	require.Equal(t, DefaultFistCurlRatio, c.Config().FistCurlRatio)
}
