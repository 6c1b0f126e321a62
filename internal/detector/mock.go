package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns whatever hands were last configured.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect has run.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// palmBase fills the wrist and knuckle landmarks shared by every preset.
// The palm centroid sits at (0.48, 0.704) and the palm width is ~0.151.
func palmBase() HandLandmarks {
	var h HandLandmarks
	h.Handedness = "Right"
	h.Score = 0.95

	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}
	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	return h
}

// OpenPalmLandmarks returns a relaxed open hand: no pinch, no fist.
func OpenPalmLandmarks() HandLandmarks {
	h := palmBase()

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35}

	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42}
	return h
}

// PinchLandmarks returns an open hand whose thumb tip touches the index
// fingertip at (0.60, 0.50).
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()

	h.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.58}
	h.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.54}
	h.Points[IndexTip] = Point3D{X: 0.60, Y: 0.50}

	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70, Z: 0.02}
	h.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.60, Z: 0.02}
	h.Points[ThumbTip] = Point3D{X: 0.62, Y: 0.51, Z: 0.01}
	return h
}

// FistLandmarks returns a closed hand: every fingertip folded onto the
// palm and the thumb tucked across the knuckles.
func FistLandmarks() HandLandmarks {
	h := palmBase()

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.59, Y: 0.71, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.66, Z: -0.02}
	h.Points[ThumbTip] = Point3D{X: 0.56, Y: 0.64, Z: -0.03}

	h.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.62, Z: -0.04}
	h.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	h.Points[IndexTip] = Point3D{X: 0.53, Y: 0.72, Z: -0.03}

	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.60, Z: -0.04}
	h.Points[MiddleDIP] = Point3D{X: 0.49, Y: 0.67, Z: -0.05}
	h.Points[MiddleTip] = Point3D{X: 0.48, Y: 0.73, Z: -0.03}

	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.62, Z: -0.04}
	h.Points[RingDIP] = Point3D{X: 0.44, Y: 0.68, Z: -0.05}
	h.Points[RingTip] = Point3D{X: 0.44, Y: 0.73, Z: -0.03}

	h.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.65, Z: -0.04}
	h.Points[PinkyDIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	h.Points[PinkyTip] = Point3D{X: 0.41, Y: 0.74, Z: -0.03}
	return h
}
