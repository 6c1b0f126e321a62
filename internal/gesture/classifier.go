// Package gesture derives per-hand pinch and fist states from landmarks.
package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/handboard/internal/detector"
)

// Classifier thresholds. Distances are in normalized image units, ratios
// are multiples of the palm width.
const (
	DefaultPinchThreshold = 0.06
	DefaultFistCurlRatio  = 1.0
	DefaultFistThumbRatio = 1.5

	// minPalmWidth guards fist detection against collapsed landmarks.
	minPalmWidth = 1e-6
)

// palmLandmarks are averaged to find the palm centroid.
var palmLandmarks = [...]int{
	detector.Wrist,
	detector.IndexMCP,
	detector.MiddleMCP,
	detector.RingMCP,
	detector.PinkyMCP,
}

// fingertips are the four non-thumb tips checked for curl.
var fingertips = [...]int{
	detector.IndexTip,
	detector.MiddleTip,
	detector.RingTip,
	detector.PinkyTip,
}

// Config holds the classifier thresholds.
type Config struct {
	PinchThreshold float64
	FistCurlRatio  float64
	FistThumbRatio float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		PinchThreshold: DefaultPinchThreshold,
		FistCurlRatio:  DefaultFistCurlRatio,
		FistThumbRatio: DefaultFistThumbRatio,
	}
}

// State is the classification of one hand.
type State struct {
	Pinching bool
	Fist     bool
}

// Classifier turns a HandPose into a State. It holds no per-frame state.
type Classifier struct {
	config Config
}

// NewClassifier creates a classifier; zero thresholds fall back to defaults.
func NewClassifier(config Config) *Classifier {
	def := DefaultConfig()
	if config.PinchThreshold <= 0 {
		config.PinchThreshold = def.PinchThreshold
	}
	if config.FistCurlRatio <= 0 {
		config.FistCurlRatio = def.FistCurlRatio
	}
	if config.FistThumbRatio <= 0 {
		config.FistThumbRatio = def.FistThumbRatio
	}
	return &Classifier{config: config}
}

// Config returns the active thresholds.
func (c *Classifier) Config() Config {
	return c.config
}

// SetConfig replaces the thresholds, keeping current values for zero fields.
func (c *Classifier) SetConfig(config Config) {
	if config.PinchThreshold > 0 {
		c.config.PinchThreshold = config.PinchThreshold
	}
	if config.FistCurlRatio > 0 {
		c.config.FistCurlRatio = config.FistCurlRatio
	}
	if config.FistThumbRatio > 0 {
		c.config.FistThumbRatio = config.FistThumbRatio
	}
}

// Classify returns the pinch and fist state of a hand.
func (c *Classifier) Classify(hand *detector.HandLandmarks) State {
	return State{
		Pinching: c.Pinching(hand),
		Fist:     c.Fist(hand),
	}
}

// Pinching reports whether the thumb tip and index tip are closer than the
// pinch threshold. Depth is ignored.
func (c *Classifier) Pinching(hand *detector.HandLandmarks) bool {
	thumb := hand.Points[detector.ThumbTip].XY()
	index := hand.Points[detector.IndexTip].XY()
	t := c.config.PinchThreshold
	return r2.Norm2(r2.Sub(thumb, index)) < t*t
}

// Fist reports whether at least three fingertips are curled onto the palm
// and the thumb tip is tucked in as well.
func (c *Classifier) Fist(hand *detector.HandLandmarks) bool {
	width := PalmWidth(hand)
	if width < minPalmWidth {
		return false
	}
	centroid := PalmCentroid(hand)

	curled := 0
	limit := c.config.FistCurlRatio * width
	for _, tip := range fingertips {
		if r2.Norm(r2.Sub(hand.Points[tip].XY(), centroid)) < limit {
			curled++
		}
	}
	if curled < 3 {
		return false
	}

	thumb := r2.Norm(r2.Sub(hand.Points[detector.ThumbTip].XY(), centroid))
	return thumb < c.config.FistThumbRatio*width
}

// PalmCentroid is the mean of the wrist and the four knuckles.
func PalmCentroid(hand *detector.HandLandmarks) r2.Vec {
	var sum r2.Vec
	for _, i := range palmLandmarks {
		sum = r2.Add(sum, hand.Points[i].XY())
	}
	return r2.Scale(1/float64(len(palmLandmarks)), sum)
}

// PalmWidth is the distance between the index and pinky knuckles.
func PalmWidth(hand *detector.HandLandmarks) float64 {
	return r2.Norm(r2.Sub(hand.Points[detector.IndexMCP].XY(), hand.Points[detector.PinkyMCP].XY()))
}
