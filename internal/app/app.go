// Package app runs the tracking pipeline: camera frames in, hand
// landmarks out to the interaction engine.
package app

import (
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handboard/internal/capture"
	"github.com/ayusman/handboard/internal/detector"
	"github.com/ayusman/handboard/internal/engine"
)

// Pipeline defaults.
const (
	// DefaultIdleFPS is the capture rate while nothing moves.
	DefaultIdleFPS = 5
	// DefaultActiveFPS is the capture rate once motion is seen.
	DefaultActiveFPS = 30
	// DefaultIdleTimeout is how long without motion before dropping back
	// to the idle rate.
	DefaultIdleTimeout = 2 * time.Second
)

// Config holds the pipeline settings.
type Config struct {
	Camera          capture.Config
	Detector        detector.Config
	IdleFPS         int
	ActiveFPS       int
	IdleTimeout     time.Duration
	MotionThreshold float64
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() Config {
	return Config{
		Camera:          capture.DefaultConfig(),
		Detector:        detector.DefaultConfig(),
		IdleFPS:         DefaultIdleFPS,
		ActiveFPS:       DefaultActiveFPS,
		IdleTimeout:     DefaultIdleTimeout,
		MotionThreshold: capture.DefaultMotionThreshold,
	}
}

// EventPoster accepts engine events without blocking. *engine.Engine
// satisfies it.
type EventPoster interface {
	Post(ev engine.Event) error
}

// App owns the camera, the motion gate and the hand detector, and feeds
// every tracking result to the engine.
type App struct {
	config Config
	events EventPoster
	motion *capture.MotionDetector

	mu       sync.RWMutex
	camera   capture.Camera
	detector detector.Detector
	enabled  bool
	stopCh   chan struct{}
	done     chan struct{}

	frameMu sync.Mutex
	latest  gocv.Mat
	hasLast bool

	dropped int
}

// New creates an App that posts to events. It tries the MediaPipe bridge
// first and falls back to the mock detector.
func New(config Config, events EventPoster) *App {
	def := DefaultConfig()
	if config.IdleFPS <= 0 {
		config.IdleFPS = def.IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = def.ActiveFPS
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}

	a := &App{
		config: config,
		events: events,
		camera: capture.NewCamera(config.Camera),
		motion: capture.NewMotionDetector(config.MotionThreshold),
		latest: gocv.NewMat(),
	}

	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}
	return a
}

// SetEnabled turns tracking on or off. While disabled no frames are read.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether tracking is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetCamera replaces the frame source. Call it before Start.
func (a *App) SetCamera(cam capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = cam
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Start opens the camera and launches the pipeline goroutine.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.IdleFPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Println("Tracking pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	a.frameMu.Lock()
	a.latest.Close()
	a.latest = gocv.NewMat()
	a.hasLast = false
	a.frameMu.Unlock()

	log.Println("Tracking pipeline stopped")
}

// LatestFrame returns a copy of the most recent camera frame. The caller
// closes it.
func (a *App) LatestFrame() (*gocv.Mat, bool) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()

	if !a.hasLast {
		return nil, false
	}
	frame := a.latest.Clone()
	return &frame, true
}

func (a *App) keepFrame(frame *gocv.Mat) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	frame.CopyTo(&a.latest)
	a.hasLast = true
}
