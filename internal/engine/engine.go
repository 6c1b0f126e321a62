// Package engine is the real-time interaction core: it classifies each
// tracking frame, resolves the interaction mode and dispatches to stroke
// building, erasing and view control.
package engine

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handboard/internal/detector"
	"github.com/ayusman/handboard/internal/gesture"
	"github.com/ayusman/handboard/internal/pointer"
	"github.com/ayusman/handboard/internal/route"
	"github.com/ayusman/handboard/internal/scene"
	"github.com/ayusman/handboard/internal/view"
)

// ErrQueueFull is returned by Post when the event queue is saturated.
var ErrQueueFull = errors.New("engine event queue full")

// Engine defaults.
const (
	DefaultQueueSize    = 64
	DefaultTickInterval = time.Second / 60
	DefaultCursorEase   = 120 * time.Millisecond
	DefaultFOV          = 50 * math.Pi / 180
	DefaultAspect       = 16.0 / 9.0
	DefaultDistance     = 14.0
)

// Config collects every tunable of the interaction core.
type Config struct {
	Timing  Timing
	Gesture gesture.Config
	Route   route.Config
	View    view.Config

	// Mirror flips tracking input horizontally (selfie view).
	Mirror bool
	// StableHandOrder matches hands to the previous frame's slots.
	StableHandOrder bool

	CameraDirection r3.Vec
	CameraDistance  float64
	FOV             float64
	Aspect          float64

	QueueSize    int
	TickInterval time.Duration
	CursorEase   time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Timing: Timing{
			Cooldown:          DefaultModeCooldown,
			RotateToDrawBlock: DefaultRotateToDrawBlock,
		},
		Gesture:         gesture.DefaultConfig(),
		Route:           route.DefaultConfig(),
		View:            view.DefaultConfig(),
		Mirror:          true,
		CameraDirection: r3.Vec{Y: 0.8, Z: 1},
		CameraDistance:  DefaultDistance,
		FOV:             DefaultFOV,
		Aspect:          DefaultAspect,
		QueueSize:       DefaultQueueSize,
		TickInterval:    DefaultTickInterval,
		CursorEase:      DefaultCursorEase,
	}
}

// SnapshotSink receives a display snapshot on every render tick.
// Implementations must not block.
type SnapshotSink interface {
	PublishSnapshot(s Snapshot)
}

// Engine owns all session state. Every method except Post must be called
// from the goroutine running Run (or, in tests, a single goroutine).
type Engine struct {
	config Config
	events chan Event
	sink   SnapshotSink

	classifier *gesture.Classifier
	machine    Machine
	board      scene.Board
	camera     scene.Camera
	pointer    pointer.State
	routes     *route.Store
	builder    *route.Builder
	eraser     *route.Eraser
	view       *view.Controller
	order      handOrder
	loop       *FrameLoop

	onMode []func(Mode)
}

// New creates an engine. meshes builds stroke meshes; sink receives
// snapshots and may be nil.
func New(config Config, meshes route.MeshFactory, sink SnapshotSink) *Engine {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if r3.Norm2(config.CameraDirection) == 0 {
		config.CameraDirection = DefaultConfig().CameraDirection
	}

	e := &Engine{
		config:     config,
		events:     make(chan Event, config.QueueSize),
		sink:       sink,
		classifier: gesture.NewClassifier(config.Gesture),
		machine:    NewMachine(config.Timing),
		camera: scene.Camera{
			Direction: r3.Unit(config.CameraDirection),
			Distance:  config.CameraDistance,
			FOV:       config.FOV,
			Aspect:    config.Aspect,
		},
		routes: route.NewStore(),
		order:  handOrder{enabled: config.StableHandOrder},
		loop:   NewFrameLoop(config.CursorEase),
	}
	e.builder = route.NewBuilder(config.Route, meshes, e.routes)
	e.eraser = route.NewEraser(e.routes, config.Route)
	e.view = view.NewController(config.View, &e.board, &e.camera)
	if config.View.MaxDistance > 0 {
		e.camera.ClampDistance(config.View.MinDistance, config.View.MaxDistance)
	}
	return e
}

// OnModeChange registers fn to run, on the engine goroutine, whenever the
// mode changes.
func (e *Engine) OnModeChange(fn func(Mode)) {
	e.onMode = append(e.onMode, fn)
}

// Post queues an event without blocking. It is safe to call from any
// goroutine.
func (e *Engine) Post(ev Event) error {
	select {
	case e.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains the event queue and drives the render tick until ctx is
// done. Each event and each tick runs to completion before the next.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.teardown()
			return ctx.Err()
		case ev := <-e.events:
			e.Handle(ev)
		case now := <-ticker.C:
			e.Tick(now.Sub(last), now)
			last = now
		}
	}
}

// Handle processes one event synchronously.
func (e *Engine) Handle(ev Event) {
	switch ev := ev.(type) {
	case FrameEvent:
		e.handleFrame(ev)
	case PointerEvent:
		e.pointer.Set(ev.Pos, ev.Source, ev.At)
	case TuningEvent:
		e.tune(ev.Key, ev.Value)
	}
}

// Tick advances cosmetic state by dt and publishes a snapshot. It never
// changes mode, strokes, routes, board or camera.
func (e *Engine) Tick(dt time.Duration, now time.Time) Snapshot {
	cursor := e.loop.Advance(e.pointer.Pos, e.pointer.Valid(), dt)
	s := e.snapshot(cursor, now)
	if e.sink != nil {
		e.sink.PublishSnapshot(s)
	}
	return s
}

func (e *Engine) handleFrame(ev FrameEvent) {
	hands := ev.Hands
	if len(hands) > detector.MaxHands {
		hands = hands[:detector.MaxHands]
	}
	if e.config.Mirror {
		mirrored := make([]detector.HandLandmarks, len(hands))
		for i := range hands {
			mirrored[i] = hands[i].Mirrored()
		}
		hands = mirrored
	}
	hands = e.order.apply(hands)

	states := make([]gesture.State, len(hands))
	fist := false
	pinching := make([]int, 0, len(hands))
	for i := range hands {
		states[i] = e.classifier.Classify(&hands[i])
		if states[i].Fist {
			fist = true
		}
		if states[i].Pinching {
			pinching = append(pinching, i)
		}
	}

	if len(hands) > 0 {
		p := primaryHand(states)
		e.pointer.Set(hands[p].Points[detector.IndexTip].XY(), pointer.SourceTracking, ev.At)
	}

	prev := e.machine.Mode
	next, fx := e.machine.Next(Input{
		Hands:   len(hands),
		Fist:    fist,
		Pinches: len(pinching),
		Now:     ev.At,
	})
	e.machine = next

	if fx.FinalizeStroke {
		if r := e.builder.End(ev.At); r != nil {
			log.Printf("Route %s finalized (%d points)", r.ID, len(r.Points))
		}
	}
	if fx.ResetLatch || fx.ResetAccumulators || len(pinching) != 2 {
		e.view.Reset()
	}
	if fx.ResetAccumulators {
		e.order.reset()
	}
	if fx.StartStroke {
		e.builder.Start()
	}
	if fx.Erase {
		if local, ok := e.project(); ok {
			if id, removed := e.eraser.EraseAt(local, ev.At); removed {
				log.Printf("Route %s erased", id)
			}
		}
	}

	switch e.machine.Mode {
	case ModeDraw:
		if local, ok := e.project(); ok {
			e.builder.Add(local)
		}
	case ModeRotate:
		if len(pinching) == 2 {
			a := hands[pinching[0]].Points[detector.IndexTip].XY()
			b := hands[pinching[1]].Points[detector.IndexTip].XY()
			e.view.Update(a, b)
		}
	}

	if e.machine.Mode != prev {
		for _, fn := range e.onMode {
			fn(e.machine.Mode)
		}
	}
}

// primaryHand picks the hand that drives the pointer: the first pinching
// hand, else the first hand that is not a fist, else slot 0.
func primaryHand(states []gesture.State) int {
	for i, s := range states {
		if s.Pinching {
			return i
		}
	}
	for i, s := range states {
		if !s.Fist {
			return i
		}
	}
	return 0
}

// project maps the current pointer onto the board. The plane is rebuilt
// from the live board transform every call.
func (e *Engine) project() (r3.Vec, bool) {
	if !e.pointer.Valid() {
		return r3.Vec{}, false
	}
	return scene.Project(&e.camera, &e.board, e.pointer.Pos)
}

func (e *Engine) tune(key string, value float64) {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		log.Printf("Ignoring tuning %s=%v", key, value)
		return
	}
	switch key {
	case KeyPinchThreshold:
		e.classifier.SetConfig(gesture.Config{PinchThreshold: value})
	case KeyFistCurlRatio:
		e.classifier.SetConfig(gesture.Config{FistCurlRatio: value})
	case KeyFistThumbRatio:
		e.classifier.SetConfig(gesture.Config{FistThumbRatio: value})
	case KeyHoverRadius:
		e.config.Route.HoverRadius = value
		e.eraser.SetConfig(e.config.Route)
	case KeyRotateSensitivity:
		e.config.View.RotateSensitivity = value
		e.view.SetConfig(e.config.View)
	case KeyZoomSensitivity:
		e.config.View.ZoomSensitivity = value
		e.view.SetConfig(e.config.View)
	default:
		log.Printf("Unknown tuning key %q", key)
		return
	}
	log.Printf("Tuning %s=%g", key, value)
}

// teardown releases every mesh still held by the session.
func (e *Engine) teardown() {
	e.builder.Discard()
	e.routes.Clear()
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode { return e.machine.Mode }

// Board returns a copy of the board transform.
func (e *Engine) Board() scene.Board { return e.board }

// Camera returns a copy of the camera state.
func (e *Engine) Camera() scene.Camera { return e.camera }

// Pointer returns the shared pointer.
func (e *Engine) Pointer() pointer.State { return e.pointer }

// Routes returns the finalized routes in insertion order.
func (e *Engine) Routes() []*route.Route { return e.routes.Routes() }

// Stroke returns the in-progress stroke points, if any.
func (e *Engine) Stroke() []r3.Vec { return e.builder.Points() }

// Drawing reports whether a stroke is in progress.
func (e *Engine) Drawing() bool { return e.builder.Active() }

// ProjectPointer exposes the board projection of an arbitrary pointer.
func (e *Engine) ProjectPointer(p r2.Vec) (r3.Vec, bool) {
	return scene.Project(&e.camera, &e.board, p)
}
