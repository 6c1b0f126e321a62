package engine

import "time"

// Mode is the resolved interaction mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDraw
	ModeRotate
	// ModeErase is shown while a fist is held. For transition bookkeeping
	// it behaves like ModeIdle.
	ModeErase
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "draw"
	case ModeRotate:
		return "rotate"
	case ModeErase:
		return "erase"
	default:
		return "idle"
	}
}

// Default transition windows.
const (
	DefaultModeCooldown      = 250 * time.Millisecond
	DefaultRotateToDrawBlock = 400 * time.Millisecond
)

// Timing holds the hysteresis windows.
type Timing struct {
	// Cooldown is the minimum time between accepted transitions.
	Cooldown time.Duration
	// RotateToDrawBlock suppresses entering Draw this long after leaving
	// Rotate, absorbing the release of a two-hand pinch.
	RotateToDrawBlock time.Duration
}

// Input is one frame's worth of classified gestures.
type Input struct {
	Hands   int
	Fist    bool
	Pinches int
	Now     time.Time
}

// Effects are the side effects a transition asks the engine to perform.
type Effects struct {
	FinalizeStroke    bool
	StartStroke       bool
	ResetLatch        bool
	ResetAccumulators bool
	Erase             bool
}

// Machine is the mode state. It is a value; Next returns the successor.
type Machine struct {
	Mode           Mode
	LastTransition time.Time
	RotateExit     time.Time
	Timing         Timing
}

// NewMachine returns an idle machine.
func NewMachine(timing Timing) Machine {
	return Machine{Mode: ModeIdle, Timing: timing}
}

// base folds ModeErase into ModeIdle.
func (m Machine) base() Mode {
	if m.Mode == ModeErase {
		return ModeIdle
	}
	return m.Mode
}

// Next resolves the mode for one frame.
//
// No hands forces Idle at once and clears every guard. A fist overrides
// pinch counting and erases. Otherwise the pinch count proposes Idle, Draw
// or Rotate, and a change is only accepted once the cooldown has passed
// and, for Draw, once the post-Rotate block has passed. Rotate never goes
// straight to Draw.
func (m Machine) Next(in Input) (Machine, Effects) {
	var fx Effects

	if in.Hands == 0 {
		fx = m.leave(fx)
		fx.ResetAccumulators = true
		m.Mode = ModeIdle
		m.LastTransition = time.Time{}
		m.RotateExit = time.Time{}
		return m, fx
	}

	if in.Fist {
		fx.Erase = true
		if m.base() != ModeIdle {
			fx = m.leave(fx)
			if m.Mode == ModeRotate {
				m.RotateExit = in.Now
			}
			m.LastTransition = in.Now
		}
		m.Mode = ModeErase
		return m, fx
	}

	target := ModeIdle
	switch {
	case in.Pinches == 1:
		target = ModeDraw
	case in.Pinches >= 2:
		target = ModeRotate
	}

	current := m.base()
	if target == current {
		m.Mode = current
		return m, fx
	}
	if !m.LastTransition.IsZero() && in.Now.Sub(m.LastTransition) < m.Timing.Cooldown {
		return m, fx
	}
	if target == ModeDraw && !m.RotateExit.IsZero() && in.Now.Sub(m.RotateExit) < m.Timing.RotateToDrawBlock {
		return m, fx
	}
	// Releasing one hand of a two-hand pinch leaves a single pinch. Leave
	// Rotate through Idle so the block window starts now.
	if target == ModeDraw && current == ModeRotate {
		target = ModeIdle
	}

	fx = m.leave(fx)
	if m.Mode == ModeRotate {
		m.RotateExit = in.Now
	}
	switch target {
	case ModeDraw:
		fx.StartStroke = true
	case ModeRotate:
		fx.ResetLatch = true
	}
	m.Mode = target
	m.LastTransition = in.Now
	return m, fx
}

// leave adds the effects of exiting the current mode.
func (m Machine) leave(fx Effects) Effects {
	switch m.Mode {
	case ModeDraw:
		fx.FinalizeStroke = true
	case ModeRotate:
		fx.ResetLatch = true
	}
	return fx
}
