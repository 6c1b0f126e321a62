package app

import (
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handboard/internal/detector"
	"github.com/ayusman/handboard/internal/engine"
)

// pipelineState tracks the idle/active rate switch between frames.
type pipelineState struct {
	active     bool
	lastMotion time.Time
}

// runPipeline reads frames at the idle rate until motion appears, then at
// the active rate until the scene has been still for IdleTimeout. Every
// frame read is sent through the detector; the engine needs empty results
// to notice lost hands.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	state := pipelineState{lastMotion: time.Now()}
	ticker := time.NewTicker(time.Second / time.Duration(a.config.IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.Camera().ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if fps, changed := a.updateRate(&state, frame, now); changed {
				a.Camera().SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}

			a.keepFrame(frame)
			a.track(frame, now)
			frame.Close()
		}
	}
}

// updateRate feeds the motion gate and returns the new capture rate when
// the pipeline switches between idle and active.
func (a *App) updateRate(state *pipelineState, frame *gocv.Mat, now time.Time) (int, bool) {
	moved, _ := a.motion.Detect(frame)
	switch {
	case moved:
		state.lastMotion = now
		if !state.active {
			state.active = true
			log.Println("Switched to active tracking")
			return a.config.ActiveFPS, true
		}
	case state.active && now.Sub(state.lastMotion) > a.config.IdleTimeout:
		state.active = false
		log.Println("Switched to idle tracking")
		return a.config.IdleFPS, true
	}
	return 0, false
}

// track runs hand detection on one frame and posts the result.
func (a *App) track(frame *gocv.Mat, now time.Time) {
	d := a.Detector()
	if d == nil {
		return
	}

	hands, err := d.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return
	}
	if len(hands) > detector.MaxHands {
		hands = hands[:detector.MaxHands]
	}

	if err := a.events.Post(engine.FrameEvent{Hands: hands, At: now}); err != nil {
		if errors.Is(err, engine.ErrQueueFull) {
			a.dropped++
			if a.dropped%100 == 1 {
				log.Printf("Engine busy, dropped %d frames", a.dropped)
			}
			return
		}
		log.Printf("Error posting frame: %v", err)
	}
}
