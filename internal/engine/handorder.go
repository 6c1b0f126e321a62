package engine

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/handboard/internal/detector"
)

// handOrder optionally keeps hands in the same slots across frames by
// matching each wrist to the nearest wrist of the previous frame. The
// tracker itself makes no such promise.
type handOrder struct {
	enabled bool
	prev    []r2.Vec
}

func (o *handOrder) apply(hands []detector.HandLandmarks) []detector.HandLandmarks {
	if !o.enabled {
		return hands
	}
	if len(hands) == 2 && len(o.prev) > 0 {
		w0 := hands[0].Points[detector.Wrist].XY()
		w1 := hands[1].Points[detector.Wrist].XY()
		var swap bool
		if len(o.prev) == 2 {
			straight := r2.Norm(r2.Sub(w0, o.prev[0])) + r2.Norm(r2.Sub(w1, o.prev[1]))
			crossed := r2.Norm(r2.Sub(w0, o.prev[1])) + r2.Norm(r2.Sub(w1, o.prev[0]))
			swap = crossed < straight
		} else {
			swap = r2.Norm(r2.Sub(w1, o.prev[0])) < r2.Norm(r2.Sub(w0, o.prev[0]))
		}
		if swap {
			hands = []detector.HandLandmarks{hands[1], hands[0]}
		}
	}

	o.prev = o.prev[:0]
	for i := range hands {
		o.prev = append(o.prev, hands[i].Points[detector.Wrist].XY())
	}
	return hands
}

func (o *handOrder) reset() {
	o.prev = o.prev[:0]
}
