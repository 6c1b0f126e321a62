package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestPoint3D_Distance(t *testing.T) {
	a := Point3D{X: 0.5, Y: 0.5, Z: 0}
	b := Point3D{X: 0.52, Y: 0.5, Z: 0}

	if got := a.Dist2(b); math.Abs(got-0.0004) > epsilon {
		t.Errorf("expected squared distance 0.0004, got %f", got)
	}
	if got := a.Dist(b); math.Abs(got-0.02) > epsilon {
		t.Errorf("expected distance 0.02, got %f", got)
	}
	if xy := b.XY(); xy.X != 0.52 || xy.Y != 0.5 {
		t.Errorf("unexpected XY projection %+v", xy)
	}
}

func TestHandLandmarks_Mirrored(t *testing.T) {
	hand := OpenPalmLandmarks()
	mirrored := hand.Mirrored()

	t.Run("x coordinates flip around the centre", func(t *testing.T) {
		for i := 0; i < NumLandmarks; i++ {
			if math.Abs(mirrored.Points[i].X-(1-hand.Points[i].X)) > epsilon {
				t.Errorf("landmark %d: expected X %f, got %f", i, 1-hand.Points[i].X, mirrored.Points[i].X)
			}
			if mirrored.Points[i].Y != hand.Points[i].Y {
				t.Errorf("landmark %d: Y should be unchanged", i)
			}
		}
	})

	t.Run("handedness swaps", func(t *testing.T) {
		if mirrored.Handedness != "Left" {
			t.Errorf("expected handedness Left, got %s", mirrored.Handedness)
		}
	})

	t.Run("original is untouched", func(t *testing.T) {
		if hand.Points[Wrist].X != 0.5 || hand.Handedness != "Right" {
			t.Error("Mirrored must not modify the receiver")
		}
	})
}

func TestHandLandmarks_Translated(t *testing.T) {
	hand := PinchLandmarks()
	moved := hand.Translated(0.1, -0.05)

	for i := 0; i < NumLandmarks; i++ {
		dx := moved.Points[i].X - hand.Points[i].X
		dy := moved.Points[i].Y - hand.Points[i].Y
		if math.Abs(dx-0.1) > epsilon || math.Abs(dy+0.05) > epsilon {
			t.Errorf("landmark %d moved by (%f, %f)", i, dx, dy)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{PinchLandmarks(), FistLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestDecodeHands(t *testing.T) {
	point := `{"x":0.1,"y":0.2,"z":0}`
	full := "[" + point
	for i := 1; i < NumLandmarks; i++ {
		full += "," + point
	}
	full += "]"

	t.Run("keeps complete confident hands", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":` + full + `,"handedness":"Left","score":0.9}]}`)
		hands, err := decodeHands(line, DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Points[PinkyTip].Y != 0.2 {
			t.Errorf("expected last landmark to be populated")
		}
	})

	t.Run("drops low score and truncated hands", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":` + full + `,"score":0.1},{"points":[` + point + `],"score":0.9}]}`)
		hands, err := decodeHands(line, DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("caps at two hands", func(t *testing.T) {
		h := `{"points":` + full + `,"score":0.9}`
		line := []byte(`{"hands":[` + h + "," + h + "," + h + `]}`)
		hands, err := decodeHands(line, DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != MaxHands {
			t.Errorf("expected %d hands, got %d", MaxHands, len(hands))
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		if _, err := decodeHands([]byte("{not json"), DefaultConfig()); err == nil {
			t.Error("expected parse error")
		}
	})
}
