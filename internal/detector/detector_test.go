package detector

import (
	"errors"
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestHandLandmarks_Point(t *testing.T) {
	t.Run("returns present landmark", func(t *testing.T) {
		hand := OpenPalmLandmarks()

		p, ok := hand.Point(IndexTip)
		if !ok {
			t.Fatal("expected index tip to be present")
		}
		if p != hand.Points[IndexTip] {
			t.Errorf("expected %v, got %v", hand.Points[IndexTip], p)
		}
	})

	t.Run("reports truncated landmark as absent", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		hand.Points = hand.Points[:PinkyMCP]

		if _, ok := hand.Point(PinkyMCP); ok {
			t.Error("expected pinky MCP to be absent")
		}
		if _, ok := hand.Point(IndexMCP); !ok {
			t.Error("expected index MCP to be present")
		}
		if hand.Complete() {
			t.Error("truncated hand should not be complete")
		}
	})

	t.Run("negative index is absent", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		if _, ok := hand.Point(-1); ok {
			t.Error("expected negative index to be absent")
		}
	})

	t.Run("nil hand is absent", func(t *testing.T) {
		var hand *HandLandmarks
		if _, ok := hand.Point(Wrist); ok {
			t.Error("expected nil hand to have no landmarks")
		}
	})
}

func TestIsFingerTip(t *testing.T) {
	for i := 0; i < NumLandmarks; i++ {
		want := i == ThumbTip || i == IndexTip || i == MiddleTip || i == RingTip || i == PinkyTip
		if got := IsFingerTip(i); got != want {
			t.Errorf("IsFingerTip(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestHandAt(t *testing.T) {
	for _, palmY := range []float64{0.1, 0.34, 0.5, 0.9} {
		hand := HandAt(palmY)
		got := (hand.Points[IndexMCP].Y + hand.Points[PinkyMCP].Y) / 2
		if math.Abs(got-palmY) > epsilon {
			t.Errorf("HandAt(%v) palm center = %v", palmY, got)
		}
		if !hand.Complete() {
			t.Errorf("HandAt(%v) should return a complete hand", palmY)
		}
	}
}

func TestWithTip_DoesNotAlias(t *testing.T) {
	hand := OpenPalmLandmarks()
	moved := WithTip(hand, IndexTip, 0.9)

	if moved.Points[IndexTip].Y != 0.9 {
		t.Errorf("expected moved tip Y 0.9, got %v", moved.Points[IndexTip].Y)
	}
	if hand.Points[IndexTip].Y == 0.9 {
		t.Error("WithTip modified the original hand")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil, 0)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks(), HandAt(0.2)})

		hands, err := mock.Detect(nil, 0)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("plays script before falling back", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})
		mock.SetScript(nil, []HandLandmarks{HandAt(0.1), HandAt(0.5)})

		first, _ := mock.Detect(nil, 10*time.Millisecond)
		second, _ := mock.Detect(nil, 20*time.Millisecond)
		third, _ := mock.Detect(nil, 30*time.Millisecond)

		if len(first) != 0 || len(second) != 2 || len(third) != 1 {
			t.Errorf("unexpected sequence lengths %d, %d, %d", len(first), len(second), len(third))
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
		ts := mock.Timestamps()
		if len(ts) != 3 || ts[2] != 30*time.Millisecond {
			t.Errorf("unexpected timestamps %v", ts)
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil, 0)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("decodes hands in service order", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0}],"handedness":"Left","score":0.8},` +
			`{"points":[{"x":0.5,"y":0.6,"z":0}],"handedness":"Right","score":0.9}]}` + "\n")

		hands, err := parseResponse(line, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(hands))
		}
		if hands[0].Handedness != "Left" || hands[1].Handedness != "Right" {
			t.Errorf("hands reordered: %s, %s", hands[0].Handedness, hands[1].Handedness)
		}
		if len(hands[0].Points) != 1 {
			t.Errorf("expected short landmark list to be preserved, got %d points", len(hands[0].Points))
		}
	})

	t.Run("caps hands at max", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[]},{"points":[]},{"points":[]}]}`)

		hands, err := parseResponse(line, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("surfaces service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"model not loaded"}`), 2); err == nil {
			t.Error("expected error from service error field")
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`), 2); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestLoadScript(t *testing.T) {
	t.Run("expands hands", func(t *testing.T) {
		s, err := LoadScript("../../testdata/scripts/two_hands.yaml")
		if err != nil {
			t.Fatalf("LoadScript() error = %v", err)
		}

		frames := s.Hands()
		if len(frames) != 3 {
			t.Fatalf("got %d frames, want 3", len(frames))
		}
		if len(frames[0]) != 2 || len(frames[2]) != 0 {
			t.Fatalf("unexpected hand counts %d, %d", len(frames[0]), len(frames[2]))
		}
		if y := frames[1][0].Points[IndexTip].Y; y != 0.56 {
			t.Errorf("index tip Y = %v, want 0.56", y)
		}
		if !frames[1][1].Complete() {
			t.Error("scripted hands should carry the full skeleton")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadScript("does-not-exist.yaml"); err == nil {
			t.Error("expected error for missing script")
		}
	})
}
