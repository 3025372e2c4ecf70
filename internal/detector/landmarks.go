// Package detector provides the landmark stream source: hand landmark types
// and the Detector implementations that produce them from video frames.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingerTips lists the five fingertip landmark indices, thumb first.
var FingerTips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// IsFingerTip reports whether index is one of the fingertip landmarks.
func IsFingerTip(index int) bool {
	for _, tip := range FingerTips {
		if tip == index {
			return true
		}
	}
	return false
}

// Point3D represents a normalized landmark position. X and Y are in [0,1]
// relative to the frame; Z is relative depth and unused by the engine.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand in one frame.
//
// Points normally holds NumLandmarks entries in MediaPipe order. A shorter
// slice means the trailing landmarks are absent; consumers must go through
// Point rather than indexing directly.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// Point returns the landmark at index and whether it is present.
func (h *HandLandmarks) Point(index int) (Point3D, bool) {
	if h == nil || index < 0 || index >= len(h.Points) {
		return Point3D{}, false
	}
	return h.Points[index], true
}

// Complete reports whether the hand carries the full skeleton.
func (h *HandLandmarks) Complete() bool {
	return h != nil && len(h.Points) == NumLandmarks
}

// Translate returns a copy of the hand with every landmark shifted by dx, dy.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	moved := HandLandmarks{
		Points:     make([]Point3D, len(h.Points)),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i, p := range h.Points {
		moved.Points[i] = Point3D{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
	}
	return moved
}
