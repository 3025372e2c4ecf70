package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns a fixed result, or plays back a scripted sequence of results
// one per Detect call.
type MockDetector struct {
	mu         sync.Mutex
	hands      []HandLandmarks
	script     [][]HandLandmarks
	err        error
	calls      int
	timestamps []time.Duration
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.script = nil
}

// SetScript queues one result per Detect call. Once the script is exhausted
// Detect falls back to the hands set with SetHands.
func (m *MockDetector) SetScript(script ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted hands, the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat, timestamp time.Duration) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.timestamps = append(m.timestamps, timestamp)

	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next, nil
	}
	return m.hands, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Timestamps returns the timestamps Detect was invoked with, in order.
func (m *MockDetector) Timestamps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a right hand with all fingers extended upward,
// palm center at Y=0.69.
func OpenPalmLandmarks() HandLandmarks {
	hand := HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: "Right",
		Score:      0.95,
	}

	hand.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	hand.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	hand.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	hand.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	hand.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	hand.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	hand.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	hand.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	hand.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	hand.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	hand.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	hand.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	hand.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	hand.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	hand.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	hand.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	hand.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	hand.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	hand.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	hand.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	hand.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return hand
}

// HandAt returns an open palm moved so that its palm center (the mean of the
// index and pinky knuckles) sits at palmY.
func HandAt(palmY float64) HandLandmarks {
	hand := OpenPalmLandmarks()
	current := (hand.Points[IndexMCP].Y + hand.Points[PinkyMCP].Y) / 2
	return hand.Translate(0, palmY-current)
}

// WithTip returns a copy of hand with the landmark at tip moved to Y=y.
func WithTip(hand HandLandmarks, tip int, y float64) HandLandmarks {
	out := hand.Translate(0, 0)
	if tip >= 0 && tip < len(out.Points) {
		out.Points[tip].Y = y
	}
	return out
}
