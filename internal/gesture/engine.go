// Package gesture turns per-frame hand landmarks into note press events.
package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/airkeys/internal/detector"
)

// Transition thresholds, in normalized frame units per processed frame.
// A press needs a larger downward step than a release needs upward, which
// keeps a finger hovering near one level from retriggering.
const (
	PressThreshold   = 0.01
	ReleaseThreshold = -0.005
)

// Octave mapping: the frame height is split into OctaveBands horizontal
// bands, the top band playing BaseOctave.
const (
	BaseOctave  = 4
	OctaveBands = 3
)

// Finger maps a tracked fingertip landmark to the pitch letter it plays.
type Finger struct {
	Pitch string
	Tip   int
}

// Fingers is the fixed finger-to-pitch mapping. The thumb never plays.
var Fingers = [4]Finger{
	{Pitch: "C", Tip: detector.IndexTip},
	{Pitch: "D", Tip: detector.MiddleTip},
	{Pitch: "E", Tip: detector.RingTip},
	{Pitch: "F", Tip: detector.PinkyTip},
}

// FingerID identifies a fingertip by the hand's position in the current
// detection list and the tip's landmark index. The hand position is not a
// stable identity: if the detector reorders hands between frames the state
// follows the position, not the physical hand.
type FingerID struct {
	Hand int
	Tip  int
}

// String renders the id as "h<hand>-f<tip>".
func (id FingerID) String() string {
	return fmt.Sprintf("h%d-f%d", id.Hand, id.Tip)
}

// FingerState is the per-finger press state.
type FingerState struct {
	LastY   float64
	Pressed bool
}

// NoteEvent is emitted when a finger is pressed.
type NoteEvent struct {
	Finger   FingerID
	Pitch    string
	Octave   int
	Velocity Velocity
	// Delta is the downward step that triggered the press.
	Delta float64
}

// Name returns the scientific pitch name, e.g. "C4".
func (e NoteEvent) Name() string {
	return fmt.Sprintf("%s%d", e.Pitch, e.Octave)
}

// Octave maps a palm center height to an octave: the top of the frame plays
// BaseOctave and each band further down plays one octave lower.
func Octave(palmCenterY float64) int {
	return BaseOctave - int(math.Floor(palmCenterY*OctaveBands))
}

// PalmCenterY is the mean height of the index and pinky knuckles. It
// reports false if either knuckle is absent.
func PalmCenterY(hand *detector.HandLandmarks) (float64, bool) {
	index, ok := hand.Point(detector.IndexMCP)
	if !ok {
		return 0, false
	}
	pinky, ok := hand.Point(detector.PinkyMCP)
	if !ok {
		return 0, false
	}
	return (index.Y + pinky.Y) / 2, true
}

// Engine holds the per-finger press state for one tracking session.
// It is not safe for concurrent use; the frame loop is its only caller.
type Engine struct {
	states map[FingerID]*FingerState
}

// NewEngine creates an Engine with no finger state.
func NewEngine() *Engine {
	return &Engine{
		states: make(map[FingerID]*FingerState),
	}
}

// Process runs one frame's hands through the press/release state machine
// and returns the notes pressed in this frame, hand by hand in detection
// order. Hands missing a knuckle and fingers missing a tip are skipped.
func (e *Engine) Process(hands []detector.HandLandmarks) []NoteEvent {
	var events []NoteEvent

	for handIndex := range hands {
		hand := &hands[handIndex]

		palmY, ok := PalmCenterY(hand)
		if !ok {
			continue
		}
		octave := Octave(palmY)

		for _, finger := range Fingers {
			tip, ok := hand.Point(finger.Tip)
			if !ok {
				continue
			}

			id := FingerID{Hand: handIndex, Tip: finger.Tip}
			state, seen := e.states[id]
			if !seen {
				// First sighting: no delta yet, so nothing can trigger.
				state = &FingerState{LastY: tip.Y}
				e.states[id] = state
			}

			deltaY := tip.Y - state.LastY

			switch {
			case deltaY > PressThreshold && !state.Pressed:
				state.Pressed = true
				events = append(events, NoteEvent{
					Finger:   id,
					Pitch:    finger.Pitch,
					Octave:   octave,
					Velocity: ClassifyVelocity(deltaY),
					Delta:    deltaY,
				})
			case deltaY < ReleaseThreshold && state.Pressed:
				state.Pressed = false
			}

			state.LastY = tip.Y
		}
	}

	return events
}

// State returns a copy of the state tracked for id.
func (e *Engine) State(id FingerID) (FingerState, bool) {
	state, ok := e.states[id]
	if !ok {
		return FingerState{}, false
	}
	return *state, true
}

// Len returns the number of fingers being tracked.
func (e *Engine) Len() int {
	return len(e.states)
}

// Reset forgets all finger state.
func (e *Engine) Reset() {
	e.states = make(map[FingerID]*FingerState)
}
