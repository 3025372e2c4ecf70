package audio

import (
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// MIDIOut is the part of a MIDI output port the sink needs.
// gomidi's drivers.Out satisfies it.
type MIDIOut interface {
	Send(data []byte) error
	Close() error
}

// programs maps synthesis kinds to General MIDI programs (zero-based).
var programs = map[Kind]uint8{
	KindSynth:    80,  // Lead 1 (square)
	KindFM:       4,   // Electric Piano 1
	KindAM:       89,  // Pad 2 (warm)
	KindDuo:      81,  // Lead 2 (sawtooth)
	KindMembrane: 117, // Melodic Tom
}

// MIDISink sends Note On for each note and Note Off once its duration has
// passed.
type MIDISink struct {
	mu      sync.Mutex
	out     MIDIOut
	channel uint8
	pending map[uint8]*time.Timer
	closed  bool
}

// NewMIDISink creates a sink on channel (0-15) and selects kind's program.
func NewMIDISink(out MIDIOut, channel uint8, kind Kind) (*MIDISink, error) {
	if channel > 15 {
		return nil, fmt.Errorf("midi channel %d out of range", channel)
	}
	s := &MIDISink{
		out:     out,
		channel: channel,
		pending: make(map[uint8]*time.Timer),
	}
	if err := s.SetInstrument(kind); err != nil {
		return nil, err
	}
	return s, nil
}

// MIDIVelocity converts a velocity in (0,1] to a MIDI velocity in 1..127.
func MIDIVelocity(velocity float64) uint8 {
	v := int(clamp(velocity, 0, 1)*127 + 0.5)
	if v < 1 {
		v = 1
	}
	return uint8(v)
}

func (s *MIDISink) PlayNote(name string, duration Duration, velocity float64) error {
	pitch, err := ParseNote(name)
	if err != nil {
		return err
	}
	length, err := duration.Time()
	if err != nil {
		return err
	}
	number := pitch.MIDI()
	if number < 0 || number > 127 {
		return fmt.Errorf("%w: %q outside MIDI range", ErrInvalidNote, name)
	}
	key := uint8(number)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("midi sink closed")
	}

	// Retriggering a sounding key ends the previous note first.
	if timer, ok := s.pending[key]; ok {
		timer.Stop()
		delete(s.pending, key)
		if err := s.send(midi.NoteOff(s.channel, key)); err != nil {
			return err
		}
	}

	if err := s.send(midi.NoteOn(s.channel, key, MIDIVelocity(velocity))); err != nil {
		return err
	}

	var timer *time.Timer
	timer = time.AfterFunc(length, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pending[key] != timer {
			return
		}
		delete(s.pending, key)
		s.send(midi.NoteOff(s.channel, key))
	})
	s.pending[key] = timer
	return nil
}

func (s *MIDISink) SetInstrument(kind Kind) error {
	program, ok := programs[kind]
	if !ok {
		_, err := LookupInstrument(kind)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(midi.ProgramChange(s.channel, program))
}

// Close ends every sounding note and closes the port.
func (s *MIDISink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for key, timer := range s.pending {
		timer.Stop()
		s.send(midi.NoteOff(s.channel, key))
	}
	s.pending = nil

	return s.out.Close()
}

// Pending returns the number of notes still waiting for their Note Off.
func (s *MIDISink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MIDISink) send(msg midi.Message) error {
	if err := s.out.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg, err)
	}
	return nil
}
