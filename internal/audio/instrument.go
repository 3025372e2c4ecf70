// Package audio implements the note sinks that turn note events into sound:
// synthesized voices on the speaker, MIDI out, and WAV session recordings.
package audio

import (
	"errors"
	"fmt"
)

// ErrUnknownInstrument is returned for a synthesis kind outside the preset list.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Kind is a synthesis kind tag.
type Kind string

const (
	KindSynth    Kind = "Synth"
	KindFM       Kind = "FMSynth"
	KindAM       Kind = "AMSynth"
	KindDuo      Kind = "DuoSynth"
	KindMembrane Kind = "MembraneSynth"
)

// Instrument is a named preset selecting a synthesis kind.
type Instrument struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Instruments is the preset list, in display order. The first entry is the default.
var Instruments = []Instrument{
	{Name: "Synthesizer", Kind: KindSynth},
	{Name: "Piano (FM)", Kind: KindFM},
	{Name: "AM Synthesizer", Kind: KindAM},
	{Name: "Duo Synthesizer", Kind: KindDuo},
	{Name: "Membrane", Kind: KindMembrane},
}

// DefaultInstrument returns the first preset.
func DefaultInstrument() Instrument {
	return Instruments[0]
}

// LookupInstrument returns the preset for kind.
func LookupInstrument(kind Kind) (Instrument, error) {
	for _, inst := range Instruments {
		if inst.Kind == kind {
			return inst, nil
		}
	}
	return Instrument{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, kind)
}

// Valid reports whether kind names a preset.
func (k Kind) Valid() bool {
	_, err := LookupInstrument(k)
	return err == nil
}
