package audio

import (
	"errors"
)

// Sink receives note triggers.
type Sink interface {
	// PlayNote sounds name (e.g. "C4") for duration at velocity in (0,1].
	// The sink owns the note's decay; there is no separate note-off.
	PlayNote(name string, duration Duration, velocity float64) error
	// SetInstrument switches the voice used by subsequent notes.
	SetInstrument(kind Kind) error
	Close() error
}

// Multi fans every call out to several sinks.
type Multi []Sink

func (m Multi) PlayNote(name string, duration Duration, velocity float64) error {
	var errs []error
	for _, s := range m {
		if err := s.PlayNote(name, duration, velocity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) SetInstrument(kind Kind) error {
	if !kind.Valid() {
		_, err := LookupInstrument(kind)
		return err
	}
	var errs []error
	for _, s := range m {
		if err := s.SetInstrument(kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
