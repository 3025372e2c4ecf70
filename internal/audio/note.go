package audio

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidNote is returned for a note name that is not letter+octave.
	ErrInvalidNote = errors.New("invalid note name")
	// ErrInvalidDuration is returned for an unrecognized duration token.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Tempo in beats per minute used to resolve duration tokens.
const Tempo = 120

// Pitch is a parsed note name.
type Pitch struct {
	Letter     byte
	Accidental int // -1 flat, +1 sharp
	Octave     int
}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote parses scientific pitch notation such as "C4", "F#3" or "Bb-1".
func ParseNote(name string) (Pitch, error) {
	if len(name) < 2 {
		return Pitch{}, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}

	p := Pitch{Letter: name[0]}
	if _, ok := semitones[p.Letter]; !ok {
		return Pitch{}, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}

	rest := name[1:]
	switch rest[0] {
	case '#':
		p.Accidental = 1
		rest = rest[1:]
	case 'b':
		p.Accidental = -1
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return Pitch{}, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}
	p.Octave = octave
	return p, nil
}

// MIDI returns the MIDI note number, with C4 = 60.
func (p Pitch) MIDI() int {
	return 12*(p.Octave+1) + semitones[p.Letter] + p.Accidental
}

// Frequency returns the equal-tempered frequency in Hz, with A4 = 440.
func (p Pitch) Frequency() float64 {
	return 440 * math.Pow(2, float64(p.MIDI()-69)/12)
}

func (p Pitch) String() string {
	acc := ""
	switch p.Accidental {
	case 1:
		acc = "#"
	case -1:
		acc = "b"
	}
	return fmt.Sprintf("%c%s%d", p.Letter, acc, p.Octave)
}

// Duration is a musical duration token: "1n" whole, "2n" half, "4n"
// quarter, "8n" eighth, "16n", "32n", optionally dotted ("4n.").
type Duration string

// Eighth is the duration every pressed note is played with.
const Eighth Duration = "8n"

// Time resolves the token at Tempo.
func (d Duration) Time() (time.Duration, error) {
	token := string(d)
	dotted := strings.HasSuffix(token, ".")
	token = strings.TrimSuffix(token, ".")

	if !strings.HasSuffix(token, "n") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, string(d))
	}
	div, err := strconv.Atoi(strings.TrimSuffix(token, "n"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, string(d))
	}
	switch div {
	case 1, 2, 4, 8, 16, 32:
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, string(d))
	}

	beat := time.Minute / Tempo
	length := beat * 4 / time.Duration(div)
	if dotted {
		length += length / 2
	}
	return length, nil
}
