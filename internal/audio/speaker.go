package audio

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// speakerBuffer is the speaker's output latency.
const speakerBuffer = 50 * time.Millisecond

// SpeakerSink plays synthesized voices on the default audio device. The
// device is opened on the first note, not at construction.
type SpeakerSink struct {
	mu      sync.Mutex
	kind    Kind
	once    sync.Once
	initErr error
	started bool
}

// NewSpeakerSink creates a speaker sink using kind for its first notes.
func NewSpeakerSink(kind Kind) (*SpeakerSink, error) {
	if _, err := LookupInstrument(kind); err != nil {
		return nil, err
	}
	return &SpeakerSink{kind: kind}, nil
}

func (s *SpeakerSink) start() error {
	s.once.Do(func() {
		if err := speaker.Init(SampleRate, SampleRate.N(speakerBuffer)); err != nil {
			s.initErr = fmt.Errorf("init speaker: %w", err)
			return
		}
		s.started = true
		log.Println("Audio output started")
	})
	return s.initErr
}

// PlayNote starts a new voice; voices already sounding keep playing.
func (s *SpeakerSink) PlayNote(name string, duration Duration, velocity float64) error {
	pitch, err := ParseNote(name)
	if err != nil {
		return err
	}
	length, err := duration.Time()
	if err != nil {
		return err
	}

	s.mu.Lock()
	kind := s.kind
	s.mu.Unlock()

	if err := s.start(); err != nil {
		return err
	}

	speaker.Play(beep.Streamer(newVoice(kind, pitch.Frequency(), length, velocity, SampleRate)))
	return nil
}

// SetInstrument switches the voice for subsequent notes.
func (s *SpeakerSink) SetInstrument(kind Kind) error {
	if _, err := LookupInstrument(kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = kind
	return nil
}

// Close silences every voice.
func (s *SpeakerSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		speaker.Clear()
	}
	return nil
}
