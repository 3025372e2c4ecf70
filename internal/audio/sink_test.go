package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

func TestMulti(t *testing.T) {
	a, b := NewMockSink(), NewMockSink()
	m := Multi{a, b}

	if err := m.PlayNote("C4", Eighth, 1); err != nil {
		t.Fatalf("PlayNote() error = %v", err)
	}
	if len(a.Played()) != 1 || len(b.Played()) != 1 {
		t.Error("every sink should receive the note")
	}

	t.Run("one failing sink does not stop the others", func(t *testing.T) {
		boom := errors.New("boom")
		a.SetError(boom)
		err := m.PlayNote("D4", Eighth, 1)
		if !errors.Is(err, boom) {
			t.Errorf("expected joined error to wrap boom, got %v", err)
		}
		if len(b.Played()) != 2 {
			t.Error("healthy sink should still play")
		}
	})

	t.Run("unknown instrument rejected before fan out", func(t *testing.T) {
		if err := m.SetInstrument("Kazoo"); !errors.Is(err, ErrUnknownInstrument) {
			t.Errorf("expected ErrUnknownInstrument, got %v", err)
		}
		if b.Kind() != KindSynth {
			t.Error("instrument should be unchanged")
		}
	})

	if err := m.SetInstrument(KindMembrane); err != nil {
		t.Fatalf("SetInstrument() error = %v", err)
	}
	if a.Kind() != KindMembrane || b.Kind() != KindMembrane {
		t.Error("every sink should switch instrument")
	}

	m.Close()
	if !a.Closed() || !b.Closed() {
		t.Error("every sink should be closed")
	}
}

// fakeOut collects the MIDI messages sent to it.
type fakeOut struct {
	mu     sync.Mutex
	msgs   []midi.Message
	closed bool
}

func (f *fakeOut) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, midi.Message(append([]byte(nil), data...)))
	return nil
}

func (f *fakeOut) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeOut) messages() []midi.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]midi.Message(nil), f.msgs...)
}

func TestMIDISink(t *testing.T) {
	out := &fakeOut{}
	sink, err := NewMIDISink(out, 2, KindFM)
	if err != nil {
		t.Fatalf("NewMIDISink() error = %v", err)
	}

	msgs := out.messages()
	var ch, program uint8
	if len(msgs) != 1 || !msgs[0].GetProgramChange(&ch, &program) {
		t.Fatalf("expected a program change, got %v", msgs)
	}
	if ch != 2 || program != programs[KindFM] {
		t.Errorf("program change ch=%d program=%d", ch, program)
	}

	if err := sink.PlayNote("C4", "32n", 1); err != nil {
		t.Fatalf("PlayNote() error = %v", err)
	}

	var key, vel uint8
	msgs = out.messages()
	if !msgs[len(msgs)-1].GetNoteOn(&ch, &key, &vel) {
		t.Fatalf("expected note on, got %v", msgs[len(msgs)-1])
	}
	if key != 60 || vel != 127 {
		t.Errorf("note on key=%d vel=%d, want 60/127", key, vel)
	}
	if sink.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", sink.Pending())
	}

	deadline := time.Now().Add(time.Second)
	for sink.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.Pending() != 0 {
		t.Fatal("note off was never sent")
	}
	msgs = out.messages()
	if !msgs[len(msgs)-1].GetNoteOff(&ch, &key, &vel) || key != 60 {
		t.Errorf("expected note off for 60, got %v", msgs[len(msgs)-1])
	}
}

func TestMIDISink_CloseFlushesNotes(t *testing.T) {
	out := &fakeOut{}
	sink, err := NewMIDISink(out, 0, KindSynth)
	if err != nil {
		t.Fatal(err)
	}

	sink.PlayNote("C4", "1n", 0.5)
	sink.PlayNote("E4", "1n", 0.5)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	offs := 0
	var ch, key, vel uint8
	for _, msg := range out.messages() {
		if msg.GetNoteOff(&ch, &key, &vel) {
			offs++
		}
	}
	if offs != 2 {
		t.Errorf("expected 2 note offs on close, got %d", offs)
	}
	if !out.closed {
		t.Error("port should be closed")
	}
	if err := sink.PlayNote("C4", Eighth, 1); err == nil {
		t.Error("expected error after close")
	}
}

func TestMIDISink_InvalidInput(t *testing.T) {
	if _, err := NewMIDISink(&fakeOut{}, 16, KindSynth); err == nil {
		t.Error("expected error for channel 16")
	}

	sink, _ := NewMIDISink(&fakeOut{}, 0, KindSynth)
	if err := sink.PlayNote("X4", Eighth, 1); !errors.Is(err, ErrInvalidNote) {
		t.Errorf("expected ErrInvalidNote, got %v", err)
	}
	if err := sink.PlayNote("C10", Eighth, 1); !errors.Is(err, ErrInvalidNote) {
		t.Errorf("expected ErrInvalidNote for C10, got %v", err)
	}
	if err := sink.SetInstrument("Kazoo"); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("expected ErrUnknownInstrument, got %v", err)
	}
}

func TestMIDIVelocity(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{1, 127},
		{0.5, 64},
		{0, 1},
		{2, 127},
	}
	for _, tt := range tests {
		if got := MIDIVelocity(tt.in); got != tt.want {
			t.Errorf("MIDIVelocity(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
