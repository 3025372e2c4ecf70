package audio

import "sync"

// PlayedNote is one call recorded by MockSink.
type PlayedNote struct {
	Name     string
	Duration Duration
	Velocity float64
	Kind     Kind
}

// MockSink records every call for tests.
type MockSink struct {
	mu     sync.Mutex
	kind   Kind
	played []PlayedNote
	err    error
	closed bool
}

// NewMockSink creates a MockSink starting on the default instrument.
func NewMockSink() *MockSink {
	return &MockSink{kind: DefaultInstrument().Kind}
}

// SetError makes PlayNote fail with err.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSink) PlayNote(name string, duration Duration, velocity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.played = append(m.played, PlayedNote{Name: name, Duration: duration, Velocity: velocity, Kind: m.kind})
	return nil
}

func (m *MockSink) SetInstrument(kind Kind) error {
	if _, err := LookupInstrument(kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = kind
	return nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Played returns a copy of every note played so far.
func (m *MockSink) Played() []PlayedNote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PlayedNote, len(m.played))
	copy(out, m.played)
	return out
}

// Kind returns the current instrument.
func (m *MockSink) Kind() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind
}

// Closed reports whether Close was called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
