package audio

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder captures every note it is given and, on Close, renders them with
// the same voices as the speaker into a 16-bit mono WAV file.
type Recorder struct {
	mu     sync.Mutex
	path   string
	kind   Kind
	start  time.Time
	now    func() time.Time
	notes  []recordedNote
	closed bool
}

type recordedNote struct {
	at       time.Duration
	freq     float64
	length   time.Duration
	velocity float64
	kind     Kind
}

// NewRecorder creates a recorder writing to path. Note offsets are measured
// from now.
func NewRecorder(path string, kind Kind) (*Recorder, error) {
	if _, err := LookupInstrument(kind); err != nil {
		return nil, err
	}
	r := &Recorder{path: path, kind: kind, now: time.Now}
	r.start = r.now()
	return r, nil
}

func (r *Recorder) PlayNote(name string, duration Duration, velocity float64) error {
	pitch, err := ParseNote(name)
	if err != nil {
		return err
	}
	length, err := duration.Time()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder closed")
	}
	r.notes = append(r.notes, recordedNote{
		at:       r.now().Sub(r.start),
		freq:     pitch.Frequency(),
		length:   length,
		velocity: velocity,
		kind:     r.kind,
	})
	return nil
}

func (r *Recorder) SetInstrument(kind Kind) error {
	if _, err := LookupInstrument(kind); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind = kind
	return nil
}

// Len returns the number of recorded notes.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Close renders the recording. Nothing is written if no note was played.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if len(r.notes) == 0 {
		return nil
	}
	return writeWAV(r.path, r.mix())
}

// mix renders all notes into one mono buffer.
func (r *Recorder) mix() []float32 {
	total := 0
	voices := make([]*voice, len(r.notes))
	offsets := make([]int, len(r.notes))
	for i, n := range r.notes {
		voices[i] = newVoice(n.kind, n.freq, n.length, n.velocity, SampleRate)
		offsets[i] = SampleRate.N(n.at)
		if end := offsets[i] + voices[i].total; end > total {
			total = end
		}
	}

	out := make([]float32, total)
	buf := make([][2]float64, 512)
	for i, v := range voices {
		pos := offsets[i]
		for {
			n, ok := v.Stream(buf)
			for j := 0; j < n; j++ {
				out[pos+j] += float32(buf[j][0])
			}
			pos += n
			if !ok || n == 0 {
				break
			}
		}
	}
	return out
}

func writeWAV(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	defer f.Close()

	const bitDepth = 16
	enc := wav.NewEncoder(f, int(SampleRate), bitDepth, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(clamp(float64(s), -1, 1) * math.MaxInt16))
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: int(SampleRate)},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish recording: %w", err)
	}
	return nil
}
