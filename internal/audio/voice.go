package audio

import (
	"math"
	"time"

	"github.com/faiface/beep"
)

// SampleRate is the rate every voice is synthesized at.
const SampleRate beep.SampleRate = 44100

// voiceGain keeps a handful of simultaneous voices below clipping.
const voiceGain = 0.25

// envelope is a linear ADSR envelope, times in seconds.
type envelope struct {
	Attack, Decay, Sustain, Release float64
}

var envelopes = map[Kind]envelope{
	KindSynth:    {Attack: 0.005, Decay: 0.1, Sustain: 0.3, Release: 1.0},
	KindFM:       {Attack: 0.01, Decay: 0.3, Sustain: 0.2, Release: 0.8},
	KindAM:       {Attack: 0.01, Decay: 0.2, Sustain: 0.4, Release: 0.8},
	KindDuo:      {Attack: 0.01, Decay: 0.1, Sustain: 0.5, Release: 0.6},
	KindMembrane: {Attack: 0.001, Decay: 0.4, Sustain: 0.01, Release: 1.4},
}

// level returns the envelope gain at time t for a note held for hold seconds.
func (e envelope) level(t, hold float64) float64 {
	if t >= hold {
		start := e.sustainAt(hold)
		r := t - hold
		if r >= e.Release {
			return 0
		}
		return start * (1 - r/e.Release)
	}
	return e.sustainAt(t)
}

func (e envelope) releaseTime() time.Duration {
	return time.Duration(e.Release * float64(time.Second))
}

func (e envelope) sustainAt(t float64) float64 {
	switch {
	case t < e.Attack:
		return t / e.Attack
	case t < e.Attack+e.Decay:
		return 1 - (1-e.Sustain)*(t-e.Attack)/e.Decay
	default:
		return e.Sustain
	}
}

// voice is one sounding note. It implements beep.Streamer.
type voice struct {
	kind  Kind
	freq  float64
	gain  float64
	env   envelope
	hold  float64
	total int
	pos   int
	phase float64
	sr    float64
}

func newVoice(kind Kind, freq float64, length time.Duration, velocity float64, sr beep.SampleRate) *voice {
	env, ok := envelopes[kind]
	if !ok {
		env = envelopes[KindSynth]
	}
	hold := length.Seconds()
	return &voice{
		kind:  kind,
		freq:  freq,
		gain:  voiceGain * clamp(velocity, 0, 1),
		env:   env,
		hold:  hold,
		total: sr.N(length) + sr.N(env.releaseTime()),
		sr:    float64(sr),
	}
}

// Stream fills samples with the voice and ends once the release has faded.
func (v *voice) Stream(samples [][2]float64) (n int, ok bool) {
	if v.pos >= v.total {
		return 0, false
	}
	for i := range samples {
		if v.pos >= v.total {
			return i, true
		}
		s := v.next()
		samples[i][0] = s
		samples[i][1] = s
		n++
	}
	return n, true
}

func (v *voice) Err() error {
	return nil
}

func (v *voice) next() float64 {
	t := float64(v.pos) / v.sr
	v.pos++

	f := v.freq
	if v.kind == KindMembrane {
		// Pitch drops from two octaves above to the note within ~50ms.
		f = v.freq * math.Pow(2, 2*math.Exp(-t/0.05))
	}
	v.phase += 2 * math.Pi * f / v.sr
	if v.phase > 2*math.Pi {
		v.phase -= 2 * math.Pi
	}

	return v.gain * v.env.level(t, v.hold) * v.oscillate(t)
}

func (v *voice) oscillate(t float64) float64 {
	w := 2 * math.Pi * v.freq * t
	switch v.kind {
	case KindFM:
		index := 2 * math.Exp(-4*t)
		return math.Sin(w + index*math.Sin(3*w))
	case KindAM:
		return math.Sin(w) * (0.5 + 0.5*math.Sin(3*w))
	case KindDuo:
		vibrato := 0.5 * math.Sin(2*math.Pi*5*t)
		return 0.5*math.Sin(w+vibrato) + 0.5*math.Sin(1.5*w)
	case KindMembrane:
		return math.Sin(v.phase)
	default:
		// Triangle wave.
		return 2 / math.Pi * math.Asin(math.Sin(w))
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
