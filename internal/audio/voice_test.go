package audio

import (
	"math"
	"testing"
	"time"
)

func drain(v *voice) (samples int, peak float64) {
	buf := make([][2]float64, 256)
	for {
		n, ok := v.Stream(buf)
		for i := 0; i < n; i++ {
			if buf[i][0] != buf[i][1] {
				panic("voice is not mono")
			}
			peak = math.Max(peak, math.Abs(buf[i][0]))
		}
		samples += n
		if !ok {
			return samples, peak
		}
	}
}

func TestVoice_LengthIncludesRelease(t *testing.T) {
	for _, inst := range Instruments {
		t.Run(string(inst.Kind), func(t *testing.T) {
			v := newVoice(inst.Kind, 261.63, 250*time.Millisecond, 1, SampleRate)
			env := envelopes[inst.Kind]

			want := SampleRate.N(250*time.Millisecond) + SampleRate.N(env.releaseTime())
			got, peak := drain(v)
			if got != want {
				t.Errorf("streamed %d samples, want %d", got, want)
			}
			if peak == 0 {
				t.Error("voice is silent")
			}
			if peak > voiceGain+1e-9 {
				t.Errorf("peak %v exceeds gain %v", peak, voiceGain)
			}
		})
	}
}

func TestVoice_VelocityScalesGain(t *testing.T) {
	_, soft := drain(newVoice(KindSynth, 440, 250*time.Millisecond, 0.5, SampleRate))
	_, hard := drain(newVoice(KindSynth, 440, 250*time.Millisecond, 1.0, SampleRate))
	if soft >= hard {
		t.Errorf("soft peak %v should be below hard peak %v", soft, hard)
	}
}

func TestEnvelope_Level(t *testing.T) {
	env := envelope{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.2}

	if got := env.level(0.05, 1); got != 0.5 {
		t.Errorf("mid-attack = %v, want 0.5", got)
	}
	if got := env.level(0.5, 1); got != 0.5 {
		t.Errorf("sustain = %v, want 0.5", got)
	}
	if got := env.level(1.1, 1); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("mid-release = %v, want 0.25", got)
	}
	if got := env.level(1.3, 1); got != 0 {
		t.Errorf("after release = %v, want 0", got)
	}
}
