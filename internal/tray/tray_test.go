package tray

import (
	"errors"
	"testing"

	"github.com/ayusman/airkeys/internal/audio"
)

func TestTitles(t *testing.T) {
	if toggleTitle(false) != "▶ Start" || toggleTitle(true) != "■ Stop" {
		t.Error("unexpected toggle titles")
	}

	tests := []struct {
		status, note, want string
	}{
		{"", "", "Idle"},
		{"Webcam active. Move your hands!", "", "Webcam active. Move your hands!"},
		{"Webcam active. Move your hands!", "C4", "Webcam active. Move your hands! · Last: C4"},
	}
	for _, tt := range tests {
		if got := statusTitle(tt.status, tt.note); got != tt.want {
			t.Errorf("statusTitle(%q, %q) = %q, want %q", tt.status, tt.note, got, tt.want)
		}
	}
}

// The handlers are exercised without systray running; menu items are nil.
func TestTray_Handlers(t *testing.T) {
	tr := New(audio.KindSynth)
	tr.Sync(Snapshot{CanStart: true, Instrument: audio.KindSynth})

	t.Run("toggle follows callback result", func(t *testing.T) {
		running := false
		tr.OnToggle(func() (bool, error) {
			running = !running
			return running, nil
		})

		tr.handleToggle()
		if !tr.IsRunning() {
			t.Error("expected running after first toggle")
		}
		tr.handleToggle()
		if tr.IsRunning() {
			t.Error("expected stopped after second toggle")
		}
	})

	t.Run("failed start stays stopped", func(t *testing.T) {
		tr.OnToggle(func() (bool, error) {
			return false, errors.New("camera unavailable")
		})
		tr.handleToggle()
		if tr.IsRunning() {
			t.Error("tray should show stopped")
		}
	})

	t.Run("instrument change", func(t *testing.T) {
		var got audio.Kind
		tr.OnInstrument(func(kind audio.Kind) error {
			got = kind
			return nil
		})
		tr.handleInstrument(audio.KindDuo)
		if got != audio.KindDuo || tr.Instrument() != audio.KindDuo {
			t.Errorf("callback got %v, tray shows %v", got, tr.Instrument())
		}
	})

	t.Run("rejected instrument keeps selection", func(t *testing.T) {
		tr.OnInstrument(func(audio.Kind) error { return audio.ErrUnknownInstrument })
		tr.handleInstrument(audio.KindMembrane)
		if tr.Instrument() != audio.KindDuo {
			t.Errorf("tray shows %v, want previous selection", tr.Instrument())
		}
	})

	t.Run("open", func(t *testing.T) {
		opened := false
		tr.OnOpen(func() { opened = true })
		tr.handleOpen()
		if !opened {
			t.Error("open callback not called")
		}
	})
}

func TestTray_Sync(t *testing.T) {
	tr := New(audio.KindSynth)
	calls := 0
	tr.OnToggle(func() (bool, error) {
		calls++
		return true, nil
	})

	t.Run("start disabled while loading", func(t *testing.T) {
		tr.Sync(Snapshot{CanStart: false, Status: "Loading model...", Instrument: audio.KindSynth})
		if tr.IsEnabled() {
			t.Error("toggle should be disabled")
		}
		tr.handleToggle()
		if calls != 0 || tr.IsRunning() {
			t.Error("a disabled toggle must not start capture")
		}
	})

	t.Run("enabled once ready", func(t *testing.T) {
		tr.Sync(Snapshot{CanStart: true, Status: "Ready to start the webcam", Instrument: audio.KindSynth})
		if !tr.IsEnabled() {
			t.Error("toggle should be enabled")
		}
	})

	t.Run("running can always stop", func(t *testing.T) {
		tr.Sync(Snapshot{Running: true, CanStart: false, Instrument: audio.KindSynth})
		if !tr.IsEnabled() || !tr.IsRunning() {
			t.Error("a running session must stay stoppable")
		}
	})

	t.Run("instrument changed elsewhere", func(t *testing.T) {
		tr.Sync(Snapshot{CanStart: true, Instrument: audio.KindAM})
		if tr.Instrument() != audio.KindAM {
			t.Errorf("tray shows %v, want %v", tr.Instrument(), audio.KindAM)
		}
	})

	t.Run("unknown instrument ignored", func(t *testing.T) {
		tr.Sync(Snapshot{CanStart: true, Instrument: "Kazoo"})
		if tr.Instrument() != audio.KindAM {
			t.Errorf("tray shows %v, want previous selection", tr.Instrument())
		}
	})
}
