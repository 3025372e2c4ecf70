package detector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeService writes a shell script standing in for the Python service and
// returns a detector that runs it with /bin/sh.
func fakeService(t *testing.T, body string) *MediaPipeDetector {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "service.sh")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	d := &MediaPipeDetector{
		config:      DefaultConfig(),
		scriptPath:  path,
		interpreter: "/bin/sh",
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMediaPipeDetector_Start(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		d := fakeService(t, "echo '{\"ready\": true}'\ncat > /dev/null\n")
		if err := d.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := d.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	t.Run("service exits", func(t *testing.T) {
		d := fakeService(t, "echo 'No module named mediapipe' >&2\nexit 1\n")
		err := d.Start()
		if err == nil {
			t.Fatal("expected error when the service exits before ready")
		}
		if d.started {
			t.Error("detector should not be marked started")
		}
	})

	t.Run("model error", func(t *testing.T) {
		d := fakeService(t, "echo '{\"error\": \"model asset unreachable\"}'\n")
		err := d.Start()
		if err == nil || !strings.Contains(err.Error(), "model asset unreachable") {
			t.Fatalf("Start() error = %v, want the service's message", err)
		}
	})

	t.Run("missing interpreter", func(t *testing.T) {
		d := &MediaPipeDetector{
			config:      DefaultConfig(),
			scriptPath:  "service.py",
			interpreter: filepath.Join(t.TempDir(), "no-such-python"),
		}
		if err := d.Start(); err == nil {
			t.Fatal("expected error for a missing interpreter")
		}
	})
}

func TestMediaPipeDetector_NextTimestamp(t *testing.T) {
	d := &MediaPipeDetector{}

	steps := []struct {
		in, want time.Duration
	}{
		{in: 5 * time.Second, want: 5 * time.Second},
		{in: 5*time.Second + 16*time.Millisecond, want: 5*time.Second + 16*time.Millisecond},
		// Camera reopened: its clock starts over.
		{in: 10 * time.Millisecond, want: 5*time.Second + 17*time.Millisecond},
		{in: 5*time.Second + 17*time.Millisecond, want: 5*time.Second + 18*time.Millisecond},
		{in: 6 * time.Second, want: 6 * time.Second},
	}
	for i, s := range steps {
		if got := d.nextTimestamp(s.in); got != s.want {
			t.Errorf("step %d: nextTimestamp(%v) = %v, want %v", i, s.in, got, s.want)
		}
	}
}
