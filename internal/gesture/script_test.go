package gesture

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/airkeys/internal/detector"
)

// Every recorded script must play exactly the notes it declares.
func TestEngine_Scripts(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/scripts/*.yaml")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no scripts found")
	}

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := detector.LoadScript(path)
			if err != nil {
				t.Fatalf("LoadScript() error = %v", err)
			}

			engine := NewEngine()
			var got []string
			for _, hands := range s.Hands() {
				for _, ev := range engine.Process(hands) {
					got = append(got, ev.Name())
				}
			}

			if len(got) != len(s.Expect) {
				t.Fatalf("notes = %v, want %v", got, s.Expect)
			}
			for i := range got {
				if got[i] != s.Expect[i] {
					t.Errorf("note %d = %s, want %s", i, got[i], s.Expect[i])
				}
			}
		})
	}
}
