package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/airkeys/internal/app"
	"github.com/ayusman/airkeys/internal/audio"
	"github.com/ayusman/airkeys/internal/capture"
	"github.com/ayusman/airkeys/internal/detector"
	"github.com/ayusman/airkeys/internal/server"
	"github.com/ayusman/airkeys/internal/store"
)

type statusBody struct {
	State      string `json:"state"`
	Status     string `json:"status"`
	CanStart   bool   `json:"can_start"`
	SessionID  string `json:"session_id"`
	Instrument struct {
		Kind string `json:"kind"`
	} `json:"instrument"`
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func do(t *testing.T, client *http.Client, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	return resp
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	script, err := detector.LoadScript("../testdata/scripts/repeat_press.yaml")
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()
	var frames []capture.MockFrame
	for i := 0; i < 20; i++ {
		frames = append(frames, capture.MockFrame{Mat: &mat, Timestamp: time.Duration(i+1) * 10 * time.Millisecond})
	}

	det := detector.NewMockDetector()
	sink := audio.NewMockSink()
	application := app.New(app.Config{
		Camera:          capture.NewMockCamera(frames, true),
		Sink:            sink,
		Store:           s,
		RefreshInterval: 5 * time.Millisecond,
		RecordDir:       filepath.Join(tmpDir, "recordings"),
	})
	defer application.Close()

	notes := make(chan app.Note, 16)
	application.OnNote(func(n app.Note) { notes <- n })

	srv := server.New(server.Config{Store: s, App: application})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("StartBeforeModelLoads", func(t *testing.T) {
		resp := do(t, client, http.MethodPost, ts.URL+"/api/session", "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
		}
	})

	application.SetDetector(det)

	t.Run("Ready", func(t *testing.T) {
		var body statusBody
		decode(t, do(t, client, http.MethodGet, ts.URL+"/api/status", ""), &body)
		if body.Status != app.StatusReady.String() || !body.CanStart {
			t.Errorf("status = %+v, want ready", body)
		}
	})

	t.Run("SelectInstrument", func(t *testing.T) {
		resp := do(t, client, http.MethodPut, ts.URL+"/api/instruments", `{"kind": "FMSynth"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if sink.Kind() != audio.KindFM {
			t.Errorf("sink instrument = %s, want %s", sink.Kind(), audio.KindFM)
		}
	})

	var sessionID string
	t.Run("PlayScript", func(t *testing.T) {
		det.SetScript(script.Hands()...)

		var body statusBody
		resp := do(t, client, http.MethodPost, ts.URL+"/api/session", "")
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("start status = %d", resp.StatusCode)
		}
		decode(t, resp, &body)
		if body.State != app.Running.String() || body.SessionID == "" {
			t.Fatalf("unexpected start response %+v", body)
		}
		sessionID = body.SessionID

		for i, want := range script.Expect {
			select {
			case n := <-notes:
				if n.Name != want || n.Instrument != audio.KindFM {
					t.Errorf("note %d = %s on %s, want %s on FMSynth", i, n.Name, n.Instrument, want)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for note %d", i)
			}
		}

		resp = do(t, client, http.MethodDelete, ts.URL+"/api/session", "")
		decode(t, resp, &body)
		if body.State != app.Idle.String() || body.Status != app.StatusStopped.String() {
			t.Errorf("unexpected stop response %+v", body)
		}
	})

	t.Run("SessionHistory", func(t *testing.T) {
		var list struct {
			Sessions []struct {
				ID        string `json:"id"`
				Active    bool   `json:"active"`
				NoteCount int    `json:"note_count"`
			} `json:"sessions"`
		}
		decode(t, do(t, client, http.MethodGet, ts.URL+"/api/sessions", ""), &list)
		if len(list.Sessions) != 1 {
			t.Fatalf("got %d sessions, want 1", len(list.Sessions))
		}
		got := list.Sessions[0]
		if got.ID != sessionID || got.Active || got.NoteCount != len(script.Expect) {
			t.Errorf("unexpected session %+v", got)
		}

		var played struct {
			Notes []struct {
				Name string `json:"name"`
			} `json:"notes"`
		}
		decode(t, do(t, client, http.MethodGet, ts.URL+"/api/sessions/"+sessionID+"/notes", ""), &played)
		if len(played.Notes) != len(script.Expect) {
			t.Fatalf("got %d stored notes, want %d", len(played.Notes), len(script.Expect))
		}
		for i, n := range played.Notes {
			if n.Name != script.Expect[i] {
				t.Errorf("stored note %d = %s, want %s", i, n.Name, script.Expect[i])
			}
		}
	})

	t.Run("Recording", func(t *testing.T) {
		path := filepath.Join(tmpDir, "recordings", sessionID+".wav")
		matches, _ := filepath.Glob(path)
		if len(matches) != 1 {
			t.Errorf("expected recording at %s", path)
		}
	})
}
