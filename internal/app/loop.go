package app

import (
	"log"
	"time"

	"github.com/ayusman/airkeys/internal/audio"
	"github.com/ayusman/airkeys/internal/capture"
	"github.com/ayusman/airkeys/internal/detector"
	"github.com/ayusman/airkeys/internal/feedback"
	"github.com/ayusman/airkeys/internal/gesture"
	"github.com/ayusman/airkeys/internal/render"
	"github.com/ayusman/airkeys/internal/store"
)

// MaxReadErrors is how many consecutive frame reads may fail before the
// session is ended with StatusCameraError.
const MaxReadErrors = 60

// frameLoop is the per-session tick state.
type frameLoop struct {
	app      *App
	detector detector.Detector
	stopCh   <-chan struct{}

	lastTimestamp time.Duration
	seen          bool
	warmedUp      bool
	readErrors    int
	failed        bool
}

// runLoop ticks once per refresh interval until stopCh is closed. Each tick
// runs to completion before the next one is taken, so a slow detector
// lowers the effective frame rate instead of overlapping ticks.
func (a *App) runLoop(d detector.Detector, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	l := &frameLoop{app: a, detector: d, stopCh: stopCh}

	ticker := time.NewTicker(a.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			l.tick()
			if l.failed {
				return
			}
		}
	}
}

// tick processes at most one new camera frame. It reports whether the
// frame was processed.
func (l *frameLoop) tick() bool {
	a := l.app
	now := a.config.Now()

	// Highlight removals due by now are applied before anything reads the
	// active set.
	a.tracker.Expire(now)

	frame, err := a.camera.ReadFrame()
	if err != nil {
		l.readFailed(err)
		return false
	}
	defer frame.Close()
	l.readErrors = 0

	// The device reports zero dimensions until it has warmed up.
	if frame.Empty() {
		return false
	}
	if !l.warmedUp {
		l.warmedUp = true
		a.setStatus(StatusRunning)
	}

	if l.seen && frame.Timestamp == l.lastTimestamp {
		return false
	}
	l.lastTimestamp = frame.Timestamp
	l.seen = true

	hands, err := l.detector.Detect(frame.Mat, frame.Timestamp)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return false
	}

	active := a.tracker.Snapshot()
	l.renderPreview(frame, hands, active)

	var notes []Note
	if len(hands) > 0 {
		for _, ev := range a.engine.Process(hands) {
			a.tracker.Add(ev.Finger, now)
			notes = append(notes, a.play(ev, now))
		}
	}

	a.publish(Snapshot{
		Timestamp: frame.Timestamp,
		Width:     frame.Width,
		Height:    frame.Height,
		Hands:     hands,
		Active:    a.tracker.Snapshot().IDs(),
		Notes:     notes,
	}, notes)

	return true
}

// readFailed counts a failed read and ends the session once the device has
// failed MaxReadErrors times in a row.
func (l *frameLoop) readFailed(err error) {
	l.readErrors++
	if l.readErrors == 1 {
		log.Printf("Error reading frame: %v", err)
	}
	if l.readErrors < MaxReadErrors || l.failed {
		return
	}

	log.Printf("Camera failed %d times in a row, stopping: %v", l.readErrors, err)
	l.failed = true
	l.app.abort(l.stopCh)
}

// renderPreview mirrors the frame, draws the overlay on it and keeps the
// result as the latest preview.
func (l *frameLoop) renderPreview(frame *capture.Frame, hands []detector.HandLandmarks, active feedback.Set) {
	a := l.app

	preview := render.Preview(frame.Mat)
	defer preview.Close()
	if preview.Empty() {
		return
	}

	a.renderer.Render(&preview, hands, active)

	data, err := render.EncodeJPEG(&preview)
	if err != nil {
		log.Printf("Error encoding preview: %v", err)
		return
	}

	a.mu.Lock()
	a.preview = data
	a.mu.Unlock()
}

// play sends a pressed note to the sinks and records it.
func (a *App) play(ev gesture.NoteEvent, now time.Time) Note {
	a.mu.Lock()
	note := Note{
		NoteEvent:  ev,
		Name:       ev.Name(),
		Instrument: a.instrument,
		At:         now,
	}
	sess := a.session
	a.lastNote = note.Name
	a.mu.Unlock()

	velocity := ev.Velocity.Level()
	if err := a.sink.PlayNote(note.Name, audio.Eighth, velocity); err != nil {
		log.Printf("Error playing %s: %v", note.Name, err)
	}

	if sess == nil {
		return note
	}
	note.SessionID = sess.id

	if sess.recorder != nil {
		if err := sess.recorder.PlayNote(note.Name, audio.Eighth, velocity); err != nil {
			log.Printf("Error recording %s: %v", note.Name, err)
		}
	}

	if a.config.Store != nil {
		err := a.config.Store.Notes().Add(&store.Note{
			SessionID:  sess.id,
			Name:       note.Name,
			Finger:     ev.Finger.String(),
			Velocity:   ev.Velocity.String(),
			Instrument: string(note.Instrument),
			OffsetMS:   now.Sub(sess.startedAt).Milliseconds(),
			PlayedAt:   now,
		})
		if err != nil {
			log.Printf("Error saving note: %v", err)
		}
	}

	return note
}

func (a *App) publish(snap Snapshot, notes []Note) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()

	for _, n := range notes {
		for _, fn := range a.onNote {
			fn(n)
		}
	}
	for _, fn := range a.onFrame {
		fn(snap)
	}
}

func (a *App) setStatus(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}
