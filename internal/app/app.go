// Package app runs an airkeys session: it owns the capture device and the
// frame loop that turns hand landmarks into notes and overlay frames.
package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/airkeys/internal/audio"
	"github.com/ayusman/airkeys/internal/capture"
	"github.com/ayusman/airkeys/internal/detector"
	"github.com/ayusman/airkeys/internal/feedback"
	"github.com/ayusman/airkeys/internal/gesture"
	"github.com/ayusman/airkeys/internal/render"
	"github.com/ayusman/airkeys/internal/store"
)

// DefaultRefreshRate is the tick rate when none is configured.
const DefaultRefreshRate = 60

var (
	// ErrDetectorUnavailable is returned by Start before a detector is loaded
	// or after it failed to load.
	ErrDetectorUnavailable = errors.New("hand detector unavailable")
	// ErrCameraUnavailable is returned by Start when the capture device
	// cannot be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Config holds configuration options for the application.
type Config struct {
	Camera capture.Camera
	// Detector may be nil and supplied later with SetDetector.
	Detector detector.Detector
	Sink     audio.Sink
	// Store is optional. Without it sessions are not recorded and the
	// instrument is not persisted.
	Store    *store.Store
	Renderer *render.Renderer
	// RefreshInterval is the tick period. Defaults to 1/60s.
	RefreshInterval time.Duration
	// Dwell is the highlight duration. Defaults to feedback.DefaultDwell.
	Dwell time.Duration
	// Instrument is used when the store has no saved choice.
	Instrument audio.Kind
	// RecordDir, when set, receives a WAV recording of each session.
	RecordDir string
	// Now is the tick clock. Defaults to time.Now.
	Now func() time.Time
}

// Note is a played note as reported to observers.
type Note struct {
	gesture.NoteEvent
	Name       string
	Instrument audio.Kind
	SessionID  string
	At         time.Time
}

// Snapshot is what one processed tick saw and did.
type Snapshot struct {
	Timestamp time.Duration
	Width     int
	Height    int
	Hands     []detector.HandLandmarks
	Active    []gesture.FingerID
	Notes     []Note
}

// Info is a point-in-time view of the application state.
type Info struct {
	State      State
	Status     Status
	Instrument audio.Instrument
	SessionID  string
	LastNote   string
}

// App owns the session lifecycle and the frame loop.
type App struct {
	config   Config
	camera   capture.Camera
	sink     audio.Sink
	renderer *render.Renderer

	// Finger state and highlight set belong to the loop goroutine while a
	// session runs; Stop resets them only after the loop has exited.
	engine  *gesture.Engine
	tracker *feedback.Tracker

	mu          sync.RWMutex
	detector    detector.Detector
	detectorErr error
	state       State
	status      Status
	instrument  audio.Kind
	session     *session
	stopCh      chan struct{}
	done        chan struct{}
	preview     []byte
	lastNote    string

	obsMu   sync.RWMutex
	onFrame []func(Snapshot)
	onNote  []func(Note)
}

// session is the per-Start bookkeeping.
type session struct {
	id        string
	startedAt time.Time
	recorder  *audio.Recorder
}

// New creates an App. Without a detector the app reports StatusLoading
// until SetDetector or SetDetectorError is called.
func New(config Config) *App {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = time.Second / DefaultRefreshRate
	}
	if config.Dwell <= 0 {
		config.Dwell = feedback.DefaultDwell
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Renderer == nil {
		config.Renderer = render.NewRenderer(render.DefaultStyle())
	}
	if config.Sink == nil {
		config.Sink = audio.Multi{}
	}
	if !config.Instrument.Valid() {
		config.Instrument = audio.DefaultInstrument().Kind
	}

	a := &App{
		config:     config,
		camera:     config.Camera,
		sink:       config.Sink,
		renderer:   config.Renderer,
		engine:     gesture.NewEngine(),
		tracker:    feedback.NewTracker(config.Dwell),
		detector:   config.Detector,
		state:      Idle,
		status:     StatusLoading,
		instrument: config.Instrument,
	}
	if a.detector != nil {
		a.status = StatusReady
	}

	a.restoreInstrument()
	return a
}

// restoreInstrument applies the saved instrument, falling back to the
// configured one.
func (a *App) restoreInstrument() {
	kind := a.instrument
	if a.config.Store != nil {
		saved, err := a.config.Store.Settings().Get(store.SettingInstrument)
		switch {
		case err == nil && audio.Kind(saved).Valid():
			kind = audio.Kind(saved)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Printf("Failed to load saved instrument: %v", err)
		}
	}

	if err := a.sink.SetInstrument(kind); err != nil {
		log.Printf("Failed to set instrument %s: %v", kind, err)
	}
	a.instrument = kind
}

// SetDetector installs the hand detector and enables Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	a.detectorErr = nil
	if a.state == Idle {
		a.status = StatusReady
	}
}

// SetDetectorError records that the detector failed to load. Start stays
// disabled.
func (a *App) SetDetectorError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = nil
	a.detectorErr = err
	a.status = StatusModelError
	log.Printf("Hand detector failed to load: %v", err)
}

// Start opens the camera and starts the frame loop. Starting a running app
// is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Running {
		return nil
	}
	if a.detector == nil {
		if a.detectorErr != nil {
			return fmt.Errorf("%w: %w", ErrDetectorUnavailable, a.detectorErr)
		}
		return ErrDetectorUnavailable
	}

	a.status = StatusStarting
	if err := a.camera.Open(); err != nil {
		a.status = StatusCameraError
		log.Printf("Failed to open camera: %v", err)
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	a.session = a.beginSession()
	a.state = Running
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})

	go a.runLoop(a.detector, a.stopCh, a.done)

	log.Println("Frame loop started")
	return nil
}

func (a *App) beginSession() *session {
	sess := &session{
		id:        uuid.NewString(),
		startedAt: a.config.Now(),
	}

	if a.config.Store != nil {
		err := a.config.Store.Sessions().Create(&store.Session{
			ID:         sess.id,
			Instrument: string(a.instrument),
			StartedAt:  sess.startedAt,
		})
		if err != nil {
			log.Printf("Failed to record session: %v", err)
		}
	}

	if a.config.RecordDir != "" {
		if err := os.MkdirAll(a.config.RecordDir, 0755); err != nil {
			log.Printf("Failed to create recording directory: %v", err)
		} else {
			path := filepath.Join(a.config.RecordDir, sess.id+".wav")
			rec, err := audio.NewRecorder(path, a.instrument)
			if err != nil {
				log.Printf("Failed to start recording: %v", err)
			} else {
				sess.recorder = rec
			}
		}
	}

	return sess
}

// Stop halts the frame loop, waits for the tick in progress and releases
// the camera. Finger state, highlights and the preview are cleared.
func (a *App) Stop() {
	a.mu.Lock()
	if a.state != Running || a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	done := a.done
	a.stopCh = nil
	a.done = nil
	a.mu.Unlock()

	// The loop takes the read lock while publishing, so wait unlocked.
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()

	status := StatusStopped
	if a.detector == nil && a.detectorErr != nil {
		status = StatusModelError
	}
	a.teardown(status)

	log.Println("Frame loop stopped")
}

// abort ends the session from the loop goroutine after the capture device
// failed. It does nothing if Stop already owns the shutdown of stopCh.
func (a *App) abort(stopCh <-chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh == nil || a.stopCh != stopCh {
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	a.done = nil
	a.teardown(StatusCameraError)

	log.Println("Frame loop stopped after camera error")
}

// teardown releases the session's resources. The caller holds a.mu and the
// loop is either finished or is the caller.
func (a *App) teardown(status Status) {
	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.engine.Reset()
	a.tracker.Clear()
	a.preview = nil
	a.endSession(a.session)
	a.session = nil
	a.state = Idle
	a.status = status
}

func (a *App) endSession(sess *session) {
	if sess == nil {
		return
	}
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Finish(sess.id, a.config.Now()); err != nil {
			log.Printf("Failed to finish session: %v", err)
		}
	}
	if sess.recorder != nil {
		if err := sess.recorder.Close(); err != nil {
			log.Printf("Failed to write recording: %v", err)
		} else if sess.recorder.Len() > 0 {
			log.Printf("Session recorded to %s", sess.recorder.Path())
		}
	}
}

// Toggle starts a stopped app and stops a running one.
func (a *App) Toggle() error {
	if a.State() == Running {
		a.Stop()
		return nil
	}
	return a.Start()
}

// Close stops the app and releases the detector and sinks.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}
	if err := a.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sink: %w", err))
	}
	return errors.Join(errs...)
}

// SetInstrument switches the voice for subsequent notes and saves the
// choice. The session keeps running.
func (a *App) SetInstrument(kind audio.Kind) error {
	if _, err := audio.LookupInstrument(kind); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.sink.SetInstrument(kind); err != nil {
		return err
	}
	if a.session != nil && a.session.recorder != nil {
		a.session.recorder.SetInstrument(kind)
	}
	a.instrument = kind

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingInstrument, string(kind)); err != nil {
			log.Printf("Failed to save instrument: %v", err)
		}
	}
	return nil
}

// Instrument returns the selected instrument preset.
func (a *App) Instrument() audio.Instrument {
	a.mu.RLock()
	defer a.mu.RUnlock()
	inst, _ := audio.LookupInstrument(a.instrument)
	return inst
}

// State returns whether a session is running.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Status returns the user-visible status.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Info returns the current state, status, instrument and session.
func (a *App) Info() Info {
	a.mu.RLock()
	defer a.mu.RUnlock()

	inst, _ := audio.LookupInstrument(a.instrument)
	info := Info{
		State:      a.state,
		Status:     a.status,
		Instrument: inst,
		LastNote:   a.lastNote,
	}
	if a.session != nil {
		info.SessionID = a.session.id
	}
	return info
}

// Preview returns the latest overlay frame as JPEG, or nil when stopped.
func (a *App) Preview() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.preview
}

// OnFrame registers fn to receive every processed tick. Observers run on the
// loop goroutine and must not block.
func (a *App) OnFrame(fn func(Snapshot)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onFrame = append(a.onFrame, fn)
}

// OnNote registers fn to receive every played note.
func (a *App) OnNote(fn func(Note)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.onNote = append(a.onNote, fn)
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
