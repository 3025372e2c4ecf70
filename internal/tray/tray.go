// Package tray provides the system tray interface for airkeys.
package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/airkeys/internal/audio"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func() (running bool, err error)
	onInstrument func(kind audio.Kind) error
	onOpen       func()
	onQuit       func()

	mu         sync.RWMutex
	running    bool
	canStart   bool
	instrument audio.Kind
	status     string
	lastNote   string

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuStatus      *systray.MenuItem
	menuInstruments map[audio.Kind]*systray.MenuItem
}

// Snapshot is the application state the tray mirrors.
type Snapshot struct {
	Running    bool
	CanStart   bool
	Status     string
	Instrument audio.Kind
}

// New creates a stopped Tray showing instrument as selected. The toggle is
// disabled until a Sync reports that capture can start.
func New(instrument audio.Kind) *Tray {
	return &Tray{
		instrument: instrument,
	}
}

// OnToggle sets the callback for the Start/Stop item. It returns whether
// capture is running afterwards.
func (t *Tray) OnToggle(fn func() (bool, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnInstrument sets the callback for the instrument submenu.
func (t *Tray) OnInstrument(fn func(kind audio.Kind) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onInstrument = fn
}

// OnOpen sets the callback for the "Open in browser" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady builds the menu.
func (t *Tray) onReady() {
	systray.SetTitle("Airkeys")
	systray.SetTooltip("Airkeys air instrument")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.running), "Start or stop the webcam")
	t.refreshToggle()
	t.menuStatus = systray.AddMenuItem(statusTitle(t.status, t.lastNote), "Status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuInstrument := systray.AddMenuItem("Instrument", "Choose the instrument")
	t.menuInstruments = make(map[audio.Kind]*systray.MenuItem, len(audio.Instruments))
	for _, inst := range audio.Instruments {
		item := menuInstrument.AddSubMenuItemCheckbox(inst.Name, string(inst.Kind), inst.Kind == t.instrument)
		t.menuInstruments[inst.Kind] = item
		go t.watchInstrument(inst.Kind, item)
	}
	t.mu.Unlock()

	systray.AddSeparator()
	menuOpen := systray.AddMenuItem("Open in browser", "Open the preview in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Airkeys")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchInstrument(kind audio.Kind, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.handleInstrument(kind)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	callback := t.onToggle
	enabled := t.toggleEnabled()
	t.mu.RUnlock()

	if callback == nil || !enabled {
		return
	}

	// Call the callback outside the lock to prevent deadlocks
	running, err := callback()
	if err != nil {
		log.Printf("Tray toggle failed: %v", err)
	}
	t.SetRunning(running)
}

func (t *Tray) handleInstrument(kind audio.Kind) {
	t.mu.RLock()
	callback := t.onInstrument
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(kind); err != nil {
			log.Printf("Tray instrument change failed: %v", err)
			t.SetInstrument(t.Instrument())
			return
		}
	}
	t.SetInstrument(kind)
}

// handleOpen handles the "Open in browser" click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Sync applies an application snapshot: toggle title and enabled state,
// status line and instrument checkmark.
func (t *Tray) Sync(s Snapshot) {
	t.mu.Lock()
	t.running = s.Running
	t.canStart = s.CanStart
	t.refreshToggle()
	if s.Status != t.status {
		t.status = s.Status
		t.refreshStatus()
	}
	changed := s.Instrument != t.instrument
	t.mu.Unlock()

	if changed && s.Instrument.Valid() {
		t.SetInstrument(s.Instrument)
	}
}

// SetRunning updates the toggle item.
func (t *Tray) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = running
	t.refreshToggle()
}

// toggleEnabled reports whether the toggle can be used: a running session
// can always be stopped, an idle one started only when the app allows it.
func (t *Tray) toggleEnabled() bool {
	return t.running || t.canStart
}

func (t *Tray) refreshToggle() {
	if t.menuToggle == nil {
		return
	}
	t.menuToggle.SetTitle(toggleTitle(t.running))
	if t.toggleEnabled() {
		t.menuToggle.Enable()
	} else {
		t.menuToggle.Disable()
	}
}

// SetLastNote updates the last played note on the status line.
func (t *Tray) SetLastNote(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == t.lastNote {
		return
	}
	t.lastNote = name
	t.refreshStatus()
}

func (t *Tray) refreshStatus() {
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(t.status, t.lastNote))
	}
}

// SetInstrument moves the checkmark to kind.
func (t *Tray) SetInstrument(kind audio.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.instrument = kind
	for k, item := range t.menuInstruments {
		if k == kind {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// Instrument returns the checked instrument.
func (t *Tray) Instrument() audio.Kind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.instrument
}

// IsEnabled returns whether the toggle item is enabled.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.toggleEnabled()
}

// IsRunning returns whether the tray shows capture as running.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func toggleTitle(running bool) string {
	if running {
		return "■ Stop"
	}
	return "▶ Start"
}

func statusTitle(status, lastNote string) string {
	if status == "" {
		status = "Idle"
	}
	if lastNote == "" {
		return status
	}
	return status + " · Last: " + lastNote
}
