package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/airkeys/internal/app"
	"github.com/ayusman/airkeys/internal/audio"
	"github.com/ayusman/airkeys/internal/capture"
	"github.com/ayusman/airkeys/internal/config"
	"github.com/ayusman/airkeys/internal/detector"
	"github.com/ayusman/airkeys/internal/server"
	"github.com/ayusman/airkeys/internal/store"
	"github.com/ayusman/airkeys/internal/tray"
)

func main() {
	fmt.Println("Airkeys - Play notes with your fingers")

	dataDir, err := config.DefaultDir()
	if err != nil {
		log.Fatalf("Failed to get data directory: %v", err)
	}

	configPath := flag.String("config", filepath.Join(dataDir, "config.yaml"), "path to the YAML configuration file")
	addr := flag.String("addr", "", "listen address (overrides the config file)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *noTray {
		cfg.Tray = false
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "airkeys.db")
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Camera:          capture.NewCamera(cfg.Camera),
		Sink:            openSinks(cfg.Audio),
		Store:           st,
		RefreshInterval: cfg.Loop.Interval(),
		Dwell:           cfg.Feedback.Dwell(),
		Instrument:      cfg.Audio.Instrument,
		RecordDir:       cfg.Audio.RecordDir,
	})
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// The detector starts a helper process; load it without blocking the UI.
	go loadDetector(a, cfg.Detector)

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})
	defer srv.Close()

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := srv.ListenAndServe(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if cfg.Tray {
		runTray(a, browserURL(cfg.Addr))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Println("Shutting down")
}

// loadDetector starts the detection service and waits for its model, so a
// broken install leaves start disabled instead of failing inside a session.
func loadDetector(a *app.App, cfg detector.Config) {
	d, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		a.SetDetectorError(err)
		return
	}
	if err := d.Start(); err != nil {
		d.Close()
		a.SetDetectorError(err)
		return
	}
	a.SetDetector(d)
	log.Println("Hand detector ready")
}

// openSinks builds the configured note sinks. A sink that cannot be opened
// is logged and left out.
func openSinks(cfg config.AudioConfig) audio.Multi {
	var sinks audio.Multi

	if cfg.Speaker {
		speaker, err := audio.NewSpeakerSink(cfg.Instrument)
		if err != nil {
			log.Printf("Speaker output disabled: %v", err)
		} else {
			sinks = append(sinks, speaker)
		}
	}

	if cfg.MIDIPort != "" {
		prefix := cfg.MIDIPort
		if prefix == "*" {
			prefix = ""
		}
		out, err := audio.OpenMIDIOut(prefix)
		if err != nil {
			log.Printf("MIDI output disabled: %v", err)
		} else if sink, err := audio.NewMIDISink(out, uint8(cfg.MIDIChannel), cfg.Instrument); err != nil {
			out.Close()
			log.Printf("MIDI output disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}

	if len(sinks) == 0 {
		log.Println("No audio output configured; notes will only be shown")
	}
	return sinks
}

// runTray blocks until the tray's Quit item is clicked.
func runTray(a *app.App, url string) {
	t := tray.New(a.Instrument().Kind)

	t.OnToggle(func() (bool, error) {
		err := a.Toggle()
		return a.State() == app.Running, err
	})
	t.OnInstrument(a.SetInstrument)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	a.OnNote(func(n app.Note) {
		t.SetLastNote(n.Name)
	})

	stop := make(chan struct{})
	t.OnQuit(func() { close(stop) })

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				info := a.Info()
				t.Sync(tray.Snapshot{
					Running:    info.State == app.Running,
					CanStart:   info.Status.CanStart(),
					Status:     info.Status.Text(),
					Instrument: info.Instrument.Kind,
				})
			}
		}
	}()

	t.Run()
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
