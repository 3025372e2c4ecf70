// Package config loads the airkeys YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/airkeys/internal/audio"
	"github.com/ayusman/airkeys/internal/capture"
	"github.com/ayusman/airkeys/internal/detector"
	"github.com/ayusman/airkeys/internal/feedback"
)

// DirName is the per-user data directory under the home directory.
const DirName = ".airkeys"

// Config is the complete application configuration.
type Config struct {
	Addr      string          `yaml:"addr"`
	StaticDir string          `yaml:"static_dir"`
	Camera    capture.Config  `yaml:"camera"`
	Loop      LoopConfig      `yaml:"loop"`
	Detector  detector.Config `yaml:"detector"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Audio     AudioConfig     `yaml:"audio"`
	Tray      bool            `yaml:"tray"`
}

// LoopConfig controls the frame loop.
type LoopConfig struct {
	// RefreshHz is how often the loop ticks, standing in for the display
	// refresh rate.
	RefreshHz int `yaml:"refresh_hz"`
}

// Interval returns the tick period.
func (l LoopConfig) Interval() time.Duration {
	return time.Second / time.Duration(l.RefreshHz)
}

// FeedbackConfig controls the highlight dwell.
type FeedbackConfig struct {
	DwellMS int `yaml:"dwell_ms"`
}

// Dwell returns the highlight dwell as a duration.
func (f FeedbackConfig) Dwell() time.Duration {
	return time.Duration(f.DwellMS) * time.Millisecond
}

// AudioConfig selects the note sinks.
type AudioConfig struct {
	Instrument audio.Kind `yaml:"instrument"`
	Speaker    bool       `yaml:"speaker"`
	// MIDIPort is a port name prefix; empty disables MIDI out. Use "*" for
	// the first available port.
	MIDIPort    string `yaml:"midi_port"`
	MIDIChannel int    `yaml:"midi_channel"`
	// RecordDir, when set, receives one WAV file per session.
	RecordDir string `yaml:"record_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     ":8080",
		Camera:   capture.DefaultConfig(),
		Loop:     LoopConfig{RefreshHz: 60},
		Detector: detector.DefaultConfig(),
		Feedback: FeedbackConfig{DwellMS: int(feedback.DefaultDwell / time.Millisecond)},
		Audio: AudioConfig{
			Instrument: audio.DefaultInstrument().Kind,
			Speaker:    true,
		},
		Tray: true,
	}
}

// DefaultDir returns ~/.airkeys.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Loop.RefreshHz <= 0:
		return fmt.Errorf("loop.refresh_hz must be positive, got %d", c.Loop.RefreshHz)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	case c.Detector.MaxHands < 1 || c.Detector.MaxHands > 2:
		return fmt.Errorf("detector.max_hands must be 1 or 2, got %d", c.Detector.MaxHands)
	case c.Feedback.DwellMS <= 0:
		return fmt.Errorf("feedback.dwell_ms must be positive, got %d", c.Feedback.DwellMS)
	case c.Audio.MIDIChannel < 0 || c.Audio.MIDIChannel > 15:
		return fmt.Errorf("audio.midi_channel must be 0-15, got %d", c.Audio.MIDIChannel)
	}
	for _, conf := range []float64{
		c.Detector.MinDetectionConf,
		c.Detector.MinPresenceConf,
		c.Detector.MinTrackingConf,
	} {
		if conf < 0 || conf > 1 {
			return fmt.Errorf("detector confidence must be within [0,1], got %v", conf)
		}
	}
	if _, err := audio.LookupInstrument(c.Audio.Instrument); err != nil {
		return fmt.Errorf("audio.instrument: %w", err)
	}
	return nil
}

// Save writes c to path as YAML.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
