package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame captured at timestamp and returns the
	// detected hands. Confidence gating is applied by the implementation,
	// so callers never see sub-threshold detections. Returns an empty slice
	// if no hands are detected.
	Detect(frame *gocv.Mat, timestamp time.Duration) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `yaml:"max_hands"`

	// MinDetectionConf is the minimum hand detection confidence (0.0-1.0).
	MinDetectionConf float64 `yaml:"min_detection_confidence"`

	// MinPresenceConf is the minimum hand presence confidence (0.0-1.0).
	MinPresenceConf float64 `yaml:"min_presence_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:         2,
		MinDetectionConf: 0.6,
		MinPresenceConf:  0.6,
		MinTrackingConf:  0.6,
	}
}
