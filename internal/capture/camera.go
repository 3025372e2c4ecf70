// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default capture settings. The resolution is a request; the device may
// deliver something else and Frame reports what was actually captured.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Frame is one captured video frame.
type Frame struct {
	// Mat holds the pixels. It is empty while the device is warming up.
	Mat *gocv.Mat
	// Timestamp is the presentation time of the frame. Two reads that
	// return the same timestamp returned the same frame.
	Timestamp time.Duration
	Width     int
	Height    int
}

// Close releases the frame's pixel buffer.
func (f *Frame) Close() error {
	if f == nil || f.Mat == nil {
		return nil
	}
	err := f.Mat.Close()
	f.Mat = nil
	return err
}

// Empty reports whether the frame has zero dimensions.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the current frame. The caller owns the frame and
	// must Close it.
	ReadFrame() (*Frame, error)
	IsOpen() bool
}

// Config holds the capture device settings.
type Config struct {
	DeviceID int `yaml:"device_id"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
}

// DefaultConfig returns the default capture settings.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
	}
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	config  Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	// epoch is the first Open. The fallback clock counts from it so that
	// timestamps keep increasing across reopens.
	epoch time.Time
}

// NewCamera creates a new Camera for the configured device.
func NewCamera(config Config) Camera {
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	return &cameraImpl{config: config}
}

// Open opens the camera and requests the configured resolution.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open device %d: %w", c.config.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open device %d: device unavailable", c.config.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))

	c.capture = capture
	c.running = true
	if c.epoch.IsZero() {
		c.epoch = time.Now()
	}

	return nil
}

// Close stops capture and releases the device.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame grabs the current frame from the device.
func (c *cameraImpl) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	frame := &Frame{
		Mat:       &mat,
		Timestamp: c.timestamp(),
		Width:     mat.Cols(),
		Height:    mat.Rows(),
	}
	return frame, nil
}

// timestamp returns the device position of the frame just read. Webcams
// that do not report a position get the time elapsed since the first Open.
func (c *cameraImpl) timestamp() time.Duration {
	posMsec := c.capture.Get(gocv.VideoCapturePosMsec)
	if posMsec > 0 {
		return time.Duration(posMsec * float64(time.Millisecond))
	}
	return time.Since(c.epoch)
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
