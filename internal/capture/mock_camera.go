package capture

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockFrame is one scripted frame for MockCamera. A nil Mat plays back as a
// zero-dimension frame, the way a device looks before it warms up.
type MockFrame struct {
	Mat       *gocv.Mat
	Timestamp time.Duration
}

// MockCamera plays back scripted frames for testing.
type MockCamera struct {
	frames  []MockFrame
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	openErr error
	opens   int
	closes  int
}

// NewMockCamera creates a camera that plays frames in order, restarting
// from the first one when loop is set.
func NewMockCamera(frames []MockFrame, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

// SetOpenError makes the next Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	c.opens++
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.closes++
	}
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, fmt.Errorf("no more frames")
		}
		c.index = 0
	}

	scripted := c.frames[c.index]
	c.index++

	if scripted.Mat == nil {
		empty := gocv.NewMat()
		return &Frame{Mat: &empty, Timestamp: scripted.Timestamp}, nil
	}

	// Clone the frame so the original isn't modified
	mat := scripted.Mat.Clone()
	return &Frame{
		Mat:       &mat,
		Timestamp: scripted.Timestamp,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
	}, nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []MockFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Opens and Closes report how often the device was acquired and released.
func (c *MockCamera) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

func (c *MockCamera) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
