package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when the MediaPipe service script cannot be located.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// idleShutdown is how long the Python process may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// readyTimeout bounds how long the service may take to load its model.
const readyTimeout = 60 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// running the hand landmarker in video mode.
//
// Wire protocol: once the model is loaded the service writes one JSON line,
// {"ready": true}, or {"error": "..."} if it cannot load. Then, per frame, it
// reads a 4-byte big-endian payload length, an 8-byte big-endian timestamp in
// milliseconds and the JPEG-encoded frame, and answers with one JSON line:
// {"hands": [{"points": [{"x":..,"y":..,"z":..}], "handedness": "Left",
// "score": 0.9}]} or {"error": "..."}. Timestamps must strictly increase for
// the lifetime of the process.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	// interpreter overrides the Python lookup.
	interpreter string

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer

	// lastSent is the last timestamp written to the running process.
	lastSent time.Duration
	sentAny  bool
}

// NewMediaPipeDetector creates a new MediaPipe detector. The Python process
// is started by Start, or lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Start launches the service and waits until its model has loaded. Load
// failures (missing interpreter, missing mediapipe module, unreachable model
// asset) are reported here rather than on the first Detect.
func (d *MediaPipeDetector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return err
	}
	d.resetIdleTimer()
	return nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, timestamp time.Duration) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	binary.BigEndian.PutUint64(header[4:], uint64(d.nextTimestamp(timestamp).Milliseconds()))

	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	hands, err := parseResponse([]byte(line), d.config.MaxHands)
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return hands, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// serviceArgs builds the command line passed to the service script. The
// script speaks the protocol described on MediaPipeDetector.
func (d *MediaPipeDetector) serviceArgs() []string {
	return []string{
		d.scriptPath,
		"--num-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinDetectionConf, 'f', -1, 64),
		"--min-presence-confidence", strconv.FormatFloat(d.config.MinPresenceConf, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
}

// nextTimestamp returns timestamp, raised to 1ms past the last one sent if
// needed. Capture clocks restart when the camera is reopened, but the
// service keeps running across sessions and rejects time going backwards.
func (d *MediaPipeDetector) nextTimestamp(timestamp time.Duration) time.Duration {
	timestamp = timestamp.Truncate(time.Millisecond)
	if d.sentAny && timestamp <= d.lastSent {
		timestamp = d.lastSent + time.Millisecond
	}
	d.lastSent = timestamp
	d.sentAny = true
	return timestamp
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.interpreter
	if pythonPath == "" {
		// Use virtual environment Python if available
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.serviceArgs()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.sentAny = false
	d.lastUsed = time.Now()

	if err := d.waitReady(readyTimeout); err != nil {
		d.cmd.Process.Kill()
		d.shutdown()
		return err
	}

	return nil
}

// waitReady reads the service's first line.
func (d *MediaPipeDetector) waitReady(timeout time.Duration) error {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	stdout := d.stdout
	go func() {
		line, err := stdout.ReadString('\n')
		ch <- result{line, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-time.After(timeout):
		return fmt.Errorf("mediapipe service not ready after %v", timeout)
	}
	if r.err != nil {
		return fmt.Errorf("mediapipe service exited before ready: %w", r.err)
	}

	var reply struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(r.line), &reply); err != nil {
		return fmt.Errorf("parse ready line: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("mediapipe service: %s", reply.Error)
	}
	if !reply.Ready {
		return errors.New("mediapipe service did not report ready")
	}
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".airkeys/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".airkeys/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// parseResponse decodes one service reply, keeping at most maxHands hands in
// the order the service reported them.
func parseResponse(line []byte, maxHands int) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	hands := response.Hands
	if maxHands > 0 && len(hands) > maxHands {
		hands = hands[:maxHands]
	}

	result := make([]HandLandmarks, len(hands))
	for i, h := range hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	n := len(h.Points)
	if n > NumLandmarks {
		n = NumLandmarks
	}

	lm := HandLandmarks{
		Points:     make([]Point3D, n),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < n; i++ {
		lm.Points[i] = Point3D{X: h.Points[i].X, Y: h.Points[i].Y, Z: h.Points[i].Z}
	}
	return lm
}
