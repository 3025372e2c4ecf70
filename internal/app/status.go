package app

// State is the session state.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Status is the user-visible status.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusStarting
	StatusRunning
	StatusStopped
	StatusModelError
	StatusCameraError
)

var statusText = map[Status]string{
	StatusLoading:     "Loading model...",
	StatusReady:       "Ready to start the webcam",
	StatusStarting:    "Starting webcam...",
	StatusRunning:     "Webcam active. Move your hands!",
	StatusStopped:     "Webcam stopped. Press start to begin.",
	StatusModelError:  "Error loading the model. Check the logs.",
	StatusCameraError: "Error accessing the webcam.",
}

// Text returns the status line shown to the user.
func (s Status) Text() string {
	return statusText[s]
}

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusModelError:
		return "model_error"
	case StatusCameraError:
		return "camera_error"
	default:
		return "unknown"
	}
}

// CanStart reports whether the start control should be enabled.
func (s Status) CanStart() bool {
	return s != StatusLoading && s != StatusModelError
}
