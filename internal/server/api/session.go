package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/airkeys/internal/app"
	"github.com/ayusman/airkeys/internal/audio"
)

// Controller is the part of the application the session endpoints drive.
type Controller interface {
	Start() error
	Stop()
	Info() app.Info
}

// SessionHandler starts and stops capture and reports status.
// Routes: GET /api/status, POST /api/session, DELETE /api/session.
type SessionHandler struct {
	app Controller
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(a Controller) *SessionHandler {
	return &SessionHandler{app: a}
}

type statusResponse struct {
	State      string           `json:"state"`
	Status     string           `json:"status"`
	StatusText string           `json:"status_text"`
	CanStart   bool             `json:"can_start"`
	Instrument audio.Instrument `json:"instrument"`
	SessionID  string           `json:"session_id,omitempty"`
	LastNote   string           `json:"last_note,omitempty"`
}

func toStatusResponse(info app.Info) statusResponse {
	return statusResponse{
		State:      info.State.String(),
		Status:     info.Status.String(),
		StatusText: info.Status.Text(),
		CanStart:   info.Status.CanStart(),
		Instrument: info.Instrument,
		SessionID:  info.SessionID,
		LastNote:   info.LastNote,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/status":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, toStatusResponse(h.app.Info()))

	case "/api/session":
		switch r.Method {
		case http.MethodPost:
			h.start(w)
		case http.MethodDelete:
			h.app.Stop()
			writeJSON(w, http.StatusOK, toStatusResponse(h.app.Info()))
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) start(w http.ResponseWriter) {
	err := h.app.Start()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toStatusResponse(h.app.Info()))
	case errors.Is(err, app.ErrDetectorUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Hand detector is not available")
	case errors.Is(err, app.ErrCameraUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Camera is not available")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to start session")
	}
}
