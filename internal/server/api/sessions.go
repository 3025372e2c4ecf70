package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/airkeys/internal/store"
)

// SessionsHandler serves the session history.
// Routes: GET /api/sessions, GET|DELETE /api/sessions/{id},
// GET /api/sessions/{id}/notes.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type sessionResponse struct {
	ID         string `json:"id"`
	Instrument string `json:"instrument"`
	StartedAt  string `json:"started_at"`
	StoppedAt  string `json:"stopped_at,omitempty"`
	Active     bool   `json:"active"`
	NoteCount  int    `json:"note_count"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type noteResponse struct {
	Name       string `json:"name"`
	Finger     string `json:"finger"`
	Velocity   string `json:"velocity"`
	Instrument string `json:"instrument"`
	OffsetMS   int64  `json:"offset_ms"`
}

type listNotesResponse struct {
	Notes []noteResponse `json:"notes"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID,
		Instrument: s.Instrument,
		StartedAt:  s.StartedAt.Format(timeFormat),
		Active:     s.Active(),
		NoteCount:  s.NoteCount,
	}
	if s.StoppedAt != nil {
		resp.StoppedAt = s.StoppedAt.Format(timeFormat)
	}
	return resp
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, parts[0])
		case http.MethodDelete:
			h.delete(w, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "notes":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.notes(w, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/sessions[?limit=n].
func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *SessionsHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) notes(w http.ResponseWriter, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	notes, err := h.store.Notes().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}

	response := listNotesResponse{
		Notes: make([]noteResponse, 0, len(notes)),
	}
	for _, n := range notes {
		response.Notes = append(response.Notes, noteResponse{
			Name:       n.Name,
			Finger:     n.Finger,
			Velocity:   n.Velocity,
			Instrument: n.Instrument,
			OffsetMS:   n.OffsetMS,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
