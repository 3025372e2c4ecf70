package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/airkeys/internal/audio"
)

// InstrumentSelector is the part of the application that picks the voice.
type InstrumentSelector interface {
	Instrument() audio.Instrument
	SetInstrument(kind audio.Kind) error
}

// InstrumentsHandler lists presets and switches the active one.
// Routes: GET /api/instruments, PUT /api/instruments.
type InstrumentsHandler struct {
	selector InstrumentSelector
}

// NewInstrumentsHandler creates a new InstrumentsHandler.
func NewInstrumentsHandler(s InstrumentSelector) *InstrumentsHandler {
	return &InstrumentsHandler{selector: s}
}

type instrumentResponse struct {
	Name     string     `json:"name"`
	Kind     audio.Kind `json:"kind"`
	Selected bool       `json:"selected"`
}

type listInstrumentsResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

type selectInstrumentRequest struct {
	Kind audio.Kind `json:"kind"`
}

// ServeHTTP implements the http.Handler interface.
func (h *InstrumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w)
	case http.MethodPut:
		h.choose(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *InstrumentsHandler) list(w http.ResponseWriter) {
	current := h.selector.Instrument().Kind

	response := listInstrumentsResponse{
		Instruments: make([]instrumentResponse, 0, len(audio.Instruments)),
	}
	for _, inst := range audio.Instruments {
		response.Instruments = append(response.Instruments, instrumentResponse{
			Name:     inst.Name,
			Kind:     inst.Kind,
			Selected: inst.Kind == current,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *InstrumentsHandler) choose(w http.ResponseWriter, r *http.Request) {
	var req selectInstrumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.selector.SetInstrument(req.Kind); err != nil {
		if errors.Is(err, audio.ErrUnknownInstrument) {
			writeError(w, http.StatusBadRequest, "Unknown instrument")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to set instrument")
		return
	}

	h.list(w)
}
