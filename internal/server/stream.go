package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// streamPoll is how often the stream checks for a new preview frame.
const streamPoll = 33 * time.Millisecond

// PreviewSource provides the latest overlay frame as JPEG.
type PreviewSource interface {
	Preview() []byte
}

// StreamHandler serves the overlay preview as MJPEG.
type StreamHandler struct {
	source PreviewSource
	poll   time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from source.
func NewStreamHandler(source PreviewSource) *StreamHandler {
	return &StreamHandler{source: source, poll: streamPoll}
}

// ServeHTTP streams each new preview frame until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	var last []byte
	for {
		frame := h.source.Preview()
		if len(frame) > 0 && !bytes.Equal(frame, last) {
			if err := writePart(w, frame); err != nil {
				return
			}
			last = frame
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
