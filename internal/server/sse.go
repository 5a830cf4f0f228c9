package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// keepAliveInterval is how long the relay waits on the event channel before
// emitting a keep-alive frame so proxies do not drop the idle connection.
const keepAliveInterval = 2 * time.Second

var keepAliveFrame = []byte(`{"status":"keep-alive"}`)

// StreamProgress handles GET /stream-progress/{id}. It emits the task's full
// current state first, then forwards partial updates as they arrive, and
// closes once a terminal state has been sent.
func (s *Server) StreamProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	events, err := s.registry.Subscribe(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(v any) bool {
		payload, err := json.Marshal(v)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(task) || task.Status.IsTerminal() {
		return
	}

	timer := time.NewTimer(keepAliveInterval)
	defer timer.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case u, open := <-events:
			if !open {
				return
			}
			if !send(u) {
				return
			}
			if u.Status.IsTerminal() {
				return
			}

		case <-timer.C:
			// Idle: close if the task already ended, otherwise keep the
			// connection warm.
			task, err := s.registry.Get(id)
			if err != nil || task.Status.IsTerminal() {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", keepAliveFrame); err != nil {
				return
			}
			flusher.Flush()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(keepAliveInterval)
	}
}
