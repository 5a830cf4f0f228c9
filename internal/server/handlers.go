package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arjunmehra/streamfetch/internal/auth"
	"github.com/arjunmehra/streamfetch/internal/formats"
	"github.com/arjunmehra/streamfetch/internal/profile"
	"github.com/arjunmehra/streamfetch/internal/worker"
	"github.com/arjunmehra/streamfetch/pkg/telemetry"
)

// Index handles GET /.
func (s *Server) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "online",
		"supported_models": profile.Supported(),
	})
}

// Models handles GET /models.
func (s *Server) Models(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": profile.Supported()})
}

// ServiceWorker handles GET /sw.js with an empty script so browser clients
// probing for one get a 200 instead of a JSON 404.
func (s *Server) ServiceWorker(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.WriteHeader(http.StatusOK)
}

// ServeFile handles GET /file/{name}, serving a published artifact as an
// attachment.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	path := s.store.PublicPath(name)

	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "File not found. It may have been cleaned up after 1 hour.")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

type downloadRequest struct {
	URL      string `json:"url"`
	Model    string `json:"model"`
	FormatID string `json:"format_id"`
	AudioID  string `json:"audio_id"`
}

// decodeDownloadRequest reads the shared request body shape and resolves the
// effective site profile, writing the error response itself on failure.
func (s *Server) decodeDownloadRequest(w http.ResponseWriter, r *http.Request) (*downloadRequest, bool) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "field 'url' is required")
		return nil, false
	}

	req.Model = profile.Detect(req.URL, strings.ToLower(req.Model))
	if err := profile.Validate(req.URL, req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// GetFormats handles POST /get-formats.
func (s *Server) GetFormats(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDownloadRequest(w, r)
	if !ok {
		return
	}
	telemetry.APIFormatProbes.WithLabelValues(req.Model).Inc()

	if req.Model == profile.Spotify {
		s.spotifyFormats(w, r, req.URL)
		return
	}

	opts := profile.Options(req.Model, s.cookiesDir)
	meta, err := s.gateway.Probe(r.Context(), req.URL, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"title":     meta.Title,
		"thumbnail": meta.Thumbnail,
		"duration":  meta.Duration,
		"formats":   formats.ClassifyVideo(meta.Formats),
		"audio":     formats.ClassifyAudio(meta.Formats),
	})
}

// spotifyFormats resolves the track up front so the title and cover can be
// shown; the single offered format is the lookup service's fixed MP3. Lookup
// failures still return a usable default entry.
func (s *Server) spotifyFormats(w http.ResponseWriter, r *http.Request, trackURL string) {
	resolved, err := s.lookup.Resolve(r.Context(), trackURL)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"title":  fmt.Sprintf("Spotify Error: %s", err),
			"formats": []map[string]any{
				{"id": "default", "resolution": "Standard Audio", "ext": "mp3", "tbr": 128},
			},
			"audio": []any{},
		})
		return
	}

	title := resolved.Title
	if resolved.Artist != "" {
		title = resolved.Artist + " - " + resolved.Title
	}
	description := ""
	if resolved.Album != "" {
		description = "Album: " + resolved.Album
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"title":       title,
		"thumbnail":   resolved.Cover,
		"description": description,
		"formats": []map[string]any{
			{"id": "best", "resolution": "Best Quality (MP3)", "ext": "mp3", "tbr": 320, "note": "Spotify High Quality"},
		},
		"audio": []any{},
	})
}

// StartDownload handles POST /start-download.
func (s *Server) StartDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDownloadRequest(w, r)
	if !ok {
		return
	}

	h := s.registry.Create(req.Model)
	s.pool.Submit(worker.Job{
		Handle:  h,
		URL:     req.URL,
		Profile: req.Model,
		VideoID: req.FormatID,
		AudioID: req.AudioID,
	})

	telemetry.APITasksSubmitted.WithLabelValues(req.Model).Inc()
	s.logger.Info("download submitted",
		slog.String("task_id", h.ID),
		slog.String("model", req.Model),
	)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "ok",
		"task_id": h.ID,
	})
}

// CancelTask handles POST /cancel/{id}.
func (s *Server) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Cancel(id); err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "cancelled",
		"task_id": id,
	})
}

// GenerateKey handles POST /admin/generate-key.
func (s *Server) GenerateKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.auth.CreateKey(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"new_api_key": key,
	})
}

// ListTables handles GET /admin/db/tables.
func (s *Server) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.auth.ListTables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// QueryTable handles GET /admin/db/query/{table}.
func (s *Server) QueryTable(w http.ResponseWriter, r *http.Request) {
	dump, err := s.auth.QueryTable(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		code := http.StatusInternalServerError
		if err == auth.ErrBadTableName {
			code = http.StatusBadRequest
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dump)
}

// DeleteRow handles DELETE /admin/db/delete/{table}/{id}.
func (s *Server) DeleteRow(w http.ResponseWriter, r *http.Request) {
	var id int64
	if _, err := fmt.Sscanf(chi.URLParam(r, "id"), "%d", &id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid row id")
		return
	}
	if err := s.auth.DeleteRow(r.Context(), chi.URLParam(r, "table"), id); err != nil {
		code := http.StatusInternalServerError
		if err == auth.ErrBadTableName {
			code = http.StatusBadRequest
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
