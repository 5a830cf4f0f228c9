// Package server exposes the HTTP surface: format probing, download
// submission, the SSE progress stream, artifact serving, and the admin API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arjunmehra/streamfetch/internal/auth"
	"github.com/arjunmehra/streamfetch/internal/extract"
	"github.com/arjunmehra/streamfetch/internal/musiclookup"
	"github.com/arjunmehra/streamfetch/internal/registry"
	"github.com/arjunmehra/streamfetch/internal/storage"
	"github.com/arjunmehra/streamfetch/internal/worker"
)

// Server holds the collaborators the handlers dispatch to.
type Server struct {
	registry   *registry.Registry
	pool       *worker.Pool
	gateway    extract.Gateway
	lookup     *musiclookup.Client
	store      *storage.Store
	auth       *auth.Store
	cookiesDir string
	masterKey  string
	logger     *slog.Logger
}

// New creates a Server.
func New(reg *registry.Registry, pool *worker.Pool, gw extract.Gateway,
	lookup *musiclookup.Client, store *storage.Store, authStore *auth.Store,
	cookiesDir, masterKey string, logger *slog.Logger) *Server {
	return &Server{
		registry:   reg,
		pool:       pool,
		gateway:    gw,
		lookup:     lookup,
		store:      store,
		auth:       authStore,
		cookiesDir: cookiesDir,
		masterKey:  masterKey,
		logger:     logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(MaxBodySize(1 << 20)) // 1MB limit

	r.Get("/", s.Index)
	r.Get("/models", s.Models)
	r.Get("/sw.js", s.ServiceWorker)
	r.Get("/file/{name}", s.ServeFile)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAPIKey(s.auth))
		r.Post("/get-formats", s.GetFormats)
		r.Post("/start-download", s.StartDownload)
		r.Get("/stream-progress/{id}", s.StreamProgress)
		r.Post("/cancel/{id}", s.CancelTask)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireMasterKey(s.masterKey))
		r.Post("/generate-key", s.GenerateKey)
		r.Get("/db/tables", s.ListTables)
		r.Get("/db/query/{table}", s.QueryTable)
		r.Delete("/db/delete/{table}/{id}", s.DeleteRow)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
