package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/deepfake-detection/internal/api"
	"github.com/kartoza/deepfake-detection/internal/config"
	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/history"
	"github.com/kartoza/deepfake-detection/internal/httputil"
	"github.com/kartoza/deepfake-detection/internal/janitor"
	"github.com/kartoza/deepfake-detection/internal/jobs"
	"github.com/kartoza/deepfake-detection/internal/shares"
	"github.com/kartoza/deepfake-detection/internal/stats"
	"github.com/kartoza/deepfake-detection/internal/uploads"
)

//go:embed static/*
var staticFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler

	detector    detector.Detector
	stats       *stats.Statistics
	history     history.Store
	jobStore    *jobs.Store
	uploadStore *uploads.Store
	shareStore  *shares.Store
	janitor     *janitor.Janitor
}

// New creates a new Server with all components initialized
func New(cfg config.Config) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		stats:    stats.New(),
		jobStore: jobs.NewStore(),
	}

	// Prediction history: SQLite when configured, memory otherwise
	s.history = history.NewMemoryStore()
	if cfg.HistoryDB != "" {
		store, err := history.NewSQLiteStore(cfg.HistoryDB)
		if err != nil {
			log.Printf("Warning: SQLite history not available, keeping history in memory: %v", err)
		} else {
			s.history = store
			log.Printf("Prediction history: %s", cfg.HistoryDB)
		}
	}

	recorders := []detector.Observer{s.stats, history.Observer(s.history)}
	s.detector = detector.Observed(detector.New(cfg.Detector), recorders...)

	uploadStore, err := uploads.NewStore(filepath.Join(cfg.DataDir, "uploads"), cfg.MaxUploadBytes())
	if err != nil {
		return nil, err
	}
	s.uploadStore = uploadStore

	shareStore, err := shares.NewStore(cfg.DataDir, cfg.ShareTTLDuration())
	if err != nil {
		return nil, err
	}
	s.shareStore = shareStore

	s.janitor, err = janitor.New(cfg.CleanupSchedule, cfg.UploadRetentionDuration(), s.uploadStore, s.shareStore)
	if err != nil {
		log.Printf("Warning: %v, cleanup disabled", err)
		s.janitor, _ = janitor.New("", 0, nil, nil)
	}

	// Demo predictions never see file content, so they always come from
	// the generator even when uploads go to a learned model
	demo := s.detector
	if s.detector.Name() != "synthetic" {
		gen := detector.NewSyntheticDetector(cfg.Detector.Seed, detector.NoiseModel(cfg.Detector.Noise))
		demo = detector.Observed(gen, recorders...)
	}

	s.setupRoutes(api.Deps{
		Detector: s.detector,
		Demo:     demo,
		Stats:    s.stats,
		History:  s.history,
		Jobs:     s.jobStore,
		Uploads:  s.uploadStore,
		Shares:   s.shareStore,
	})
	s.handler = requestLogger(s.router)

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(deps api.Deps) {
	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(deps, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	s.router.HandleFunc("/test", s.handleTest).Methods("GET")

	// Shared reports
	s.router.PathPrefix("/share/images/").Handler(
		http.StripPrefix("/share/images/", http.FileServer(http.Dir(s.shareStore.ImagesDir()))))
	s.router.HandleFunc("/share/{id}", s.handleSharePage).Methods("GET")

	// Stored uploads
	s.router.HandleFunc("/uploads/{filename}", s.handleUpload).Methods("GET")

	// Static frontend files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("Warning: Could not load embedded static files: %v", err)
		return
	}

	// SPA fallback: serve index.html for any other route
	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})
}

// Handler returns the router wrapped in request logging, which also
// covers 404 and 405 responses
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handleTest is a connectivity check listing the main endpoints
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Server is running correctly!",
		"endpoints": map[string]string{
			"home":         "/",
			"health":       "/api/health",
			"model_status": "/api/models/status",
			"statistics":   "/api/statistics",
			"demo_predict": "/api/demo/predict",
			"analyze":      "/api/analyze",
			"jobs":         "/api/jobs",
			"test":         "/test",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleUpload serves a stored upload by its generated name
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	path, err := s.uploadStore.Path(mux.Vars(r)["filename"])
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.janitor.Start()

	log.Printf("Server listening on http://localhost:%d", s.cfg.Port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	select {
	case <-s.janitor.Stop().Done():
	case <-ctx.Done():
		log.Printf("Warning: cleanup still running at shutdown")
	}

	if err := s.history.Close(); err != nil {
		log.Printf("Warning: failed to close history: %v", err)
	}
	return shutdownErr
}

// spaHandler serves the embedded page, falling back to index.html
type spaHandler struct {
	staticContent fs.FS
	fileServer    http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "index.html"
	}

	// fs.FS paths must not have a leading slash
	cleanPath := strings.TrimPrefix(path, "/")

	if _, err := fs.Stat(h.staticContent, cleanPath); err != nil {
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
