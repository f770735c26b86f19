package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"csvcatalog/internal/config"
	"csvcatalog/internal/dashboard"
	"csvcatalog/internal/database"
	"csvcatalog/internal/uploader"
)

// Server represents the HTTP server and its dependencies
type Server struct {
	config           *config.Config
	db               *database.DB
	fileHandler      *uploader.Handler
	dashboardHandler *dashboard.Handler
	backupEnabled    bool
}

// NewServer creates a new server instance around an already wired ingest service
func NewServer(cfg *config.Config, db *database.DB, svc uploader.Service, backupEnabled bool) *Server {
	return &Server{
		config:           cfg,
		db:               db,
		fileHandler:      uploader.NewHandler(svc, cfg.UploadMaxSize),
		dashboardHandler: dashboard.NewHandler(dashboard.NewService(dashboard.NewRepository(db))),
		backupEnabled:    backupEnabled,
	}
}

// Start builds the HTTP server; the caller runs ListenAndServe
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	log.Info().
		Int("port", s.config.Port).
		Str("env", s.config.Env).
		Msg("starting server")

	return srv
}

// sendJSON sends a JSON response with consistent formatting
func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encoding JSON response")
	}
}
