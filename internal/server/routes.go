package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"csvcatalog/cmd/web"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)

	if s.config.Env == "development" {
		r.Use(middleware.NoCache)
	}

	// CORS configuration for the JSON API; no cookies are involved
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Serve static files embedded in the binary
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Assets()))))

	r.NotFound(s.handleError404)

	// Operational endpoints
	r.Get("/healthz", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	// HTML pages
	r.Get("/", s.fileHandler.HandleIndex)
	r.Post("/upload", s.fileHandler.HandleUpload)
	r.Get("/file/{fileID}", s.fileHandler.HandleViewFile)
	r.Get("/download/{fileID}", s.fileHandler.HandleDownload)

	// JSON API
	r.Get("/files", s.fileHandler.HandleListFiles)
	r.Route("/api", func(r chi.Router) {
		r.Get("/files/{fileID}", s.fileHandler.HandleGetFile)
		r.Post("/upload", s.fileHandler.HandleAPIUpload)
		r.Get("/stats", s.dashboardHandler.HandleGetCatalogStats)
	})

	return r
}
