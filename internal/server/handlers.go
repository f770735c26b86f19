package server

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"csvcatalog/cmd/web/pages"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Catalog map[string]string `json:"catalog"`
	Backup  bool              `json:"backup_enabled"`
	Storage string            `json:"storage_dir"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	catalog := s.db.Health(r.Context())

	resp := healthResponse{
		Status:  "ok",
		Catalog: catalog,
		Backup:  s.backupEnabled,
		Storage: s.config.StorageDir,
	}
	status := http.StatusOK
	if catalog["status"] != "up" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
		log.Warn().Str("error", catalog["error"]).Msg("health check failed")
	}

	sendJSON(w, status, resp)
}

func (s *Server) handleError404(w http.ResponseWriter, r *http.Request) {
	templ.Handler(pages.Error404(), templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
}
