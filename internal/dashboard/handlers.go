package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"csvcatalog/internal/common/models"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) HandleGetCatalogStats(w http.ResponseWriter, r *http.Request) {
	resp := models.APIResponse{Success: true, Message: "Catalog statistics"}
	status := http.StatusOK

	stats, err := h.service.GetCatalogStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("fetching catalog statistics")
		resp = models.APIResponse{Message: "Error fetching catalog statistics"}
		status = http.StatusInternalServerError
	} else {
		resp.Data = stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("encoding catalog statistics")
	}
}
