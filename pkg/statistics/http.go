package statistics

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/statistics/insulin", h.handleInsulinStats).Methods(http.MethodGet)
}

func (h *Handler) handleInsulinStats(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")

	stats, err := h.service.AggregateInsulin(dimension)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			logger.Log.WithError(err).Error("statistics source unavailable")
			http.Error(w, "statistics source unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
