package patient

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/statistics"
	"github.com/gorilla/mux"
)

type Handler struct {
	aggregator *Aggregator
	stats      *statistics.Service
}

func NewHandler(aggregator *Aggregator, stats *statistics.Service) *Handler {
	return &Handler{aggregator: aggregator, stats: stats}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/patient/{patient_id}", h.handleGetPatient).Methods(http.MethodGet)
	r.HandleFunc("/api/patient/{patient_id}/comprehensive", h.handleGetComprehensive).Methods(http.MethodGet)
	r.HandleFunc("/api/assessment/diabetes/{patient_id}", h.handleAssessDiabetes).Methods(http.MethodGet)
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]

	info, err := h.aggregator.repo.GetInfo(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch patient")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleGetComprehensive(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]

	profile, err := h.aggregator.FetchProfile(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to aggregate profile")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"profile": profile,
	}

	// The statistics row is optional enrichment; its absence or an unreadable
	// source never fails the profile response.
	if row, err := h.stats.Lookup(patientID); err == nil {
		response["statistics"] = row
	} else if !errors.Is(err, statistics.ErrNotFound) {
		logger.Log.WithError(err).Warn("statistics lookup degraded")
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleAssessDiabetes(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]

	report, err := h.aggregator.AssessDiabetes(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to assess diabetes risk")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patient_id": patientID,
		"assessment": report,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
