package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/common/models"
	"github.com/glucomind-ai/assistant/pkg/patient"
	"github.com/glucomind-ai/assistant/pkg/reasoning"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/api/health", h.Health).Methods("GET")
	router.HandleFunc("/api/chat", h.Chat).Methods("POST")
	router.HandleFunc("/api/safety/medication", h.MedicationSafety).Methods("POST")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "assistant",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	response, err := h.service.Chat(r.Context(), req)
	if err != nil {
		h.writeReasoningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

type medicationRequest struct {
	PatientID  string `json:"patient_id"`
	Medication string `json:"medication"`
}

func (h *Handler) MedicationSafety(w http.ResponseWriter, r *http.Request) {
	var req medicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == "" || strings.TrimSpace(req.Medication) == "" {
		writeError(w, http.StatusBadRequest, "patient_id and medication are required")
		return
	}

	findings, err := h.service.CheckMedication(r.Context(), req.PatientID, req.Medication)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		logger.WithComponent("assistant").WithError(err).Error("medication check failed")
		writeError(w, http.StatusInternalServerError, "medication check failed")
		return
	}

	safe := true
	for _, finding := range findings {
		if finding.Severity == models.SeverityBlock || finding.Severity == models.SeverityWarning {
			safe = false
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patient_id": req.PatientID,
		"medication": req.Medication,
		"safe":       safe,
		"findings":   findings,
	})
}

func (h *Handler) writeReasoningError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var rerr *reasoning.Error
	if errors.As(err, &rerr) && rerr.Kind == reasoning.FailureTimeout {
		status = http.StatusGatewayTimeout
	}
	logger.WithComponent("assistant").WithError(err).Error("reasoning failed")
	writeJSON(w, status, map[string]interface{}{
		"error":     "reasoning service unavailable",
		"retryable": reasoning.Retryable(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithComponent("assistant").WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
