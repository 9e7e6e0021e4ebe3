package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyvern-ops/sora-engine/internal/assessment"
	"github.com/skyvern-ops/sora-engine/internal/storage/sqlite"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Error codes returned to callers. The AI-delegate codes are deliberately
// distinct so clients can tell "retry later" from "fix capacity" from
// "system defect".
const (
	codeInvalidRequest      = "invalid_request"
	codeNotFound            = "not_found"
	codeRateLimited         = "rate_limited"
	codeQuotaExhausted      = "quota_exhausted"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeInvalidResponse     = "invalid_response"
	codeInternal            = "internal_error"
)

// Handler handles API requests
type Handler struct {
	service *assessment.Service
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *assessment.Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("api-handler"),
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeServiceError maps engine errors onto the typed error taxonomy.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		h.writeError(w, http.StatusNotFound, codeNotFound, "mission not found")
	case errors.Is(err, assessment.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, codeRateLimited, "scoring delegate is rate limited, retry later")
	case errors.Is(err, assessment.ErrQuotaExhausted):
		h.writeError(w, http.StatusPaymentRequired, codeQuotaExhausted, "scoring delegate quota exhausted")
	case errors.Is(err, assessment.ErrInvalidResponse):
		h.writeError(w, http.StatusBadGateway, codeInvalidResponse, "scoring delegate returned an unusable response")
	case errors.Is(err, assessment.ErrUpstreamUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, codeUpstreamUnavailable, "scoring delegate unavailable")
	default:
		h.logger.Error("Unhandled service error", logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// actingUser returns the already-authenticated caller identity. The
// identity check itself happens upstream of this engine.
func actingUser(r *http.Request) string {
	return r.Header.Get("X-Acting-User")
}

func missionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// CreateAssessment handles the phase-1 assessment request.
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := missionID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid mission id")
		return
	}

	pilot := actingUser(r)
	if pilot == "" {
		h.writeError(w, http.StatusUnauthorized, codeInvalidRequest, "missing acting user")
		return
	}

	var body struct {
		DroneID     int64                 `json:"drone_id"`
		PilotInputs assessment.PilotInput `json:"pilot_inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	result, err := h.service.Assess(r.Context(), assessment.AssessRequest{
		MissionID: id,
		DroneID:   body.DroneID,
		Pilot:     pilot,
		Input:     body.PilotInputs,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CreateSoraReassessment handles the phase-2 SORA request.
func (h *Handler) CreateSoraReassessment(w http.ResponseWriter, r *http.Request) {
	id, err := missionID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid mission id")
		return
	}

	pilot := actingUser(r)
	if pilot == "" {
		h.writeError(w, http.StatusUnauthorized, codeInvalidRequest, "missing acting user")
		return
	}

	var body struct {
		PreviousAnalysis assessment.Result `json:"previous_analysis"`
		PilotComments    map[string]string `json:"pilot_comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if len(body.PilotComments) == 0 {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "pilot_comments is required")
		return
	}

	outcome, err := h.service.Reassess(r.Context(), assessment.ReassessRequest{
		MissionID:        id,
		Pilot:            pilot,
		PreviousAnalysis: body.PreviousAnalysis,
		PilotComments:    body.PilotComments,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// GetAssessmentHistory returns the persisted assessments for a mission.
func (h *Handler) GetAssessmentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := missionID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid mission id")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.service.History(id, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*sqlite.AssessmentRecord{}
	}

	h.writeJSON(w, http.StatusOK, records)
}

// GetCurrentSora returns the mission's current SORA classification.
func (h *Handler) GetCurrentSora(w http.ResponseWriter, r *http.Request) {
	id, err := missionID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid mission id")
		return
	}

	record, err := h.service.CurrentSora(id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, codeNotFound, "no sora record for mission")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// GetHealth returns a liveness response.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
