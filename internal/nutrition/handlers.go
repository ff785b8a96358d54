package nutrition

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Handler handles HTTP requests for biometrics and nutrition targets.
type Handler struct {
	service *Service
}

// NewHandler creates a new nutrition handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func parseProfileID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("profile_id")))
	return id, err == nil
}

// HandleGetBiometrics handles GET /v1/nutrition/biometrics?profile_id=
func (h *Handler) HandleGetBiometrics(w http.ResponseWriter, r *http.Request) {
	profileID, ok := parseProfileID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "valid profile_id is required")
		return
	}

	b, err := h.service.GetBiometrics(r.Context(), profileID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to get biometrics")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// HandleUpsertBiometrics handles PUT /v1/nutrition/biometrics
func (h *Handler) HandleUpsertBiometrics(w http.ResponseWriter, r *http.Request) {
	var req UpsertBiometricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	b, err := h.service.UpsertBiometrics(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to save biometrics")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// HandleGetTargets handles GET /v1/nutrition/targets?profile_id=
func (h *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	profileID, ok := parseProfileID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "valid profile_id is required")
		return
	}

	targets, isDefault, err := h.service.GetOrDefault(r.Context(), profileID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to get nutrition targets")
		return
	}

	writeJSON(w, http.StatusOK, GetTargetsResponse{
		Targets:   targets,
		IsDefault: isDefault,
	})
}

// HandleUpsertTargets handles PUT /v1/nutrition/targets
func (h *Handler) HandleUpsertTargets(w http.ResponseWriter, r *http.Request) {
	var req UpsertTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	targets, err := h.service.Upsert(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to upsert nutrition targets")
		return
	}

	writeJSON(w, http.StatusOK, targets)
}

// HandleComputeTargets handles POST /v1/nutrition/targets/compute
func (h *Handler) HandleComputeTargets(w http.ResponseWriter, r *http.Request) {
	var req ComputeTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	resp, err := h.service.ComputeTargets(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to compute nutrition targets")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, fallback string) {
	var below *BelowMinimumCaloriesError
	switch {
	case errors.Is(err, ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
	case errors.Is(err, ErrBiometricsNotFound):
		writeError(w, http.StatusNotFound, "biometrics_not_found", "Biometrics are not set for this profile")
	case errors.As(err, &below):
		writeError(w, http.StatusUnprocessableEntity, "below_minimum_calories", below.Error())
	case errors.Is(err, ErrInvalidBiometrics), errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
