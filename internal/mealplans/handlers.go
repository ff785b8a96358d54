package mealplans

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Handler handles HTTP requests for meal plans.
type Handler struct {
	service *Service
}

// NewHandler creates a new meal plans handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func parseProfileID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("profile_id")))
	return id, err == nil
}

// HandleGenerate handles POST /v1/meal/plan/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	plan, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to generate meal plan")
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

// HandleGetPlan handles GET /v1/meal/plan?profile_id=&from=&to=
func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	profileID, ok := parseProfileID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "valid profile_id is required")
		return
	}

	q := r.URL.Query()
	plan, err := h.service.GetPlan(r.Context(), profileID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to get meal plan")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// HandleDeletePlan handles DELETE /v1/meal/plan?profile_id=&from=&to=
func (h *Handler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	profileID, ok := parseProfileID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "valid profile_id is required")
		return
	}

	q := r.URL.Query()
	deleted, err := h.service.Delete(r.Context(), profileID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to delete meal plan")
		return
	}

	writeJSON(w, http.StatusOK, DeletePlanResponse{Deleted: deleted})
}

// HandleStatus handles GET /v1/meal/plan/status?profile_id=&from=&to=
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	profileID, ok := parseProfileID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "valid profile_id is required")
		return
	}

	q := r.URL.Query()
	status, err := h.service.Status(r.Context(), profileID, q.Get("from"), q.Get("to"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to get plan status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleToday handles GET /v1/meal/today?profile_id=&date=YYYY-MM-DD
func (h *Handler) HandleToday(w http.ResponseWriter, r *http.Request) {
	profileID, ok := parseProfileID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "valid profile_id is required")
		return
	}

	today, err := h.service.Today(r.Context(), profileID, r.URL.Query().Get("date"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to get today's meals")
		return
	}

	writeJSON(w, http.StatusOK, today)
}

// HandleUpdateOverrides handles PATCH /v1/meal/plan/{id}/overrides
func (h *Handler) HandleUpdateOverrides(w http.ResponseWriter, r *http.Request) {
	mealID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid meal id")
		return
	}

	var req UpdateOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	meal, err := h.service.UpdateOverrides(r.Context(), mealID, req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update overrides")
		return
	}

	writeJSON(w, http.StatusOK, meal)
}

// HandleConfigs handles GET /v1/meal/configs
func (h *Handler) HandleConfigs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Configs())
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, fallback string) {
	var (
		invalidCfg *InvalidPlanConfigurationError
		noCand     *NoCandidateRecipeError
		exists     *PlanExistsError
		incomplete *IncompletePlanError
	)

	switch {
	case errors.Is(err, ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
	case errors.Is(err, ErrMealNotFound):
		writeError(w, http.StatusNotFound, "meal_not_found", "Planned meal not found")
	case errors.As(err, &invalidCfg):
		writeError(w, http.StatusBadRequest, "invalid_plan_configuration", invalidCfg.Error())
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidOverride):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrTargetsNotSet):
		writeError(w, http.StatusUnprocessableEntity, "targets_not_set", "Nutrition targets are not set for this profile")
	case errors.As(err, &noCand):
		writeError(w, http.StatusUnprocessableEntity, "no_candidate_recipe", noCand.Error())
	case errors.As(err, &exists):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": map[string]interface{}{
				"code":           "plan_exists",
				"message":        "Plan already exists for this week, pass replace=true to overwrite",
				"existing_meals": exists.Existing,
				"missing_days":   formatDates(exists.MissingDays),
			},
		})
	case errors.As(err, &incomplete):
		log.Printf("ERROR mealplans: %v", err)
		writeError(w, http.StatusInternalServerError, "incomplete_plan", incomplete.Error())
	default:
		log.Printf("ERROR mealplans: %s: %v", fallback, err)
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
