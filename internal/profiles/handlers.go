package profiles

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// Handler содержит HTTP обработчики для профилей
type Handler struct {
	service *Service
}

// NewHandler создаёт новый handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleList обрабатывает GET /v1/profiles
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		log.Printf("ERROR profiles: list failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to list profiles")
		return
	}

	h.sendJSON(w, http.StatusOK, ProfilesResponse{Profiles: profiles})
}

// HandleGet обрабатывает GET /v1/profiles/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_id", "Invalid profile ID")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, "get", err)
		return
	}

	h.sendJSON(w, http.StatusOK, profile)
}

// HandleCreate обрабатывает POST /v1/profiles
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	profile, err := h.service.CreateProfile(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, "create", err)
		return
	}

	h.sendJSON(w, http.StatusCreated, profile)
}

// HandleUpdate обрабатывает PATCH /v1/profiles/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_id", "Invalid profile ID")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), id, req)
	if err != nil {
		h.sendServiceError(w, "update", err)
		return
	}

	h.sendJSON(w, http.StatusOK, profile)
}

// HandleDelete обрабатывает DELETE /v1/profiles/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_id", "Invalid profile ID")
		return
	}

	if err := h.service.DeleteProfile(r.Context(), id); err != nil {
		h.sendServiceError(w, "delete", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sendServiceError переводит ошибки сервиса в HTTP ответ
func (h *Handler) sendServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.sendError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
	case errors.Is(err, ErrEmptyName):
		h.sendError(w, http.StatusBadRequest, "empty_name", "Name cannot be empty")
	case errors.Is(err, ErrNameTooLong):
		h.sendError(w, http.StatusBadRequest, "name_too_long", "Name must be at most 100 characters")
	case errors.Is(err, ErrInvalidType):
		h.sendError(w, http.StatusBadRequest, "invalid_type", "Only 'guest' type is allowed")
	case errors.Is(err, ErrCannotDeleteOwner):
		h.sendError(w, http.StatusConflict, "cannot_delete_owner", "Cannot delete owner profile")
	default:
		log.Printf("ERROR profiles: %s failed: %v", op, err)
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to "+op+" profile")
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
