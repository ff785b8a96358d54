package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// Handlers handles HTTP requests for reports
type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

func (h *Handlers) toDTO(r *http.Request, report *Report) ReportDTO {
	downloadURL, err := h.service.GetReportDownloadURL(r.Context(), report.ID, getBaseURL(r))
	if err != nil {
		log.Printf("WARN reports: download url for %s: %v", report.ID, err)
	}
	return ReportDTO{
		ID:          report.ID,
		ProfileID:   report.ProfileID,
		Format:      report.Format,
		From:        report.FromDate,
		To:          report.ToDate,
		DownloadURL: downloadURL,
		SizeBytes:   report.SizeBytes,
		Status:      report.Status,
		CreatedAt:   report.CreatedAt,
	}
}

// HandleCreate handles POST /v1/reports
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	report, err := h.service.CreateReport(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, "invalid_format", "Format must be 'pdf' or 'csv'")
		case errors.Is(err, ErrInvalidDate):
			writeError(w, http.StatusBadRequest, "invalid_date", "Invalid date format, use YYYY-MM-DD")
		case errors.Is(err, ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, "invalid_range", "From date must be before to date")
		case errors.Is(err, ErrRangeTooLarge):
			writeError(w, http.StatusBadRequest, "range_too_large", fmt.Sprintf("Date range exceeds maximum of %d days", h.service.opts.MaxRangeDays))
		case errors.Is(err, ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
		case errors.Is(err, ErrEmptyPlan):
			writeError(w, http.StatusUnprocessableEntity, "plan_empty", "No planned meals in the requested range")
		default:
			log.Printf("ERROR reports: create failed: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create report")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.toDTO(r, report))
}

// HandleList handles GET /v1/reports?profile_id=&limit=&offset=
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(r.URL.Query().Get("profile_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_profile_id", "valid profile_id is required")
		return
	}

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	reports, err := h.service.ListReports(r.Context(), profileID, limit, offset)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
		} else {
			log.Printf("ERROR reports: list failed: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list reports")
		}
		return
	}

	dtos := make([]ReportDTO, len(reports))
	for i := range reports {
		dtos[i] = h.toDTO(r, &reports[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReportsResponse{Reports: dtos})
}

// HandleDownload handles GET /v1/reports/{id}/download
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return
	}

	report, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		writeError(w, http.StatusNotFound, "report_not_found", "Report not found")
		return
	}

	if !h.service.localMode {
		url, err := h.service.GetReportDownloadURL(r.Context(), reportID, getBaseURL(r))
		if err != nil {
			log.Printf("ERROR reports: download url for %s: %v", reportID, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	data, contentType, err := h.service.GetReportData(r.Context(), reportID)
	if err != nil {
		log.Printf("ERROR reports: download %s: %v", reportID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load report")
		return
	}

	filename := fmt.Sprintf("meal_plan_%s_%s.%s", report.FromDate, report.ToDate, report.Format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleDelete handles DELETE /v1/reports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reportID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return
	}

	if err := h.service.DeleteReport(r.Context(), reportID); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report_not_found", "Report not found")
		} else {
			log.Printf("ERROR reports: delete %s: %v", reportID, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete report")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

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

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
