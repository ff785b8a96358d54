package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fdg312/meal-engine/internal/blob"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/fdg312/meal-engine/internal/userctx"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidDate      = errors.New("invalid date format")
	ErrInvalidDateRange = errors.New("from date must be before to date")
	ErrRangeTooLarge    = errors.New("date range too large")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrEmptyPlan        = errors.New("no planned meals in range")
)

type ProfileStorageAdapter interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error)
}

// Options configure where exports are kept and how they are linked.
type Options struct {
	MaxRangeDays    int
	PresignTTL      time.Duration
	PublicBaseURL   string
	PreferPublicURL bool
}

// Service exports stored meal plans.
type Service struct {
	reportsStorage storage.ReportsStorage
	profileStorage ProfileStorageAdapter
	generator      *Generator
	blobStore      blob.Store
	opts           Options
	localMode      bool // true if no S3 configured
}

// NewService creates a reports service. A nil blobStore keeps exports in reportsStorage.
func NewService(reportsStorage storage.ReportsStorage, profileStorage ProfileStorageAdapter, generator *Generator, blobStore blob.Store, opts Options) *Service {
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = 31
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	return &Service{
		reportsStorage: reportsStorage,
		profileStorage: profileStorage,
		generator:      generator,
		blobStore:      blobStore,
		opts:           opts,
		localMode:      blobStore == nil,
	}
}

func (s *Service) validate(req *CreateReportRequest) error {
	if req.Format != FormatPDF && req.Format != FormatCSV {
		return ErrInvalidFormat
	}

	fromDate, err := time.Parse(dateLayout, req.From)
	if err != nil {
		return ErrInvalidDate
	}

	toDate := fromDate.AddDate(0, 0, 6)
	if req.To != "" {
		if toDate, err = time.Parse(dateLayout, req.To); err != nil {
			return ErrInvalidDate
		}
	}
	req.To = toDate.Format(dateLayout)

	if fromDate.After(toDate) {
		return ErrInvalidDateRange
	}
	if int(toDate.Sub(fromDate).Hours()/24) > s.opts.MaxRangeDays {
		return ErrRangeTooLarge
	}
	return nil
}

// CreateReport renders the plan in [From, To] and stores the export.
func (s *Service) CreateReport(ctx context.Context, req CreateReportRequest) (*Report, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	if err := s.ensureProfileAccess(ctx, req.ProfileID); err != nil {
		return nil, ErrProfileNotFound
	}

	data, err := s.generator.GenerateReport(ctx, req)
	if err != nil {
		if errors.Is(err, ErrEmptyPlan) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	report := &storage.ReportMeta{
		ID:        uuid.New(),
		ProfileID: req.ProfileID,
		Format:    req.Format,
		FromDate:  req.From,
		ToDate:    req.To,
		SizeBytes: int64(len(data)),
		Status:    StatusReady,
	}

	if s.localMode {
		report.Data = data
	} else {
		objectKey := fmt.Sprintf("meal-plans/%s/%s_%s_%s.%s",
			req.ProfileID.String(),
			req.From,
			req.To,
			report.ID.String(),
			req.Format,
		)

		if _, err := s.blobStore.PutObject(ctx, objectKey, data, contentTypeFor(req.Format)); err != nil {
			return nil, fmt.Errorf("failed to upload export: %w", err)
		}
		report.ObjectKey = &objectKey
	}

	if err := s.reportsStorage.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report metadata: %w", err)
	}

	log.Printf("INFO reports: created id=%s profile=%s format=%s range=%s..%s size=%d",
		report.ID, report.ProfileID, report.Format, report.FromDate, report.ToDate, report.SizeBytes)
	return toReport(report), nil
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	meta, err := s.accessibleReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReport(meta), nil
}

// ListReports lists reports for a profile
func (s *Service) ListReports(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]Report, error) {
	if err := s.ensureProfileAccess(ctx, profileID); err != nil {
		return nil, ErrProfileNotFound
	}

	metaList, err := s.reportsStorage.ListReports(ctx, profileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]Report, len(metaList))
	for i := range metaList {
		reports[i] = *toReport(&metaList[i])
	}

	return reports, nil
}

// DeleteReport deletes a report
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	meta, err := s.accessibleReport(ctx, id)
	if err != nil {
		return err
	}

	if !s.localMode && meta.ObjectKey != nil {
		if err := s.blobStore.DeleteObject(ctx, *meta.ObjectKey); err != nil {
			// metadata is removed anyway
			log.Printf("WARN reports: failed to delete object %s: %v", *meta.ObjectKey, err)
		}
	}

	if err := s.reportsStorage.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("failed to delete report metadata: %w", err)
	}

	return nil
}

// GetReportDownloadURL returns the local download endpoint, a public URL or a presigned URL.
func (s *Service) GetReportDownloadURL(ctx context.Context, id uuid.UUID, baseURL string) (string, error) {
	meta, err := s.accessibleReport(ctx, id)
	if err != nil {
		return "", err
	}
	return s.downloadURL(ctx, meta, baseURL)
}

func (s *Service) downloadURL(ctx context.Context, meta *storage.ReportMeta, baseURL string) (string, error) {
	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/%s/download", strings.TrimSuffix(baseURL, "/"), meta.ID.String()), nil
	}

	if meta.ObjectKey == nil {
		return "", fmt.Errorf("object key is missing")
	}

	if s.opts.PreferPublicURL && s.opts.PublicBaseURL != "" {
		return strings.TrimSuffix(s.opts.PublicBaseURL, "/") + "/" + *meta.ObjectKey, nil
	}

	presignedURL, err := s.blobStore.PresignGet(ctx, *meta.ObjectKey, s.opts.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedURL, nil
}

// GetReportData returns the raw export. Local exports whose bytes were not
// kept by the storage (postgres) are rendered again from the current plan.
func (s *Service) GetReportData(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	meta, err := s.accessibleReport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	contentType := contentTypeFor(meta.Format)

	if !s.localMode && meta.ObjectKey != nil {
		data, err := s.blobStore.GetObject(ctx, *meta.ObjectKey)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch export: %w", err)
		}
		return data, contentType, nil
	}

	if len(meta.Data) > 0 {
		return meta.Data, contentType, nil
	}

	data, err := s.generator.GenerateReport(ctx, CreateReportRequest{
		ProfileID: meta.ProfileID,
		From:      meta.FromDate,
		To:        meta.ToDate,
		Format:    meta.Format,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to render export: %w", err)
	}
	return data, contentType, nil
}

func (s *Service) accessibleReport(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	meta, err := s.reportsStorage.GetReport(ctx, id)
	if err != nil {
		return nil, ErrReportNotFound
	}
	if err := s.ensureProfileAccess(ctx, meta.ProfileID); err != nil {
		return nil, ErrReportNotFound
	}
	return meta, nil
}

func (s *Service) ensureProfileAccess(ctx context.Context, profileID uuid.UUID) error {
	profile, err := s.profileStorage.GetProfile(ctx, profileID)
	if err != nil || profile == nil {
		return ErrProfileNotFound
	}

	if userID, ok := userctx.GetUserID(ctx); ok && strings.TrimSpace(userID) != "" && profile.OwnerUserID != userID {
		return ErrProfileNotFound
	}

	return nil
}

func toReport(meta *storage.ReportMeta) *Report {
	return &Report{
		ID:        meta.ID,
		ProfileID: meta.ProfileID,
		Format:    meta.Format,
		FromDate:  meta.FromDate,
		ToDate:    meta.ToDate,
		ObjectKey: meta.ObjectKey,
		SizeBytes: meta.SizeBytes,
		Status:    meta.Status,
		Error:     meta.Error,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
		Data:      meta.Data,
	}
}
