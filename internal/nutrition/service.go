package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/fdg312/meal-engine/internal/userctx"
	"github.com/google/uuid"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrBiometricsNotFound = errors.New("biometrics not found")
	ErrInvalidRequest     = errors.New("invalid request")
)

// ProfileStorage is the subset of storage.Storage the service needs.
type ProfileStorage interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error)
}

// Service handles biometrics and nutrition targets.
type Service struct {
	profiles       ProfileStorage
	biometrics     storage.BiometricsStorage
	targetsStorage storage.NutritionTargetsStorage
}

// NewService creates a new nutrition service.
func NewService(profiles ProfileStorage, biometrics storage.BiometricsStorage, targetsStorage storage.NutritionTargetsStorage) *Service {
	return &Service{
		profiles:       profiles,
		biometrics:     biometrics,
		targetsStorage: targetsStorage,
	}
}

// ensureProfileAccess возвращает профиль, если он принадлежит текущему пользователю
func (s *Service) ensureProfileAccess(ctx context.Context, profileID uuid.UUID) (*storage.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil || profile == nil {
		return nil, ErrProfileNotFound
	}

	if userID, ok := userctx.GetUserID(ctx); ok && strings.TrimSpace(userID) != "" && profile.OwnerUserID != userID {
		return nil, ErrProfileNotFound
	}

	return profile, nil
}

// GetBiometrics returns stored biometrics of a profile.
func (s *Service) GetBiometrics(ctx context.Context, profileID uuid.UUID) (BiometricsDTO, error) {
	profile, err := s.ensureProfileAccess(ctx, profileID)
	if err != nil {
		return BiometricsDTO{}, err
	}

	b, err := s.biometrics.Get(ctx, profile.OwnerUserID, profileID)
	if err != nil {
		return BiometricsDTO{}, fmt.Errorf("failed to get biometrics: %w", err)
	}
	if b == nil {
		return BiometricsDTO{}, ErrBiometricsNotFound
	}

	return toBiometricsDTO(*b), nil
}

// UpsertBiometrics validates and stores biometrics. Targets are not recomputed here.
func (s *Service) UpsertBiometrics(ctx context.Context, req UpsertBiometricsRequest) (BiometricsDTO, error) {
	if req.ProfileID == uuid.Nil {
		return BiometricsDTO{}, fmt.Errorf("%w: profile_id is required", ErrInvalidRequest)
	}
	if err := req.BiometricProfile.Validate(); err != nil {
		return BiometricsDTO{}, err
	}

	profile, err := s.ensureProfileAccess(ctx, req.ProfileID)
	if err != nil {
		return BiometricsDTO{}, err
	}

	saved, err := s.saveBiometrics(ctx, profile, req.BiometricProfile)
	if err != nil {
		return BiometricsDTO{}, err
	}
	return toBiometricsDTO(*saved), nil
}

func (s *Service) saveBiometrics(ctx context.Context, profile *storage.Profile, p BiometricProfile) (*storage.Biometrics, error) {
	rate := p.WeightLossRateKgWeek
	if p.Goal != GoalWeightLoss {
		rate = 0
	}
	ratio := p.MacroRatio
	if ratio == "" {
		ratio = RatioHighFat
	}

	saved, err := s.biometrics.Upsert(ctx, storage.Biometrics{
		ProfileID:            profile.ID,
		OwnerUserID:          profile.OwnerUserID,
		Gender:               p.Gender,
		Age:                  p.Age,
		WeightKg:             p.WeightKg,
		HeightCm:             p.HeightCm,
		ActivityLevel:        p.ActivityLevel,
		Goal:                 p.Goal,
		WeightLossRateKgWeek: rate,
		MacroRatio:           ratio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert biometrics: %w", err)
	}
	return saved, nil
}

// GetOrDefault returns nutrition targets for a profile or defaults if not set.
func (s *Service) GetOrDefault(ctx context.Context, profileID uuid.UUID) (TargetsDTO, bool, error) {
	profile, err := s.ensureProfileAccess(ctx, profileID)
	if err != nil {
		return TargetsDTO{}, false, err
	}

	target, err := s.targetsStorage.Get(ctx, profile.OwnerUserID, profileID)
	if err != nil {
		return TargetsDTO{}, false, fmt.Errorf("failed to get nutrition targets: %w", err)
	}

	if target == nil {
		return GetDefaultTargets(profileID), true, nil
	}

	return toTargetsDTO(*target), false, nil
}

// GetTargets returns stored targets; ok is false when none were saved yet.
func (s *Service) GetTargets(ctx context.Context, profileID uuid.UUID) (TargetsDTO, bool, error) {
	targets, isDefault, err := s.GetOrDefault(ctx, profileID)
	if err != nil {
		return TargetsDTO{}, false, err
	}
	return targets, !isDefault, nil
}

// Upsert stores manually entered targets.
func (s *Service) Upsert(ctx context.Context, req UpsertTargetsRequest) (TargetsDTO, error) {
	if err := req.Validate(); err != nil {
		return TargetsDTO{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	profile, err := s.ensureProfileAccess(ctx, req.ProfileID)
	if err != nil {
		return TargetsDTO{}, err
	}

	target, err := s.targetsStorage.Upsert(ctx, profile.OwnerUserID, req.ProfileID, storage.NutritionTargetUpsert{
		CaloriesKcal: req.CaloriesKcal,
		ProteinG:     req.ProteinG,
		FatG:         req.FatG,
		CarbsG:       req.CarbsG,
		Source:       SourceManual,
	})
	if err != nil {
		return TargetsDTO{}, fmt.Errorf("failed to upsert nutrition targets: %w", err)
	}

	return toTargetsDTO(*target), nil
}

// ComputeTargets derives targets from biometrics and saves both unless DryRun is set.
// A below-minimum result is returned as *BelowMinimumCaloriesError and nothing is saved.
func (s *Service) ComputeTargets(ctx context.Context, req ComputeTargetsRequest) (ComputeTargetsResponse, error) {
	if req.ProfileID == uuid.Nil {
		return ComputeTargetsResponse{}, fmt.Errorf("%w: profile_id is required", ErrInvalidRequest)
	}

	profile, err := s.ensureProfileAccess(ctx, req.ProfileID)
	if err != nil {
		return ComputeTargetsResponse{}, err
	}

	var input BiometricProfile
	if req.Biometrics != nil {
		input = *req.Biometrics
	} else {
		stored, err := s.biometrics.Get(ctx, profile.OwnerUserID, profile.ID)
		if err != nil {
			return ComputeTargetsResponse{}, fmt.Errorf("failed to get biometrics: %w", err)
		}
		if stored == nil {
			return ComputeTargetsResponse{}, ErrBiometricsNotFound
		}
		input = fromStorage(*stored)
	}

	computed, err := Compute(input)
	if err != nil {
		var below *BelowMinimumCaloriesError
		if errors.As(err, &below) {
			log.Printf("INFO nutrition: profile=%s target %d kcal below minimum %d", profile.ID, below.Computed, below.Minimum)
		}
		return ComputeTargetsResponse{}, err
	}

	bmr := BMR(input.Gender, input.WeightKg, input.HeightCm, input.Age)
	resp := ComputeTargetsResponse{
		BMR:  round2(bmr),
		TDEE: round2(TDEE(bmr, input.ActivityLevel)),
		Targets: TargetsDTO{
			ProfileID:    profile.ID,
			CaloriesKcal: computed.Calories,
			ProteinG:     computed.ProteinG,
			FatG:         computed.FatsG,
			CarbsG:       computed.CarbsG,
			Source:       SourceComputed,
		},
	}
	if req.DryRun {
		return resp, nil
	}

	if req.Biometrics != nil {
		if _, err := s.saveBiometrics(ctx, profile, input); err != nil {
			return ComputeTargetsResponse{}, err
		}
	}

	target, err := s.targetsStorage.Upsert(ctx, profile.OwnerUserID, profile.ID, storage.NutritionTargetUpsert{
		CaloriesKcal: computed.Calories,
		ProteinG:     computed.ProteinG,
		FatG:         computed.FatsG,
		CarbsG:       computed.CarbsG,
		Source:       SourceComputed,
	})
	if err != nil {
		return ComputeTargetsResponse{}, fmt.Errorf("failed to upsert nutrition targets: %w", err)
	}

	resp.Targets = toTargetsDTO(*target)
	resp.Saved = true
	return resp, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func fromStorage(b storage.Biometrics) BiometricProfile {
	return BiometricProfile{
		Gender:               b.Gender,
		Age:                  b.Age,
		WeightKg:             b.WeightKg,
		HeightCm:             b.HeightCm,
		ActivityLevel:        b.ActivityLevel,
		Goal:                 b.Goal,
		WeightLossRateKgWeek: b.WeightLossRateKgWeek,
		MacroRatio:           b.MacroRatio,
	}
}

func toBiometricsDTO(b storage.Biometrics) BiometricsDTO {
	return BiometricsDTO{
		ProfileID:        b.ProfileID,
		BiometricProfile: fromStorage(b),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func toTargetsDTO(t storage.NutritionTarget) TargetsDTO {
	return TargetsDTO{
		ProfileID:    t.ProfileID,
		CaloriesKcal: t.CaloriesKcal,
		ProteinG:     t.ProteinG,
		FatG:         t.FatG,
		CarbsG:       t.CarbsG,
		Source:       t.Source,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
