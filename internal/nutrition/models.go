package nutrition

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TargetsDTO represents nutrition targets/goals for a profile.
type TargetsDTO struct {
	ProfileID    uuid.UUID `json:"profile_id"`
	CaloriesKcal int       `json:"calories_kcal"`
	ProteinG     int       `json:"protein_g"`
	FatG         int       `json:"fat_g"`
	CarbsG       int       `json:"carbs_g"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Targets converts the stored goals into planner input.
func (t TargetsDTO) Targets() Targets {
	return Targets{
		Calories: t.CaloriesKcal,
		ProteinG: t.ProteinG,
		CarbsG:   t.CarbsG,
		FatsG:    t.FatG,
	}
}

// GetTargetsResponse contains targets and a flag indicating if they are defaults.
type GetTargetsResponse struct {
	Targets   TargetsDTO `json:"targets"`
	IsDefault bool       `json:"is_default"`
}

// UpsertTargetsRequest is the request body for PUT /v1/nutrition/targets.
type UpsertTargetsRequest struct {
	ProfileID    uuid.UUID `json:"profile_id"`
	CaloriesKcal int       `json:"calories_kcal"`
	ProteinG     int       `json:"protein_g"`
	FatG         int       `json:"fat_g"`
	CarbsG       int       `json:"carbs_g"`
}

// Validate validates the upsert request.
func (r *UpsertTargetsRequest) Validate() error {
	if r.ProfileID == uuid.Nil {
		return fmt.Errorf("profile_id is required")
	}

	if r.CaloriesKcal < 800 || r.CaloriesKcal > 6000 {
		return fmt.Errorf("calories_kcal must be between 800 and 6000")
	}

	if r.ProteinG < 0 || r.ProteinG > 500 {
		return fmt.Errorf("protein_g must be between 0 and 500")
	}

	if r.FatG < 0 || r.FatG > 500 {
		return fmt.Errorf("fat_g must be between 0 and 500")
	}

	if r.CarbsG < 0 || r.CarbsG > 800 {
		return fmt.Errorf("carbs_g must be between 0 and 800")
	}

	return nil
}

// GetDefaultTargets returns reasonable default nutrition targets.
func GetDefaultTargets(profileID uuid.UUID) TargetsDTO {
	now := time.Now().UTC()
	return TargetsDTO{
		ProfileID:    profileID,
		CaloriesKcal: 2200,
		ProteinG:     120,
		FatG:         70,
		CarbsG:       250,
		Source:       SourceDefault,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

const (
	SourceComputed = "computed"
	SourceManual   = "manual"
	SourceDefault  = "default"
)

// BiometricsDTO - сохранённые биометрические данные профиля
type BiometricsDTO struct {
	ProfileID uuid.UUID `json:"profile_id"`
	BiometricProfile
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertBiometricsRequest is the request body for PUT /v1/nutrition/biometrics.
type UpsertBiometricsRequest struct {
	ProfileID uuid.UUID `json:"profile_id"`
	BiometricProfile
}

// ComputeTargetsRequest is the request body for POST /v1/nutrition/targets/compute.
// Without biometrics the stored ones are used.
type ComputeTargetsRequest struct {
	ProfileID  uuid.UUID         `json:"profile_id"`
	Biometrics *BiometricProfile `json:"biometrics,omitempty"`
	// DryRun returns the computation without saving anything.
	DryRun bool `json:"dry_run,omitempty"`
}

// ComputeTargetsResponse carries the intermediate energy values with the result.
type ComputeTargetsResponse struct {
	BMR     float64    `json:"bmr"`
	TDEE    float64    `json:"tdee"`
	Targets TargetsDTO `json:"targets"`
	Saved   bool       `json:"saved"`
}
