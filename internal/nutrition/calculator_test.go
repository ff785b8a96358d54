package nutrition

import (
	"errors"
	"math"
	"testing"
)

func maintenanceProfile() BiometricProfile {
	return BiometricProfile{
		Gender:        GenderFemale,
		Age:           30,
		WeightKg:      70,
		HeightCm:      165,
		ActivityLevel: ActivityModerate,
		Goal:          GoalWeightMaintenance,
	}
}

func TestBMRGenderOffset(t *testing.T) {
	male := BMR(GenderMale, 80, 180, 35)
	female := BMR(GenderFemale, 80, 180, 35)
	if diff := male - female; diff != 166 {
		t.Fatalf("expected 166 kcal gap, got %v", diff)
	}

	if got := BMR(GenderFemale, 70, 165, 30); got != 1420.25 {
		t.Errorf("expected BMR 1420.25, got %v", got)
	}
}

func TestTDEEStrictlyIncreasing(t *testing.T) {
	prev := 0.0
	for _, tier := range ActivityTiers {
		got := TDEE(1500, tier)
		if got <= prev {
			t.Fatalf("TDEE for %s (%v) is not greater than previous tier (%v)", tier, got, prev)
		}
		prev = got
	}
}

func TestComputeMaintenance(t *testing.T) {
	targets, err := Compute(maintenanceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if targets.Calories != 2201 {
		t.Fatalf("expected 2201 kcal, got %d", targets.Calories)
	}
	// 60/25/15 default split.
	if targets.FatsG != 147 || targets.ProteinG != 138 || targets.CarbsG != 83 {
		t.Errorf("unexpected macros: %+v", targets)
	}
}

func TestSplitMacrosReferenceValues(t *testing.T) {
	split, _ := Ratio("")
	got := SplitMacros(1801, split)
	if got.CarbsG != 68 || got.ProteinG != 113 || got.FatsG != 120 {
		t.Errorf("expected carbs=68 protein=113 fats=120, got %+v", got)
	}
}

func TestComputeWeightLossDeficit(t *testing.T) {
	p := maintenanceProfile()
	p.Goal = GoalWeightLoss
	p.WeightLossRateKgWeek = 0.5

	targets, err := Compute(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2201.39 - 550
	if targets.Calories != 1651 {
		t.Errorf("expected 1651 kcal, got %d", targets.Calories)
	}
}

func TestComputeBelowSafetyFloor(t *testing.T) {
	p := BiometricProfile{
		Gender:               GenderFemale,
		Age:                  40,
		WeightKg:             45,
		HeightCm:             150,
		ActivityLevel:        ActivityVeryLow,
		Goal:                 GoalWeightLoss,
		WeightLossRateKgWeek: 1.0,
	}

	_, err := Compute(p)
	var belowErr *BelowMinimumCaloriesError
	if !errors.As(err, &belowErr) {
		t.Fatalf("expected BelowMinimumCaloriesError, got %v", err)
	}
	if belowErr.Minimum != MinCaloriesFemale {
		t.Errorf("expected minimum %d, got %d", MinCaloriesFemale, belowErr.Minimum)
	}
	if belowErr.Computed >= belowErr.Minimum {
		t.Errorf("computed %d should be below minimum %d", belowErr.Computed, belowErr.Minimum)
	}
}

func TestComputeMaleFloor(t *testing.T) {
	p := BiometricProfile{
		Gender:               GenderMale,
		Age:                  60,
		WeightKg:             60,
		HeightCm:             165,
		ActivityLevel:        ActivityVeryLow,
		Goal:                 GoalWeightLoss,
		WeightLossRateKgWeek: 0.25,
	}
	// BMR 1336.25 * 1.2 = 1603.5 - 275 = 1328.5: above the female floor, below the male one.
	_, err := Compute(p)
	var belowErr *BelowMinimumCaloriesError
	if !errors.As(err, &belowErr) {
		t.Fatalf("expected BelowMinimumCaloriesError, got %v", err)
	}
	if belowErr.Minimum != MinCaloriesMale || belowErr.Gender != GenderMale {
		t.Errorf("unexpected error payload: %+v", belowErr)
	}
}

func TestComputeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *BiometricProfile)
	}{
		{"unknown gender", func(p *BiometricProfile) { p.Gender = "other" }},
		{"zero age", func(p *BiometricProfile) { p.Age = 0 }},
		{"zero weight", func(p *BiometricProfile) { p.WeightKg = 0 }},
		{"negative height", func(p *BiometricProfile) { p.HeightCm = -1 }},
		{"unknown activity", func(p *BiometricProfile) { p.ActivityLevel = "extreme" }},
		{"unknown goal", func(p *BiometricProfile) { p.Goal = "bulk" }},
		{"loss without rate", func(p *BiometricProfile) { p.Goal = GoalWeightLoss }},
		{"unknown ratio", func(p *BiometricProfile) { p.MacroRatio = "carnivore" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := maintenanceProfile()
			tt.mutate(&p)
			if _, err := Compute(p); !errors.Is(err, ErrInvalidBiometrics) {
				t.Errorf("expected ErrInvalidBiometrics, got %v", err)
			}
		})
	}
}

func TestSplitMacrosCalorieRoundTrip(t *testing.T) {
	for name, split := range macroRatios {
		for kcal := 1400; kcal <= 4500; kcal += 37 {
			got := SplitMacros(kcal, split)
			derived := float64(got.CarbsG*4 + got.ProteinG*4 + got.FatsG*9)
			if rel := math.Abs(derived-float64(kcal)) / float64(kcal); rel > 0.01 {
				t.Fatalf("%s at %d kcal: derived %v kcal, relative error %.4f", name, kcal, derived, rel)
			}
		}
	}
}
