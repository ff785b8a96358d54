package nutrition

import (
	"errors"
	"fmt"
	"math"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"

	GoalWeightLoss        = "weight_loss"
	GoalWeightMaintenance = "weight_maintenance"

	ActivityVeryLow  = "very_low"
	ActivityLow      = "low"
	ActivityModerate = "moderate"
	ActivityHigh     = "high"
	ActivityVeryHigh = "very_high"

	RatioHighFat     = "high_fat"
	RatioBalanced    = "balanced"
	RatioHighProtein = "high_protein"
	RatioLowFat      = "low_fat"

	// KcalPerKgFat is the energy content of one kilogram of body fat.
	KcalPerKgFat = 7700.0

	MinCaloriesFemale = 1400
	MinCaloriesMale   = 1600
)

// ActivityTiers in increasing order.
var ActivityTiers = []string{ActivityVeryLow, ActivityLow, ActivityModerate, ActivityHigh, ActivityVeryHigh}

var activityMultipliers = map[string]float64{
	ActivityVeryLow:  1.2,
	ActivityLow:      1.375,
	ActivityModerate: 1.55,
	ActivityHigh:     1.725,
	ActivityVeryHigh: 1.9,
}

// MacroSplit is a percentage split of daily calories.
type MacroSplit struct {
	FatPct     float64 `json:"fat_pct"`
	ProteinPct float64 `json:"protein_pct"`
	CarbPct    float64 `json:"carb_pct"`
}

var macroRatios = map[string]MacroSplit{
	RatioHighFat:     {FatPct: 60, ProteinPct: 25, CarbPct: 15},
	RatioBalanced:    {FatPct: 30, ProteinPct: 30, CarbPct: 40},
	RatioHighProtein: {FatPct: 30, ProteinPct: 40, CarbPct: 30},
	RatioLowFat:      {FatPct: 20, ProteinPct: 30, CarbPct: 50},
}

// ErrInvalidBiometrics is wrapped by every input validation failure of Compute.
var ErrInvalidBiometrics = errors.New("invalid biometrics")

// BiometricProfile is the input of Compute.
type BiometricProfile struct {
	Gender               string  `json:"gender"`
	Age                  int     `json:"age"`
	WeightKg             float64 `json:"weight_kg"`
	HeightCm             float64 `json:"height_cm"`
	ActivityLevel        string  `json:"activity_level"`
	Goal                 string  `json:"goal"`
	WeightLossRateKgWeek float64 `json:"weight_loss_rate_kg_week,omitempty"`
	MacroRatio           string  `json:"macro_ratio,omitempty"`
}

// Targets are the derived daily goals.
type Targets struct {
	Calories int `json:"target_calories"`
	ProteinG int `json:"target_protein_g"`
	CarbsG   int `json:"target_carbs_g"`
	FatsG    int `json:"target_fats_g"`
}

// BelowMinimumCaloriesError is returned when the goal-adjusted target is
// under the safety floor for the gender.
type BelowMinimumCaloriesError struct {
	Gender   string
	Computed int
	Minimum  int
}

func (e *BelowMinimumCaloriesError) Error() string {
	return fmt.Sprintf("daily target of %d kcal is below the %d kcal minimum for %s: choose a gentler weight-loss rate",
		e.Computed, e.Minimum, e.Gender)
}

// Validate checks the profile fields required by Compute.
func (p BiometricProfile) Validate() error {
	switch p.Gender {
	case GenderMale, GenderFemale:
	default:
		return fmt.Errorf("%w: gender must be male or female", ErrInvalidBiometrics)
	}
	if p.Age <= 0 {
		return fmt.Errorf("%w: age must be positive", ErrInvalidBiometrics)
	}
	if p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight_kg must be positive", ErrInvalidBiometrics)
	}
	if p.HeightCm <= 0 {
		return fmt.Errorf("%w: height_cm must be positive", ErrInvalidBiometrics)
	}
	if _, ok := activityMultipliers[p.ActivityLevel]; !ok {
		return fmt.Errorf("%w: unknown activity_level %q", ErrInvalidBiometrics, p.ActivityLevel)
	}
	switch p.Goal {
	case GoalWeightMaintenance:
	case GoalWeightLoss:
		if p.WeightLossRateKgWeek <= 0 {
			return fmt.Errorf("%w: weight_loss_rate_kg_week is required for weight_loss", ErrInvalidBiometrics)
		}
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidBiometrics, p.Goal)
	}
	if p.MacroRatio != "" {
		if _, ok := macroRatios[p.MacroRatio]; !ok {
			return fmt.Errorf("%w: unknown macro_ratio %q", ErrInvalidBiometrics, p.MacroRatio)
		}
	}
	return nil
}

// BMR is the Mifflin–St Jeor basal metabolic rate.
func BMR(gender string, weightKg, heightCm float64, age int) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if gender == GenderMale {
		return bmr + 5
	}
	return bmr - 161
}

// TDEE scales bmr by the activity multiplier. Unknown tiers return 0.
func TDEE(bmr float64, activityLevel string) float64 {
	return bmr * activityMultipliers[activityLevel]
}

// MinimumCalories is the safety floor for the gender.
func MinimumCalories(gender string) int {
	if gender == GenderMale {
		return MinCaloriesMale
	}
	return MinCaloriesFemale
}

// Ratio returns the split for name, falling back to high_fat for "".
func Ratio(name string) (MacroSplit, bool) {
	if name == "" {
		name = RatioHighFat
	}
	split, ok := macroRatios[name]
	return split, ok
}

// Compute derives daily calorie and macro targets from biometrics.
func Compute(p BiometricProfile) (Targets, error) {
	if err := p.Validate(); err != nil {
		return Targets{}, err
	}

	calories := TDEE(BMR(p.Gender, p.WeightKg, p.HeightCm, p.Age), p.ActivityLevel)
	if p.Goal == GoalWeightLoss {
		calories -= p.WeightLossRateKgWeek * KcalPerKgFat / 7
	}

	target := int(math.Round(calories))
	if minimum := MinimumCalories(p.Gender); target < minimum {
		return Targets{}, &BelowMinimumCaloriesError{Gender: p.Gender, Computed: target, Minimum: minimum}
	}

	split, _ := Ratio(p.MacroRatio)
	return SplitMacros(target, split), nil
}

// SplitMacros converts a calorie target into gram targets. Each gram value
// is rounded independently.
func SplitMacros(calories int, split MacroSplit) Targets {
	kcal := float64(calories)
	return Targets{
		Calories: calories,
		FatsG:    int(math.Round(kcal * split.FatPct / 100 / 9)),
		ProteinG: int(math.Round(kcal * split.ProteinPct / 100 / 4)),
		CarbsG:   int(math.Round(kcal * split.CarbPct / 100 / 4)),
	}
}
