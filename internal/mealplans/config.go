package mealplans

import (
	"fmt"
	"sort"
)

const (
	MealBreakfast      = "breakfast"
	MealSnackMorning   = "snack_morning"
	MealLunch          = "lunch"
	MealSnackAfternoon = "snack_afternoon"
	MealDinner         = "dinner"

	// SearchSnack is the catalog category shared by both snack slots.
	SearchSnack = "snack"

	PlanThreeMainTwoSnacks = "3_main_2_snacks"
	PlanThreeMainOneSnack  = "3_main_1_snack"
	PlanThreeMain          = "3_main"
	PlanTwoMain            = "2_main"
)

// dayOrder ranks meal types within a day.
var dayOrder = map[string]int{
	MealBreakfast:      0,
	MealSnackMorning:   1,
	MealLunch:          2,
	MealSnackAfternoon: 3,
	MealDinner:         4,
}

// MealSlot is one meal occasion and its share of daily calories.
type MealSlot struct {
	MealType     string  `json:"meal_type"`
	CalorieShare float64 `json:"calorie_share"`
}

// PlanConfig is the ordered list of slots for a plan type.
type PlanConfig struct {
	PlanType string     `json:"plan_type"`
	Slots    []MealSlot `json:"slots"`
}

// InvalidPlanConfigurationError is returned for unknown plan types or a
// malformed slot selection.
type InvalidPlanConfigurationError struct {
	PlanType string
	Reason   string
}

func (e *InvalidPlanConfigurationError) Error() string {
	return fmt.Sprintf("invalid plan configuration %q: %s", e.PlanType, e.Reason)
}

var fixedPlans = map[string][]MealSlot{
	PlanThreeMainTwoSnacks: {
		{MealBreakfast, 0.25},
		{MealSnackMorning, 0.10},
		{MealLunch, 0.30},
		{MealSnackAfternoon, 0.10},
		{MealDinner, 0.25},
	},
	PlanThreeMainOneSnack: {
		{MealBreakfast, 0.25},
		{MealLunch, 0.35},
		{MealSnackAfternoon, 0.10},
		{MealDinner, 0.30},
	},
	PlanThreeMain: {
		{MealBreakfast, 0.30},
		{MealLunch, 0.35},
		{MealDinner, 0.35},
	},
}

// PlanTypes lists every supported plan type.
var PlanTypes = []string{PlanThreeMainTwoSnacks, PlanThreeMainOneSnack, PlanThreeMain, PlanTwoMain}

const (
	twoMainEarlierShare = 0.45
	twoMainLaterShare   = 0.55
)

// ResolveConfig maps a plan type to its slots. selected is only read for
// 2_main, where it must name two distinct main meals (or be empty for
// lunch and dinner).
func ResolveConfig(planType string, selected []string) (PlanConfig, error) {
	if slots, ok := fixedPlans[planType]; ok {
		out := make([]MealSlot, len(slots))
		copy(out, slots)
		return PlanConfig{PlanType: planType, Slots: out}, nil
	}

	if planType != PlanTwoMain {
		return PlanConfig{}, &InvalidPlanConfigurationError{PlanType: planType, Reason: "unknown plan type"}
	}

	pair := []string{MealLunch, MealDinner}
	if len(selected) > 0 {
		if len(selected) != 2 {
			return PlanConfig{}, &InvalidPlanConfigurationError{PlanType: planType, Reason: "exactly two meal slots must be selected"}
		}
		for _, s := range selected {
			if !isMainMeal(s) {
				return PlanConfig{}, &InvalidPlanConfigurationError{PlanType: planType, Reason: fmt.Sprintf("%q is not a main meal", s)}
			}
		}
		if selected[0] == selected[1] {
			return PlanConfig{}, &InvalidPlanConfigurationError{PlanType: planType, Reason: "selected slots must differ"}
		}
		pair = []string{selected[0], selected[1]}
	}

	sort.Slice(pair, func(i, j int) bool { return dayOrder[pair[i]] < dayOrder[pair[j]] })

	return PlanConfig{
		PlanType: planType,
		Slots: []MealSlot{
			{pair[0], twoMainEarlierShare},
			{pair[1], twoMainLaterShare},
		},
	}, nil
}

// SearchMealType is the catalog category used to find candidates for a slot.
func SearchMealType(mealType string) string {
	if mealType == MealSnackMorning || mealType == MealSnackAfternoon {
		return SearchSnack
	}
	return mealType
}

// IsMealType reports whether s is a known slot meal type.
func IsMealType(s string) bool {
	_, ok := dayOrder[s]
	return ok
}

func isMainMeal(s string) bool {
	return s == MealBreakfast || s == MealLunch || s == MealDinner
}
