package mealplans

import (
	"time"

	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// GeneratePlanRequest is the body of POST /v1/meal/plan/generate.
type GeneratePlanRequest struct {
	ProfileID uuid.UUID `json:"profile_id"`
	// StartDate is YYYY-MM-DD; today (UTC) when empty.
	StartDate     string   `json:"start_date"`
	PlanType      string   `json:"plan_type"`
	SelectedMeals []string `json:"selected_meals,omitempty"`
	// Replace overwrites meals already planned in the week.
	Replace bool `json:"replace"`
	// Targets overrides the stored nutrition targets for this generation only.
	Targets *nutrition.Targets `json:"targets,omitempty"`
}

type PlannedIngredientDTO struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	IsScalable   bool      `json:"is_scalable"`
	BaseAmount   float64   `json:"base_amount"`
	Amount       float64   `json:"amount"`
	Overridden   bool      `json:"overridden"`
	AutoAdjusted bool      `json:"auto_adjusted"`
}

type PlannedMealDTO struct {
	ID          uuid.UUID                    `json:"id"`
	ProfileID   uuid.UUID                    `json:"profile_id"`
	Date        string                       `json:"date"`
	MealType    string                       `json:"meal_type"`
	RecipeID    uuid.UUID                    `json:"recipe_id"`
	RecipeName  string                       `json:"recipe_name"`
	Nutrition   Nutrients                    `json:"nutrition"`
	Ingredients []PlannedIngredientDTO       `json:"ingredients"`
	Overrides   []storage.IngredientOverride `json:"overrides"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

type DayDTO struct {
	Date   string           `json:"date"`
	Meals  []PlannedMealDTO `json:"meals"`
	Totals Nutrients        `json:"totals"`
}

type PlanResponse struct {
	ProfileID uuid.UUID          `json:"profile_id"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Targets   *nutrition.Targets `json:"targets,omitempty"`
	Days      []DayDTO           `json:"days"`
}

type TodayResponse struct {
	Date    string             `json:"date"`
	Targets *nutrition.Targets `json:"targets,omitempty"`
	Meals   []PlannedMealDTO   `json:"meals"`
	Totals  Nutrients          `json:"totals"`
}

type PlanStatusResponse struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	PlannedMeals int      `json:"planned_meals"`
	MissingDays  []string `json:"missing_days"`
	Complete     bool     `json:"complete"`
}

type DeletePlanResponse struct {
	Deleted int `json:"deleted"`
}

type OverrideInput struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	NewAmount    float64   `json:"new_amount"`
}

// UpdateOverridesRequest is the body of PATCH /v1/meal/plan/{id}/overrides.
// Reset clears every override before Overrides are applied.
type UpdateOverridesRequest struct {
	Reset     bool            `json:"reset"`
	Overrides []OverrideInput `json:"overrides"`
}

type ConfigsResponse struct {
	DefaultPlanType string       `json:"default_plan_type"`
	Configs         []PlanConfig `json:"configs"`
}
