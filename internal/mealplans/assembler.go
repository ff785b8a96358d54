package mealplans

import (
	"context"
	"time"

	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// DayPlan is the pre-optimization result for one date.
type DayPlan struct {
	Date    time.Time
	Meals   []storage.PlannedMeal
	Recipes map[uuid.UUID]storage.Recipe
	// Used holds every recipe id chosen so far, including ids passed in.
	Used map[uuid.UUID]struct{}
}

// Assembler fills every slot of one day.
type Assembler struct {
	selector  *Selector
	tolerance float64
}

func NewAssembler(selector *Selector, tolerance float64) *Assembler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Assembler{selector: selector, tolerance: tolerance}
}

// AssembleDay selects one recipe per slot in slot order. used is copied,
// never mutated; the returned plan carries the extended set.
func (a *Assembler) AssembleDay(ctx context.Context, date time.Time, cfg PlanConfig, targets nutrition.Targets, used map[uuid.UUID]struct{}) (DayPlan, error) {
	day := DayPlan{
		Date:    date,
		Meals:   make([]storage.PlannedMeal, 0, len(cfg.Slots)),
		Recipes: make(map[uuid.UUID]storage.Recipe, len(cfg.Slots)),
		Used:    make(map[uuid.UUID]struct{}, len(used)+len(cfg.Slots)),
	}
	for id := range used {
		day.Used[id] = struct{}{}
	}

	for i, slot := range cfg.Slots {
		slotTarget := float64(targets.Calories) * slot.CalorieShare

		recipe, err := a.selector.Select(ctx, slot.MealType, slotTarget, a.tolerance, day.Used)
		if err != nil {
			return DayPlan{}, err
		}

		day.Used[recipe.ID] = struct{}{}
		day.Recipes[recipe.ID] = recipe
		day.Meals = append(day.Meals, storage.PlannedMeal{
			RecipeID: recipe.ID,
			MealDate: date,
			MealType: slot.MealType,
			Position: i,
		})
	}

	return day, nil
}
