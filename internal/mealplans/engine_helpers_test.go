package mealplans

import (
	"context"
	"math"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

type fetchCall struct {
	mealType string
	min, max int
}

type fakeCatalog struct {
	recipes []storage.Recipe
	err     error
	calls   []fetchCall
}

func (c *fakeCatalog) FetchCandidates(ctx context.Context, mealType string, minCalories, maxCalories int) ([]storage.Recipe, error) {
	c.calls = append(c.calls, fetchCall{mealType: mealType, min: minCalories, max: maxCalories})
	if c.err != nil {
		return nil, c.err
	}
	var out []storage.Recipe
	for _, r := range c.recipes {
		if r.HasMealType(mealType) && r.TotalCalories >= minCalories && r.TotalCalories <= maxCalories {
			out = append(out, r)
		}
	}
	return out, nil
}

func ingredient(name string, base float64, scalable bool, kcal, protein, carbs, fats float64) storage.Ingredient {
	return storage.Ingredient{
		ID:         uuid.New(),
		Name:       name,
		BaseAmount: base,
		Unit:       "g",
		IsScalable: scalable,
		Calories:   kcal,
		ProteinG:   protein,
		CarbsG:     carbs,
		FatsG:      fats,
	}
}

func recipe(name string, mealTypes []string, ingredients ...storage.Ingredient) storage.Recipe {
	r := storage.Recipe{ID: uuid.New(), Name: name, MealTypes: mealTypes, Ingredients: ingredients}
	var kcal float64
	for _, ing := range ingredients {
		kcal += ing.Calories
		r.TotalProteinG += ing.ProteinG
		r.TotalCarbsG += ing.CarbsG
		r.TotalFatsG += ing.FatsG
	}
	r.TotalCalories = int(math.Round(kcal))
	return r
}

// simpleRecipe has a single scalable ingredient carrying all calories.
func simpleRecipe(name string, kcal int, mealTypes ...string) storage.Recipe {
	return recipe(name, mealTypes, ingredient(name+" base", 100, true, float64(kcal), 0, 0, 0))
}

var mainMeals = []string{MealBreakfast, MealLunch, MealDinner}

func mustDate(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakePlanStore struct {
	dates map[string]int
	err   error
}

func (s *fakePlanStore) CountInRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	total := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		total += s.dates[d.Format(dateLayout)]
	}
	return total, nil
}

func (s *fakePlanStore) ListDates(ctx context.Context, ownerUserID string, profileID uuid.UUID, dates []time.Time) ([]time.Time, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []time.Time
	for _, d := range dates {
		if s.dates[d.Format(dateLayout)] > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}
