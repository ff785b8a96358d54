package mealplans

import (
	"math"
	"math/rand"
	"testing"

	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

type testDay struct {
	meals   []storage.PlannedMeal
	recipes map[uuid.UUID]storage.Recipe
	byName  map[string]storage.Ingredient
}

// newTestDay builds a 3-meal day totalling 2100 kcal, P 149, C 166, F 89.
func newTestDay() testDay {
	cheese := ingredient("cheese", 100, false, 500, 25, 2, 42)
	bread := ingredient("bread", 100, true, 250, 9, 48, 3)
	rice := ingredient("rice", 300, true, 390, 8, 86, 1)
	chicken := ingredient("chicken", 200, true, 330, 62, 0, 7)
	salmon := ingredient("salmon", 200, true, 400, 40, 0, 26)
	veg := ingredient("veg", 150, false, 230, 5, 30, 10)

	breakfast := recipe("toast", []string{MealBreakfast}, cheese, bread)
	lunch := recipe("bowl", []string{MealLunch}, rice, chicken)
	dinner := recipe("fish", []string{MealDinner}, salmon, veg)

	date := mustDate("2026-10-12")
	d := testDay{
		recipes: map[uuid.UUID]storage.Recipe{breakfast.ID: breakfast, lunch.ID: lunch, dinner.ID: dinner},
		byName:  map[string]storage.Ingredient{},
	}
	for _, ing := range []storage.Ingredient{cheese, bread, rice, chicken, salmon, veg} {
		d.byName[ing.Name] = ing
	}
	for _, r := range []struct {
		recipe storage.Recipe
		slot   string
	}{{breakfast, MealBreakfast}, {lunch, MealLunch}, {dinner, MealDinner}} {
		d.meals = append(d.meals, storage.PlannedMeal{RecipeID: r.recipe.ID, MealDate: date, MealType: r.slot})
	}
	return d
}

func allOverrides(meals []storage.PlannedMeal) []storage.IngredientOverride {
	var out []storage.IngredientOverride
	for _, m := range meals {
		out = append(out, m.Overrides...)
	}
	return out
}

func TestRoundTo5g(t *testing.T) {
	cases := map[float64]float64{
		181.8: 180,
		183:   185,
		2.5:   5,
		48.2:  50,
		7.5:   10,
		0:     0,
		160:   160,
	}
	for in, want := range cases {
		if got := RoundTo5g(in); got != want {
			t.Errorf("RoundTo5g(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestReducedAmount(t *testing.T) {
	tests := []struct {
		name      string
		base, cut float64
		want      float64
		ok        bool
	}{
		{"capped", 200, 50, 160, true},
		{"uncapped", 200, 10, 190, true},
		{"rounds to base", 180, 1, 180, false},
		{"rounded above base steps down", 184, 0.5, 180, true},
		{"no multiple of 5 in band", 4, 1, 4, false},
		{"zero cut", 100, 0, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReducedAmount(tt.base, tt.cut)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ReducedAmount(%v, %v) = %v, %t; want %v, %t", tt.base, tt.cut, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	d := newTestDay()
	agg := Aggregate(d.meals, d.recipes)
	want := Nutrients{Calories: 2100, ProteinG: 149, CarbsG: 166, FatsG: 89}
	if agg != want {
		t.Errorf("Aggregate = %+v, want %+v", agg, want)
	}
}

func TestOptimizeCalorieSurplusCapped(t *testing.T) {
	d := newTestDay()
	out := Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 2000, ProteinG: 300, CarbsG: 300, FatsG: 300})

	overrides := allOverrides(out)
	if len(overrides) != 1 {
		t.Fatalf("expected exactly one override, got %d", len(overrides))
	}
	o := out[2].Overrides[0]
	// salmon is the highest-calorie scalable ingredient (the non-scalable cheese is higher)
	if o.IngredientID != d.byName["salmon"].ID {
		t.Fatalf("expected salmon override, got %v", o.IngredientID)
	}
	// 100 kcal surplus at 2 kcal/g needs 50g, capped at 40g
	if o.NewAmount != 160 || !o.AutoAdjusted {
		t.Errorf("unexpected override %+v", o)
	}
}

func TestOptimizeCalorieSurplusUncapped(t *testing.T) {
	d := newTestDay()
	out := Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 2080})

	o := out[2].Overrides
	if len(o) != 1 || o[0].NewAmount != 190 {
		t.Fatalf("expected salmon at 190g, got %+v", o)
	}
}

func TestOptimizeCalorieFirstPriority(t *testing.T) {
	d := newTestDay()
	// fats are at 890% of target, calories also over
	out := Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 2000, ProteinG: 300, CarbsG: 300, FatsG: 10})

	overrides := allOverrides(out)
	if len(overrides) != 1 {
		t.Fatalf("expected one override, got %d", len(overrides))
	}
	if overrides[0].IngredientID != d.byName["salmon"].ID {
		t.Errorf("expected the calorie correction to win, got override on %v", overrides[0].IngredientID)
	}
}

func TestOptimizeMacroSurplus(t *testing.T) {
	d := newTestDay()
	out := Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 3000, ProteinG: 120, CarbsG: 200, FatsG: 100})

	o := out[1].Overrides
	if len(o) != 1 || o[0].IngredientID != d.byName["chicken"].ID {
		t.Fatalf("expected chicken override, got %+v", o)
	}
	if o[0].NewAmount != 160 {
		t.Errorf("expected 160g, got %v", o[0].NewAmount)
	}
	if len(allOverrides(out)) != 1 {
		t.Errorf("expected a single override for the day")
	}
}

func TestOptimizeLargestMacroSurplusWins(t *testing.T) {
	d := newTestDay()
	// protein +29g, carbs +66g
	out := Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 3000, ProteinG: 120, CarbsG: 100, FatsG: 100})

	o := out[1].Overrides
	if len(o) != 1 || o[0].IngredientID != d.byName["rice"].ID || o[0].NewAmount != 240 {
		t.Fatalf("expected rice at 240g, got %+v", o)
	}
}

func TestOptimizeMacroBelowThreshold(t *testing.T) {
	d := newTestDay()
	// protein 149 vs 145 is over target but under 105%
	out := Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 3000, ProteinG: 145, CarbsG: 200, FatsG: 100})

	if n := len(allOverrides(out)); n != 0 {
		t.Fatalf("expected no overrides, got %d", n)
	}
}

func TestOptimizeNoScalableIngredient(t *testing.T) {
	fixed := recipe("fixed", []string{MealLunch}, ingredient("egg", 1, false, 900, 10, 10, 10))
	meals := []storage.PlannedMeal{{RecipeID: fixed.ID, MealType: MealLunch}}
	recipes := map[uuid.UUID]storage.Recipe{fixed.ID: fixed}

	out := Optimize(meals, recipes, nutrition.Targets{Calories: 500})
	if len(allOverrides(out)) != 0 {
		t.Fatalf("non-scalable ingredients must never be overridden")
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	d := newTestDay()
	_ = Optimize(d.meals, d.recipes, nutrition.Targets{Calories: 2000})
	if len(allOverrides(d.meals)) != 0 {
		t.Fatalf("input meals were modified")
	}
}

func TestOptimizeChangeCap(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 500; i++ {
		base := 5 + rng.Float64()*400
		kcal := 10 + rng.Float64()*900
		r := recipe("r", []string{MealDinner},
			ingredient("main", base, true, kcal, rng.Float64()*60, rng.Float64()*60, rng.Float64()*60),
			ingredient("side", 50, true, kcal/3, 1, 1, 1),
		)
		meals := []storage.PlannedMeal{{RecipeID: r.ID, MealType: MealDinner}}
		targets := nutrition.Targets{
			Calories: int(kcal * rng.Float64() * 1.6),
			ProteinG: rng.Intn(40) + 1,
			CarbsG:   rng.Intn(40) + 1,
			FatsG:    rng.Intn(40) + 1,
		}

		out := Optimize(meals, map[uuid.UUID]storage.Recipe{r.ID: r}, targets)
		overrides := allOverrides(out)
		if len(overrides) > 1 {
			t.Fatalf("case %d: more than one override", i)
		}
		for _, o := range overrides {
			var ingBase float64
			for _, ing := range r.Ingredients {
				if ing.ID == o.IngredientID {
					ingBase = ing.BaseAmount
				}
			}
			if math.Abs(o.NewAmount-ingBase) > ingBase*MaxIngredientChange+1e-9 {
				t.Fatalf("case %d: override %v breaks the cap for base %v", i, o.NewAmount, ingBase)
			}
			if math.Mod(o.NewAmount, 5) != 0 {
				t.Fatalf("case %d: override %v is not a multiple of 5", i, o.NewAmount)
			}
		}
	}
}

func TestEffectiveNutritionWithOverrides(t *testing.T) {
	d := newTestDay()
	lunch := d.recipes[d.meals[1].RecipeID]
	n := EffectiveNutrition(lunch, []storage.IngredientOverride{
		{IngredientID: d.byName["chicken"].ID, NewAmount: 100},
		{IngredientID: d.byName["rice"].ID, NewAmount: 0},
	})
	if n.Calories != 165 || n.ProteinG != 31 || n.CarbsG != 0 || n.FatsG != 3.5 {
		t.Errorf("unexpected nutrition %+v", n)
	}
}
