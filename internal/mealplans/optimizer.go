package mealplans

import (
	"math"

	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

const (
	// MaxIngredientChange bounds an automatic change to a fraction of base amount.
	MaxIngredientChange = 0.20
	// MacroSurplusThreshold is the fraction of a macro target that must be
	// exceeded before the macro is corrected.
	MacroSurplusThreshold = 1.05

	amountEpsilon = 1e-9
)

const (
	macroProtein = "protein"
	macroCarbs   = "carbs"
	macroFats    = "fats"
)

// Nutrients is a calorie/macro total.
type Nutrients struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatsG    float64 `json:"fats_g"`
}

// RoundTo5g rounds grams to the nearest multiple of 5, ties up.
func RoundTo5g(grams float64) float64 {
	return math.Floor(grams/5+0.5) * 5
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// EffectiveNutrition sums a recipe's ingredients with overrides applied.
func EffectiveNutrition(recipe storage.Recipe, overrides []storage.IngredientOverride) Nutrients {
	amounts := make(map[uuid.UUID]float64, len(overrides))
	for _, o := range overrides {
		amounts[o.IngredientID] = o.NewAmount
	}

	var kcal, protein, carbs, fats float64
	for _, ing := range recipe.Ingredients {
		factor := 1.0
		if amount, ok := amounts[ing.ID]; ok {
			factor = 0
			if ing.BaseAmount > 0 {
				factor = amount / ing.BaseAmount
			}
		}
		kcal += ing.Calories * factor
		protein += ing.ProteinG * factor
		carbs += ing.CarbsG * factor
		fats += ing.FatsG * factor
	}

	return Nutrients{
		Calories: int(math.Round(kcal)),
		ProteinG: round1(protein),
		CarbsG:   round1(carbs),
		FatsG:    round1(fats),
	}
}

// Aggregate totals a day. Meals whose recipe is missing from recipes are skipped.
func Aggregate(meals []storage.PlannedMeal, recipes map[uuid.UUID]storage.Recipe) Nutrients {
	var kcal int
	var protein, carbs, fats float64
	for _, m := range meals {
		recipe, ok := recipes[m.RecipeID]
		if !ok {
			continue
		}
		n := EffectiveNutrition(recipe, m.Overrides)
		kcal += n.Calories
		protein += n.ProteinG
		carbs += n.CarbsG
		fats += n.FatsG
	}
	return Nutrients{Calories: kcal, ProteinG: round1(protein), CarbsG: round1(carbs), FatsG: round1(fats)}
}

// ingredientRef locates an ingredient inside a day.
type ingredientRef struct {
	mealIdx    int
	ingredient storage.Ingredient
}

// Optimize applies at most one automatic ingredient reduction to the day.
// Calorie surplus takes priority over macro surplus. The input is not modified.
func Optimize(meals []storage.PlannedMeal, recipes map[uuid.UUID]storage.Recipe, targets nutrition.Targets) []storage.PlannedMeal {
	out := cloneMeals(meals)
	agg := Aggregate(meals, recipes)

	if agg.Calories > targets.Calories {
		surplus := float64(agg.Calories - targets.Calories)
		ref, ok := topScalable(out, recipes, func(ing storage.Ingredient) float64 { return ing.Calories })
		if !ok {
			return out
		}
		perUnit := ref.ingredient.Calories / ref.ingredient.BaseAmount
		applyReduction(out, ref, surplus/perUnit)
		return out
	}

	macro, surplus := largestMacroSurplus(agg, targets)
	if macro == "" {
		return out
	}
	contribution := macroValue(macro)
	ref, ok := topScalable(out, recipes, contribution)
	if !ok {
		return out
	}
	perUnit := contribution(ref.ingredient) / ref.ingredient.BaseAmount
	applyReduction(out, ref, surplus/perUnit)
	return out
}

// largestMacroSurplus returns the macro exceeding its threshold by the most grams.
func largestMacroSurplus(agg Nutrients, targets nutrition.Targets) (string, float64) {
	candidates := []struct {
		name     string
		consumed float64
		target   int
	}{
		{macroProtein, agg.ProteinG, targets.ProteinG},
		{macroCarbs, agg.CarbsG, targets.CarbsG},
		{macroFats, agg.FatsG, targets.FatsG},
	}

	best, bestSurplus := "", 0.0
	for _, c := range candidates {
		if c.target <= 0 || c.consumed <= float64(c.target)*MacroSurplusThreshold {
			continue
		}
		if surplus := c.consumed - float64(c.target); surplus > bestSurplus {
			best, bestSurplus = c.name, surplus
		}
	}
	return best, bestSurplus
}

func macroValue(macro string) func(storage.Ingredient) float64 {
	switch macro {
	case macroProtein:
		return func(ing storage.Ingredient) float64 { return ing.ProteinG }
	case macroCarbs:
		return func(ing storage.Ingredient) float64 { return ing.CarbsG }
	default:
		return func(ing storage.Ingredient) float64 { return ing.FatsG }
	}
}

// topScalable finds the scalable ingredient with the largest positive value.
// Ties keep the first one in slot order.
func topScalable(meals []storage.PlannedMeal, recipes map[uuid.UUID]storage.Recipe, value func(storage.Ingredient) float64) (ingredientRef, bool) {
	var best ingredientRef
	bestValue := 0.0
	found := false
	for i, m := range meals {
		recipe, ok := recipes[m.RecipeID]
		if !ok {
			continue
		}
		for _, ing := range recipe.Ingredients {
			if !ing.IsScalable || ing.BaseAmount <= 0 {
				continue
			}
			if v := value(ing); v > bestValue {
				best, bestValue, found = ingredientRef{mealIdx: i, ingredient: ing}, v, true
			}
		}
	}
	return best, found
}

// ReducedAmount returns the new amount after cutting reduction units from
// base, capped at MaxIngredientChange and rounded to 5g. ok is false when the
// rounded amount equals base or no multiple of 5 below base stays inside the cap.
func ReducedAmount(base, reduction float64) (float64, bool) {
	maxCut := base * MaxIngredientChange
	if reduction > maxCut {
		reduction = maxCut
	}
	if reduction <= 0 {
		return base, false
	}

	floor := base - maxCut
	amount := RoundTo5g(base - reduction)
	if amount < floor-amountEpsilon {
		amount += 5
	}
	if amount > base+amountEpsilon {
		amount -= 5
	}
	if amount < 0 || amount < floor-amountEpsilon || amount >= base-amountEpsilon {
		return base, false
	}
	return amount, true
}

func applyReduction(meals []storage.PlannedMeal, ref ingredientRef, reduction float64) {
	amount, ok := ReducedAmount(ref.ingredient.BaseAmount, reduction)
	if !ok {
		return
	}
	meals[ref.mealIdx].Overrides = setOverride(meals[ref.mealIdx].Overrides, storage.IngredientOverride{
		IngredientID: ref.ingredient.ID,
		NewAmount:    amount,
		AutoAdjusted: true,
	})
}

// setOverride replaces an existing override for the same ingredient or appends.
func setOverride(overrides []storage.IngredientOverride, o storage.IngredientOverride) []storage.IngredientOverride {
	for i := range overrides {
		if overrides[i].IngredientID == o.IngredientID {
			overrides[i] = o
			return overrides
		}
	}
	return append(overrides, o)
}

func cloneMeals(meals []storage.PlannedMeal) []storage.PlannedMeal {
	out := make([]storage.PlannedMeal, len(meals))
	for i, m := range meals {
		out[i] = m
		if m.Overrides != nil {
			out[i].Overrides = append([]storage.IngredientOverride(nil), m.Overrides...)
		}
	}
	return out
}
