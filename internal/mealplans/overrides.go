package mealplans

import (
	"errors"
	"fmt"
	"math"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// ErrInvalidOverride is wrapped by every rejected user edit.
var ErrInvalidOverride = errors.New("invalid override")

// ApplyUserOverride returns existing with the user's amount for ingredientID.
// Setting an ingredient back to its base amount drops the override.
// Non-scalable ingredients accept only their base amount or 0.
func ApplyUserOverride(recipe storage.Recipe, existing []storage.IngredientOverride, ingredientID uuid.UUID, newAmount float64) ([]storage.IngredientOverride, error) {
	var ing *storage.Ingredient
	for i := range recipe.Ingredients {
		if recipe.Ingredients[i].ID == ingredientID {
			ing = &recipe.Ingredients[i]
			break
		}
	}
	if ing == nil {
		return nil, fmt.Errorf("%w: ingredient %s is not part of recipe %s", ErrInvalidOverride, ingredientID, recipe.ID)
	}
	if newAmount < 0 || math.IsNaN(newAmount) || math.IsInf(newAmount, 0) {
		return nil, fmt.Errorf("%w: amount must be a non-negative number", ErrInvalidOverride)
	}

	atBase := math.Abs(newAmount-ing.BaseAmount) < amountEpsilon
	if !ing.IsScalable && !atBase && newAmount != 0 {
		return nil, fmt.Errorf("%w: %s is not scalable, only %g or 0 is allowed", ErrInvalidOverride, ing.Name, ing.BaseAmount)
	}

	out := make([]storage.IngredientOverride, 0, len(existing)+1)
	for _, o := range existing {
		if o.IngredientID != ingredientID {
			out = append(out, o)
		}
	}
	if !atBase {
		out = append(out, storage.IngredientOverride{
			IngredientID: ingredientID,
			NewAmount:    newAmount,
			AutoAdjusted: false,
		})
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
