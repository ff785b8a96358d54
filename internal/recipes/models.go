package recipes

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// Категории каталога. Оба перекуса ищутся под snack.
var CatalogMealTypes = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

const (
	maxImportRecipes     = 2000
	maxRecipeIngredients = 60
)

type IngredientDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	BaseAmount float64   `json:"base_amount"`
	Unit       string    `json:"unit"`
	IsScalable bool      `json:"is_scalable"`
	Calories   float64   `json:"calories"`
	ProteinG   float64   `json:"protein_g"`
	CarbsG     float64   `json:"carbs_g"`
	FatsG      float64   `json:"fats_g"`
}

type RecipeDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	MealTypes     []string        `json:"meal_types"`
	TotalCalories int             `json:"total_calories"`
	TotalProteinG float64         `json:"total_protein_g"`
	TotalCarbsG   float64         `json:"total_carbs_g"`
	TotalFatsG    float64         `json:"total_fats_g"`
	Ingredients   []IngredientDTO `json:"ingredients"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ListRecipesResponse struct {
	Recipes []RecipeDTO `json:"recipes"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// ImportIngredient - ингредиент во входном каталоге; id необязателен
type ImportIngredient struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	Name       string     `json:"name"`
	BaseAmount float64    `json:"base_amount"`
	Unit       string     `json:"unit"`
	IsScalable bool       `json:"is_scalable"`
	Calories   float64    `json:"calories"`
	ProteinG   float64    `json:"protein_g"`
	CarbsG     float64    `json:"carbs_g"`
	FatsG      float64    `json:"fats_g"`
}

type ImportRecipe struct {
	ID          *uuid.UUID         `json:"id,omitempty"`
	Name        string             `json:"name"`
	MealTypes   []string           `json:"meal_types"`
	Ingredients []ImportIngredient `json:"ingredients"`
}

type ImportRecipesRequest struct {
	Recipes []ImportRecipe `json:"recipes"`
}

type ImportRecipesResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

func (r *ImportRecipesRequest) Validate() error {
	if len(r.Recipes) == 0 {
		return fmt.Errorf("recipes is required and must not be empty")
	}
	if len(r.Recipes) > maxImportRecipes {
		return fmt.Errorf("recipes cannot exceed %d", maxImportRecipes)
	}
	for i, rec := range r.Recipes {
		if err := rec.validate(); err != nil {
			return fmt.Errorf("recipe[%d]: %w", i, err)
		}
	}
	return nil
}

func (r ImportRecipe) validate() error {
	if strings.TrimSpace(r.Name) == "" || len(r.Name) > 200 {
		return fmt.Errorf("name must be 1-200 chars")
	}
	if len(r.MealTypes) == 0 {
		return fmt.Errorf("meal_types must not be empty")
	}
	for _, mt := range r.MealTypes {
		if !CatalogMealTypes[mt] {
			return fmt.Errorf("unknown meal_type %q", mt)
		}
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("ingredients must not be empty")
	}
	if len(r.Ingredients) > maxRecipeIngredients {
		return fmt.Errorf("ingredients cannot exceed %d", maxRecipeIngredients)
	}
	for j, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("ingredient[%d]: name is required", j)
		}
		if ing.BaseAmount <= 0 {
			return fmt.Errorf("ingredient[%d]: base_amount must be positive", j)
		}
		if ing.Calories < 0 || ing.ProteinG < 0 || ing.CarbsG < 0 || ing.FatsG < 0 {
			return fmt.Errorf("ingredient[%d]: nutrition values must not be negative", j)
		}
	}
	return nil
}

// toRecipe assigns missing ids and derives totals from the ingredients.
func (r ImportRecipe) toRecipe() storage.Recipe {
	rec := storage.Recipe{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(r.Name),
		MealTypes: dedupe(r.MealTypes),
	}
	if r.ID != nil && *r.ID != uuid.Nil {
		rec.ID = *r.ID
	}

	var kcal float64
	for _, in := range r.Ingredients {
		ing := storage.Ingredient{
			ID:         uuid.New(),
			Name:       strings.TrimSpace(in.Name),
			BaseAmount: in.BaseAmount,
			Unit:       in.Unit,
			IsScalable: in.IsScalable,
			Calories:   in.Calories,
			ProteinG:   in.ProteinG,
			CarbsG:     in.CarbsG,
			FatsG:      in.FatsG,
		}
		if in.ID != nil && *in.ID != uuid.Nil {
			ing.ID = *in.ID
		}
		if ing.Unit == "" {
			ing.Unit = "g"
		}
		kcal += ing.Calories
		rec.TotalProteinG += ing.ProteinG
		rec.TotalCarbsG += ing.CarbsG
		rec.TotalFatsG += ing.FatsG
		rec.Ingredients = append(rec.Ingredients, ing)
	}
	rec.TotalCalories = int(math.Round(kcal))
	rec.TotalProteinG = round1(rec.TotalProteinG)
	rec.TotalCarbsG = round1(rec.TotalCarbsG)
	rec.TotalFatsG = round1(rec.TotalFatsG)
	return rec
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func ToDTO(r storage.Recipe) RecipeDTO {
	ings := make([]IngredientDTO, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ings[i] = IngredientDTO(ing)
	}
	return RecipeDTO{
		ID:            r.ID,
		Name:          r.Name,
		MealTypes:     append([]string(nil), r.MealTypes...),
		TotalCalories: r.TotalCalories,
		TotalProteinG: r.TotalProteinG,
		TotalCarbsG:   r.TotalCarbsG,
		TotalFatsG:    r.TotalFatsG,
		Ingredients:   ings,
		CreatedAt:     r.CreatedAt,
	}
}
