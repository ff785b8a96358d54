package recipes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fdg312/meal-engine/internal/storage/memory"
)

func sampleImport() ImportRecipesRequest {
	return ImportRecipesRequest{Recipes: []ImportRecipe{
		{
			Name:      "Omelette",
			MealTypes: []string{"breakfast"},
			Ingredients: []ImportIngredient{
				{Name: "eggs", BaseAmount: 2, Unit: "pcs", Calories: 140, ProteinG: 12, FatsG: 10},
				{Name: "butter", BaseAmount: 10, IsScalable: true, Calories: 72, FatsG: 8.1},
			},
		},
		{
			Name:      "Chicken bowl",
			MealTypes: []string{"lunch", "dinner", "lunch"},
			Ingredients: []ImportIngredient{
				{Name: "chicken", BaseAmount: 200, IsScalable: true, Calories: 330, ProteinG: 62, FatsG: 7},
				{Name: "rice", BaseAmount: 150, IsScalable: true, Calories: 195.4, ProteinG: 4, CarbsG: 43},
			},
		},
	}}
}

func newTestHandler() *Handler {
	return NewHandler(NewService(memory.New().GetRecipesStorage()))
}

func importSample(t *testing.T, h *Handler) {
	t.Helper()
	body, _ := json.Marshal(sampleImport())
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/import", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleImport(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import failed: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleImportAndList(t *testing.T) {
	h := newTestHandler()
	importSample(t, h)

	req := httptest.NewRequest(http.MethodGet, "/v1/recipes?meal_type=lunch", nil)
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp ListRecipesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Recipes) != 1 {
		t.Fatalf("expected one lunch recipe, got %+v", resp)
	}

	bowl := resp.Recipes[0]
	if bowl.TotalCalories != 525 || bowl.TotalProteinG != 66 {
		t.Errorf("totals not derived from ingredients: %+v", bowl)
	}
	if len(bowl.MealTypes) != 2 {
		t.Errorf("duplicate meal types not collapsed: %v", bowl.MealTypes)
	}
	if bowl.Ingredients[0].Unit != "g" {
		t.Errorf("expected default unit g, got %q", bowl.Ingredients[0].Unit)
	}
}

func TestHandleListSearch(t *testing.T) {
	h := newTestHandler()
	importSample(t, h)

	req := httptest.NewRequest(http.MethodGet, "/v1/recipes?q=OMEL", nil)
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	var resp ListRecipesResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total != 1 || resp.Recipes[0].Name != "Omelette" {
		t.Errorf("unexpected search result %+v", resp)
	}
}

func TestHandleListUnknownMealType(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/recipes?meal_type=brunch", nil)
	w := httptest.NewRecorder()
	h.HandleList(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleGet(t *testing.T) {
	h := newTestHandler()
	importSample(t, h)

	list := httptest.NewRecorder()
	h.HandleList(list, httptest.NewRequest(http.MethodGet, "/v1/recipes", nil))
	var resp ListRecipesResponse
	json.NewDecoder(list.Body).Decode(&resp)

	req := httptest.NewRequest(http.MethodGet, "/v1/recipes/"+resp.Recipes[0].ID.String(), nil)
	req.SetPathValue("id", resp.Recipes[0].ID.String())
	w := httptest.NewRecorder()
	h.HandleGet(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/recipes/00000000-0000-0000-0000-000000000001", nil)
	req.SetPathValue("id", "00000000-0000-0000-0000-000000000001")
	w = httptest.NewRecorder()
	h.HandleGet(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandleImportValidation(t *testing.T) {
	tests := []struct {
		name string
		req  ImportRecipesRequest
	}{
		{"empty", ImportRecipesRequest{}},
		{"unknown meal type", ImportRecipesRequest{Recipes: []ImportRecipe{{
			Name: "x", MealTypes: []string{"supper"},
			Ingredients: []ImportIngredient{{Name: "a", BaseAmount: 1}},
		}}}},
		{"zero base amount", ImportRecipesRequest{Recipes: []ImportRecipe{{
			Name: "x", MealTypes: []string{"snack"},
			Ingredients: []ImportIngredient{{Name: "a"}},
		}}}},
		{"negative calories", ImportRecipesRequest{Recipes: []ImportRecipe{{
			Name: "x", MealTypes: []string{"snack"},
			Ingredients: []ImportIngredient{{Name: "a", BaseAmount: 10, Calories: -5}},
		}}}},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			w := httptest.NewRecorder()
			h.HandleImport(w, httptest.NewRequest(http.MethodPost, "/v1/recipes/import", bytes.NewReader(body)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestSeedIfEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipes.json")
	data, _ := json.Marshal(sampleImport().Recipes)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	svc := NewService(memory.New().GetRecipesStorage())
	n, err := svc.SeedIfEmpty(t.Context(), path)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 seeded recipes, got %d (%v)", n, err)
	}

	n, err = svc.SeedIfEmpty(t.Context(), path)
	if err != nil || n != 0 {
		t.Fatalf("a non-empty catalog must not be reseeded, got %d (%v)", n, err)
	}
}

func TestBundledSeedCatalog(t *testing.T) {
	req, err := LoadFile(filepath.Join("..", "..", "data", "recipes_seed.json"))
	if err != nil {
		t.Fatalf("load bundled catalog: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("bundled catalog is invalid: %v", err)
	}

	covered := map[string]int{}
	for _, r := range req.Recipes {
		for _, mt := range r.MealTypes {
			covered[mt]++
		}
	}
	for mt := range CatalogMealTypes {
		if covered[mt] < 2 {
			t.Errorf("meal type %s: expected at least 2 recipes, got %d", mt, covered[mt])
		}
	}
}
