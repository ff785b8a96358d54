package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Service handles the recipe catalog.
type Service struct {
	storage storage.RecipesStorage
}

// NewService creates a new recipes service.
func NewService(storage storage.RecipesStorage) *Service {
	return &Service{storage: storage}
}

// List returns recipes with optional meal type filter and name search.
func (s *Service) List(ctx context.Context, mealType, query string, limit, offset int) ([]RecipeDTO, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if mealType != "" && !CatalogMealTypes[mealType] {
		return nil, 0, fmt.Errorf("%w: unknown meal_type %q", ErrInvalidRequest, mealType)
	}

	recipes, total, err := s.storage.List(ctx, mealType, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	out := make([]RecipeDTO, len(recipes))
	for i, r := range recipes {
		out[i] = ToDTO(r)
	}
	return out, total, nil
}

// Get returns one recipe.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (RecipeDTO, error) {
	r, err := s.storage.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return RecipeDTO{}, ErrRecipeNotFound
	}
	if err != nil {
		return RecipeDTO{}, fmt.Errorf("failed to get recipe: %w", err)
	}
	return ToDTO(*r), nil
}

// Import validates and upserts an externally authored catalog.
func (s *Service) Import(ctx context.Context, req ImportRecipesRequest) (ImportRecipesResponse, error) {
	if err := req.Validate(); err != nil {
		return ImportRecipesResponse{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	batch := make([]storage.Recipe, len(req.Recipes))
	for i, r := range req.Recipes {
		batch[i] = r.toRecipe()
	}

	if err := s.storage.Upsert(ctx, batch); err != nil {
		return ImportRecipesResponse{}, fmt.Errorf("failed to import recipes: %w", err)
	}

	total, err := s.storage.Count(ctx)
	if err != nil {
		return ImportRecipesResponse{}, fmt.Errorf("failed to count recipes: %w", err)
	}

	log.Printf("INFO recipes: imported=%d total=%d", len(batch), total)
	return ImportRecipesResponse{Imported: len(batch), Total: total}, nil
}

// LoadFile reads a catalog file: either {"recipes":[...]} or a bare array.
func LoadFile(path string) (ImportRecipesRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportRecipesRequest{}, fmt.Errorf("read %s: %w", path, err)
	}

	var req ImportRecipesRequest
	if err := json.Unmarshal(data, &req); err == nil && len(req.Recipes) > 0 {
		return req, nil
	}

	var bare []ImportRecipe
	if err := json.Unmarshal(data, &bare); err != nil {
		return ImportRecipesRequest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ImportRecipesRequest{Recipes: bare}, nil
}

// SeedIfEmpty imports path into an empty catalog. A non-empty catalog is left untouched.
func (s *Service) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	count, err := s.storage.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	if count > 0 {
		log.Printf("INFO recipes: catalog has %d recipes, seed skipped", count)
		return 0, nil
	}

	req, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	resp, err := s.Import(ctx, req)
	if err != nil {
		return 0, err
	}
	return resp.Imported, nil
}
