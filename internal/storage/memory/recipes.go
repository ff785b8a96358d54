package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// recipesStorage - in-memory каталог рецептов
type recipesStorage struct {
	mu      sync.RWMutex
	recipes map[uuid.UUID]storage.Recipe
}

func newRecipesStorage() *recipesStorage {
	return &recipesStorage{recipes: make(map[uuid.UUID]storage.Recipe)}
}

func cloneRecipe(r storage.Recipe) storage.Recipe {
	r.MealTypes = append([]string(nil), r.MealTypes...)
	r.Ingredients = append([]storage.Ingredient(nil), r.Ingredients...)
	return r
}

// sortedLocked returns recipes matching keep, ordered by name then id.
func (s *recipesStorage) sortedLocked(keep func(storage.Recipe) bool) []storage.Recipe {
	out := make([]storage.Recipe, 0)
	for _, r := range s.recipes {
		if keep(r) {
			out = append(out, cloneRecipe(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *recipesStorage) FetchCandidates(ctx context.Context, mealType string, minCalories, maxCalories int) ([]storage.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked(func(r storage.Recipe) bool {
		return r.HasMealType(mealType) && r.TotalCalories >= minCalories && r.TotalCalories <= maxCalories
	}), nil
}

func (s *recipesStorage) ListByMealType(ctx context.Context, mealType string) ([]storage.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked(func(r storage.Recipe) bool { return r.HasMealType(mealType) }), nil
}

func (s *recipesStorage) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]storage.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]storage.Recipe, len(ids))
	for _, id := range ids {
		if r, ok := s.recipes[id]; ok {
			out[id] = cloneRecipe(r)
		}
	}
	return out, nil
}

func (s *recipesStorage) List(ctx context.Context, mealType, query string, limit, offset int) ([]storage.Recipe, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	all := s.sortedLocked(func(r storage.Recipe) bool {
		if mealType != "" && !r.HasMealType(mealType) {
			return false
		}
		return query == "" || strings.Contains(strings.ToLower(r.Name), query)
	})

	total := len(all)
	if offset >= total {
		return []storage.Recipe{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *recipesStorage) Get(ctx context.Context, id uuid.UUID) (*storage.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := cloneRecipe(r)
	return &copied, nil
}

func (s *recipesStorage) Upsert(ctx context.Context, recipes []storage.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, r := range recipes {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		s.recipes[r.ID] = cloneRecipe(r)
	}
	return nil
}

func (s *recipesStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.recipes), nil
}
