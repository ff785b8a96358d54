package mealplans

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// DefaultTolerance is the ±fraction around a slot's calorie target.
const DefaultTolerance = 0.15

// Catalog is the recipe source consulted for every slot.
type Catalog interface {
	FetchCandidates(ctx context.Context, mealType string, minCalories, maxCalories int) ([]storage.Recipe, error)
}

// NoCandidateRecipeError is returned when the calorie band has no recipes at all.
type NoCandidateRecipeError struct {
	MealType    string
	MinCalories int
	MaxCalories int
}

func (e *NoCandidateRecipeError) Error() string {
	return fmt.Sprintf("no %s recipe between %d and %d kcal", e.MealType, e.MinCalories, e.MaxCalories)
}

// Selector picks one recipe per slot.
type Selector struct {
	catalog Catalog

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// NewSelector uses rng for the pick; nil means a time-seeded source.
func NewSelector(catalog Catalog, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Selector{catalog: catalog, rng: rng}
}

// CalorieBand returns the integer catalog bounds for target ± tolerance.
func CalorieBand(target, tolerance float64) (int, int) {
	return int(math.Floor(target * (1 - tolerance))), int(math.Ceil(target * (1 + tolerance)))
}

// Select returns a random recipe for mealType within the band, preferring
// ids that are not in used. used is only read.
func (s *Selector) Select(ctx context.Context, mealType string, calorieTarget, tolerance float64, used map[uuid.UUID]struct{}) (storage.Recipe, error) {
	minKcal, maxKcal := CalorieBand(calorieTarget, tolerance)

	candidates, err := s.catalog.FetchCandidates(ctx, SearchMealType(mealType), minKcal, maxKcal)
	if err != nil {
		return storage.Recipe{}, fmt.Errorf("fetch %s candidates: %w", mealType, err)
	}
	if len(candidates) == 0 {
		return storage.Recipe{}, &NoCandidateRecipeError{MealType: mealType, MinCalories: minKcal, MaxCalories: maxKcal}
	}

	fresh := make([]storage.Recipe, 0, len(candidates))
	for _, r := range candidates {
		if _, seen := used[r.ID]; !seen {
			fresh = append(fresh, r)
		}
	}
	// Variety is best effort.
	if len(fresh) == 0 {
		fresh = candidates
	}

	s.mu.Lock()
	idx := s.rng.Intn(len(fresh))
	s.mu.Unlock()

	return fresh[idx], nil
}
