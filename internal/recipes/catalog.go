package recipes

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fdg312/meal-engine/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Source is what PrefetchCatalog reads from.
type Source interface {
	ListByMealType(ctx context.Context, mealType string) ([]storage.Recipe, error)
}

// PrefetchCatalog loads each meal type once and filters calorie bands in memory.
// One instance serves a single plan generation; it never sees catalog updates.
type PrefetchCatalog struct {
	source Source

	mu     sync.RWMutex
	byType map[string][]storage.Recipe
}

func NewPrefetchCatalog(source Source) *PrefetchCatalog {
	return &PrefetchCatalog{
		source: source,
		byType: make(map[string][]storage.Recipe),
	}
}

// Prefetch loads the given meal types concurrently.
func (c *PrefetchCatalog) Prefetch(ctx context.Context, mealTypes []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, mt := range dedupe(mealTypes) {
		mt := mt
		c.mu.RLock()
		_, loaded := c.byType[mt]
		c.mu.RUnlock()
		if loaded {
			continue
		}

		g.Go(func() error {
			recipes, err := c.source.ListByMealType(ctx, mt)
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", mt, err)
			}
			sort.SliceStable(recipes, func(i, j int) bool {
				return recipes[i].TotalCalories < recipes[j].TotalCalories
			})

			c.mu.Lock()
			c.byType[mt] = recipes
			c.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// FetchCandidates returns recipes of mealType within [minCalories, maxCalories].
// A meal type that was not prefetched is loaded on first use.
func (c *PrefetchCatalog) FetchCandidates(ctx context.Context, mealType string, minCalories, maxCalories int) ([]storage.Recipe, error) {
	c.mu.RLock()
	all, ok := c.byType[mealType]
	c.mu.RUnlock()

	if !ok {
		if err := c.Prefetch(ctx, []string{mealType}); err != nil {
			return nil, err
		}
		c.mu.RLock()
		all = c.byType[mealType]
		c.mu.RUnlock()
	}

	// all отсортирован по калориям
	lo := sort.Search(len(all), func(i int) bool { return all[i].TotalCalories >= minCalories })
	hi := sort.Search(len(all), func(i int) bool { return all[i].TotalCalories > maxCalories })
	if lo >= hi {
		return []storage.Recipe{}, nil
	}

	out := make([]storage.Recipe, hi-lo)
	copy(out, all[lo:hi])
	return out, nil
}
