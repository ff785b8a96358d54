package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

type plannedMealsStorage struct {
	mu    sync.RWMutex
	meals map[uuid.UUID]storage.PlannedMeal
}

func newPlannedMealsStorage() *plannedMealsStorage {
	return &plannedMealsStorage{meals: make(map[uuid.UUID]storage.PlannedMeal)}
}

func clonePlannedMeal(m storage.PlannedMeal) storage.PlannedMeal {
	if m.Overrides != nil {
		m.Overrides = append([]storage.IngredientOverride(nil), m.Overrides...)
	}
	return m
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func (s *plannedMealsStorage) ReplaceRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time, meals []storage.PlannedMeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.meals {
		if m.OwnerUserID == ownerUserID && m.ProfileID == profileID && inRange(m.MealDate, from, to) {
			delete(s.meals, id)
		}
	}

	now := time.Now().UTC()
	for _, m := range meals {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.OwnerUserID = ownerUserID
		m.ProfileID = profileID
		m.CreatedAt = now
		m.UpdatedAt = now
		s.meals[m.ID] = clonePlannedMeal(m)
	}
	return nil
}

func (s *plannedMealsStorage) CountInRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.meals {
		if m.OwnerUserID == ownerUserID && m.ProfileID == profileID && inRange(m.MealDate, from, to) {
			count++
		}
	}
	return count, nil
}

func (s *plannedMealsStorage) ListDates(ctx context.Context, ownerUserID string, profileID uuid.UUID, dates []time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	have := make(map[time.Time]bool)
	for _, m := range s.meals {
		if m.OwnerUserID == ownerUserID && m.ProfileID == profileID {
			have[m.MealDate] = true
		}
	}

	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if have[d] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *plannedMealsStorage) List(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) ([]storage.PlannedMeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.PlannedMeal, 0)
	for _, m := range s.meals {
		if m.OwnerUserID == ownerUserID && m.ProfileID == profileID && inRange(m.MealDate, from, to) {
			out = append(out, clonePlannedMeal(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MealDate.Equal(out[j].MealDate) {
			return out[i].MealDate.Before(out[j].MealDate)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *plannedMealsStorage) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.PlannedMeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meals[id]
	if !ok || m.OwnerUserID != ownerUserID {
		return nil, storage.ErrNotFound
	}
	copied := clonePlannedMeal(m)
	return &copied, nil
}

func (s *plannedMealsStorage) UpdateOverrides(ctx context.Context, ownerUserID string, id uuid.UUID, overrides []storage.IngredientOverride) (*storage.PlannedMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meals[id]
	if !ok || m.OwnerUserID != ownerUserID {
		return nil, storage.ErrNotFound
	}
	m.Overrides = nil
	if len(overrides) > 0 {
		m.Overrides = append([]storage.IngredientOverride(nil), overrides...)
	}
	m.UpdatedAt = time.Now().UTC()
	s.meals[id] = m

	copied := clonePlannedMeal(m)
	return &copied, nil
}

func (s *plannedMealsStorage) DeleteRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, m := range s.meals {
		if m.OwnerUserID == ownerUserID && m.ProfileID == profileID && inRange(m.MealDate, from, to) {
			delete(s.meals, id)
			deleted++
		}
	}
	return deleted, nil
}
