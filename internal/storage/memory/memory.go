package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// ErrNotFound оставлен как алиас общей ошибки, чтобы errors.Is работал одинаково для обоих бэкендов
var ErrNotFound = storage.ErrNotFound

// MemoryStorage - in-memory реализация всех хранилищ
type MemoryStorage struct {
	mu               sync.RWMutex
	profiles         map[uuid.UUID]storage.Profile
	biometrics       *biometricsStorage
	nutritionTargets *nutritionTargetsStorage
	recipes          *recipesStorage
	plannedMeals     *plannedMealsStorage
	reports          *ReportsMemoryStorage
}

// New создаёт новый MemoryStorage с owner профилем по умолчанию
func New() *MemoryStorage {
	ownerID := uuid.New()
	now := time.Now()
	owner := storage.Profile{
		ID:          ownerID,
		OwnerUserID: "default",
		Type:        "owner",
		Name:        "Я",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return &MemoryStorage{
		profiles: map[uuid.UUID]storage.Profile{
			ownerID: owner,
		},
		biometrics:       newBiometricsStorage(),
		nutritionTargets: newNutritionTargetsStorage(),
		recipes:          newRecipesStorage(),
		plannedMeals:     newPlannedMealsStorage(),
		reports:          NewReportsMemoryStorage(),
	}
}

func (m *MemoryStorage) ListProfiles(ctx context.Context) ([]storage.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := make([]storage.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func (m *MemoryStorage) GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &p, nil
}

func (m *MemoryStorage) CreateProfile(ctx context.Context, profile *storage.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt

	m.profiles[profile.ID] = *profile

	return nil
}

func (m *MemoryStorage) UpdateProfile(ctx context.Context, profile *storage.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.profiles[profile.ID]
	if !ok {
		return ErrNotFound
	}

	profile.CreatedAt = existing.CreatedAt
	profile.UpdatedAt = time.Now()
	m.profiles[profile.ID] = *profile

	return nil
}

func (m *MemoryStorage) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[id]; !ok {
		return ErrNotFound
	}

	delete(m.profiles, id)

	return nil
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}

// GetBiometricsStorage returns biometrics storage
func (m *MemoryStorage) GetBiometricsStorage() storage.BiometricsStorage {
	return m.biometrics
}

// GetNutritionTargetsStorage returns nutrition targets storage
func (m *MemoryStorage) GetNutritionTargetsStorage() storage.NutritionTargetsStorage {
	return m.nutritionTargets
}

// GetRecipesStorage returns the recipe catalog
func (m *MemoryStorage) GetRecipesStorage() storage.RecipesStorage {
	return m.recipes
}

// GetPlannedMealsStorage returns planned meals storage
func (m *MemoryStorage) GetPlannedMealsStorage() storage.PlannedMealsStorage {
	return m.plannedMeals
}

// GetReportsStorage returns the reports storage
func (m *MemoryStorage) GetReportsStorage() *ReportsMemoryStorage {
	return m.reports
}
