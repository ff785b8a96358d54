package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

type biometricsStorage struct {
	mu   sync.RWMutex
	rows map[string]storage.Biometrics // key: "ownerUserID:profileID"
}

func newBiometricsStorage() *biometricsStorage {
	return &biometricsStorage{rows: make(map[string]storage.Biometrics)}
}

func biometricsKey(ownerUserID string, profileID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", ownerUserID, profileID.String())
}

func (s *biometricsStorage) Get(ctx context.Context, ownerUserID string, profileID uuid.UUID) (*storage.Biometrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.rows[biometricsKey(ownerUserID, profileID)]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *biometricsStorage) Upsert(ctx context.Context, b storage.Biometrics) (*storage.Biometrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := biometricsKey(b.OwnerUserID, b.ProfileID)
	now := time.Now().UTC()

	b.CreatedAt = now
	if existing, ok := s.rows[key]; ok {
		b.CreatedAt = existing.CreatedAt
	}
	b.UpdatedAt = now
	s.rows[key] = b

	return &b, nil
}
