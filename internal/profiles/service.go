package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/fdg312/meal-engine/internal/userctx"
	"github.com/google/uuid"
)

const (
	TypeOwner = "owner"
	TypeGuest = "guest"

	defaultOwnerName = "Я"
	maxNameLength    = 100
)

var (
	ErrInvalidType       = errors.New("invalid profile type")
	ErrEmptyName         = errors.New("name cannot be empty")
	ErrNameTooLong       = errors.New("name is too long")
	ErrCannotDeleteOwner = errors.New("cannot delete owner profile")
	ErrNotFound          = errors.New("profile not found")
)

// Service управляет профилями: у каждого пользователя один owner и сколько угодно guest.
// Биометрия, цели и планы питания привязаны к профилю.
type Service struct {
	storage storage.Storage
}

func NewService(st storage.Storage) *Service {
	return &Service{storage: st}
}

// ListProfiles возвращает профили текущего пользователя, owner создаётся лениво.
func (s *Service) ListProfiles(ctx context.Context) ([]ProfileDTO, error) {
	userID := currentUserID(ctx)

	all, err := s.storage.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	owned := make([]ProfileDTO, 0, 1)
	hasOwner := false
	for _, p := range all {
		if p.OwnerUserID != userID {
			continue
		}
		hasOwner = hasOwner || p.Type == TypeOwner
		owned = append(owned, toDTO(p))
	}
	if hasOwner {
		return owned, nil
	}

	owner := &storage.Profile{OwnerUserID: userID, Type: TypeOwner, Name: defaultOwnerName}
	if err := s.storage.CreateProfile(ctx, owner); err != nil {
		return nil, fmt.Errorf("create owner profile: %w", err)
	}
	return append([]ProfileDTO{toDTO(*owner)}, owned...), nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*profile)
	return &dto, nil
}

// CreateProfile создаёт guest профиль; owner заводится только системой.
func (s *Service) CreateProfile(ctx context.Context, req CreateProfileRequest) (*ProfileDTO, error) {
	if req.Type != TypeGuest {
		return nil, ErrInvalidType
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	profile := &storage.Profile{
		OwnerUserID: currentUserID(ctx),
		Type:        TypeGuest,
		Name:        name,
	}
	if err := s.storage.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	dto := toDTO(*profile)
	return &dto, nil
}

// UpdateProfile меняет только имя.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*ProfileDTO, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	profile, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.Name = name

	if err := s.storage.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	dto := toDTO(*profile)
	return &dto, nil
}

func (s *Service) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	profile, err := s.loadOwned(ctx, id)
	if err != nil {
		return err
	}
	if profile.Type == TypeOwner {
		return ErrCannotDeleteOwner
	}

	if err := s.storage.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// loadOwned скрывает чужие профили за ErrNotFound.
func (s *Service) loadOwned(ctx context.Context, id uuid.UUID) (*storage.Profile, error) {
	profile, err := s.storage.GetProfile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.OwnerUserID != currentUserID(ctx) {
		return nil, ErrNotFound
	}
	return profile, nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func toDTO(p storage.Profile) ProfileDTO {
	return ProfileDTO{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		Type:        p.Type,
		Name:        p.Name,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func currentUserID(ctx context.Context) string {
	if userID, ok := userctx.GetUserID(ctx); ok && strings.TrimSpace(userID) != "" {
		return userID
	}
	return "default"
}
