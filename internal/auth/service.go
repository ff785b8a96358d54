package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fdg312/meal-engine/internal/config"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultDevUserID = "dev-user"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidUserID = errors.New("invalid user id")
)

// ProfileStorage is the subset of storage.Storage needed to provision owners.
type ProfileStorage interface {
	ListProfiles(ctx context.Context) ([]storage.Profile, error)
	CreateProfile(ctx context.Context, profile *storage.Profile) error
}

// Service - сервис авторизации
type Service struct {
	config  *config.Config
	storage ProfileStorage
}

func NewService(cfg *config.Config, storage ProfileStorage) *Service {
	return &Service{config: cfg, storage: storage}
}

// SignInDev выдаёт JWT для userID (по умолчанию dev-user) и создаёт owner профиль
func (s *Service) SignInDev(ctx context.Context, userID string) (*DevAuthResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = DefaultDevUserID
	}
	if len(userID) > 128 {
		return nil, ErrInvalidUserID
	}

	profile, err := s.findOrCreateOwnerProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create owner profile: %w", err)
	}

	ttl := time.Duration(s.config.JWTTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	accessToken, err := s.generateJWT(userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dev JWT: %w", err)
	}

	log.Printf("INFO auth: dev sign-in user=%s profile=%s", userID, profile.ID)
	return &DevAuthResponse{
		AccessToken:    accessToken,
		TokenType:      "Bearer",
		ExpiresIn:      int64(ttl.Seconds()),
		OwnerUserID:    userID,
		OwnerProfileID: profile.ID,
	}, nil
}

// findOrCreateOwnerProfile - найти или создать owner профиль
func (s *Service) findOrCreateOwnerProfile(ctx context.Context, ownerUserID string) (*storage.Profile, error) {
	profiles, err := s.storage.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if p.Type == "owner" && p.OwnerUserID == ownerUserID {
			return &p, nil
		}
	}

	now := time.Now().UTC()
	profile := &storage.Profile{
		ID:          uuid.New(),
		Type:        "owner",
		Name:        "Я",
		OwnerUserID: ownerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storage.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *Service) generateJWT(ownerUserID string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   ownerUserID,
		Issuer:    s.config.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyJWT проверяет подпись, срок и issuer, возвращает sub
func (s *Service) VerifyJWT(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(s.config.JWTIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
