package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/meal-engine/internal/config"
	"github.com/fdg312/meal-engine/internal/storage/memory"
	"github.com/fdg312/meal-engine/internal/userctx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testConfig() *config.Config {
	return &config.Config{
		AuthMode:      config.AuthModeDev,
		AuthEnabled:   true,
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "meal-engine-test",
		JWTTTLMinutes: 60,
	}
}

func setupTestService() *Service {
	return NewService(testConfig(), memory.New())
}

func TestHandleDevAuth(t *testing.T) {
	service := setupTestService()
	handler := NewHandlers(service)

	t.Run("EmptyBodyUsesDevUser", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}

		var resp DevAuthResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.AccessToken == "" {
			t.Error("expected access_token not empty")
		}
		if resp.TokenType != "Bearer" {
			t.Errorf("expected token_type Bearer, got %q", resp.TokenType)
		}
		if resp.ExpiresIn != int64(time.Hour.Seconds()) {
			t.Errorf("expected expires_in 3600, got %d", resp.ExpiresIn)
		}
		if resp.OwnerUserID != DefaultDevUserID {
			t.Errorf("expected owner_user_id %q, got %q", DefaultDevUserID, resp.OwnerUserID)
		}
		if resp.OwnerProfileID == uuid.Nil {
			t.Error("expected owner_profile_id not nil")
		}
	})

	t.Run("ExplicitUserID", func(t *testing.T) {
		body, _ := json.Marshal(DevAuthRequest{UserID: "alice"})
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var resp DevAuthResponse
		json.NewDecoder(w.Body).Decode(&resp)

		sub, err := service.VerifyJWT(resp.AccessToken)
		if err != nil {
			t.Fatalf("issued token does not verify: %v", err)
		}
		if sub != "alice" {
			t.Errorf("expected sub alice, got %q", sub)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", strings.NewReader("{"))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("UserIDTooLong", func(t *testing.T) {
		body, _ := json.Marshal(DevAuthRequest{UserID: strings.Repeat("x", 200)})
		req := httptest.NewRequest("POST", "/v1/auth/dev", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleDevAuth(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestMiddlewareAuth(t *testing.T) {
	service := setupTestService()
	cfg := testConfig()
	cfg.AuthRequired = true

	middleware := NewMiddleware(cfg, service)

	t.Run("ValidToken", func(t *testing.T) {
		token, err := service.generateJWT("test_user_123", time.Hour)
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest("GET", "/v1/profiles", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var calledNext bool
		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledNext = true
			userID, ok := userctx.GetUserID(r.Context())
			if !ok || userID != "test_user_123" {
				t.Errorf("expected user id in context, got %q", userID)
			}
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if !calledNext {
			t.Error("expected next handler to be called")
		}
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/profiles", nil)
		w := httptest.NewRecorder()

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not call next handler")
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("WrongScheme", func(t *testing.T) {
		token, _ := service.generateJWT("test_user_123", time.Hour)
		req := httptest.NewRequest("GET", "/v1/profiles", nil)
		req.Header.Set("Authorization", "Token "+token)
		w := httptest.NewRecorder()

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not call next handler")
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}
	})

	t.Run("HealthzIsPublic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})
}

func TestMiddlewareAuthNotRequired(t *testing.T) {
	service := setupTestService()
	cfg := &config.Config{AuthMode: config.AuthModeNone}

	middleware := NewMiddleware(cfg, service)

	req := httptest.NewRequest("GET", "/v1/profiles", nil)
	w := httptest.NewRecorder()

	var calledNext bool
	handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledNext = true
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(w, req)

	if !calledNext {
		t.Error("expected next handler to be called when auth is not required")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	service := setupTestService()
	middleware := NewMiddleware(testConfig(), service)

	t.Run("NoTokenPasses", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/profiles", nil)
		w := httptest.NewRecorder()

		var called bool
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			if _, ok := userctx.GetUserID(r.Context()); ok {
				t.Error("expected no user id without token")
			}
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected passthrough with 200, got called=%v status=%d", called, w.Code)
		}
	})

	t.Run("ValidTokenAddsContext", func(t *testing.T) {
		token, err := service.generateJWT("test_user_123", time.Hour)
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest("GET", "/v1/profiles", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var gotSub string
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSub, _ = userctx.GetUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if gotSub != "test_user_123" {
			t.Fatalf("expected sub in context, got %q", gotSub)
		}
	})

	t.Run("InvalidTokenRejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/profiles", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not call next handler")
		}))

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("DevAuthPathAlwaysAccessible", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/auth/dev", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		var called bool
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(w, req)

		if !called || w.Code != http.StatusOK {
			t.Fatalf("expected /v1/auth/dev passthrough, called=%v status=%d", called, w.Code)
		}
	})
}

func TestVerifyJWT(t *testing.T) {
	service := setupTestService()

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := service.generateJWT("test_user_123", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		sub, err := service.VerifyJWT(token)
		if err != nil {
			t.Fatal(err)
		}
		if sub != "test_user_123" {
			t.Errorf("expected sub 'test_user_123', got '%s'", sub)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := service.generateJWT("test_user_123", -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(token); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
		}
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "test_user_123",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig().JWTSecret))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(token); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken for foreign issuer, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewService(&config.Config{JWTSecret: "other", JWTIssuer: "meal-engine-test"}, memory.New())
		token, err := other.generateJWT("test_user_123", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := service.VerifyJWT(token); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken for foreign secret, got %v", err)
		}
	})
}

func TestFindOrCreateOwnerProfile(t *testing.T) {
	service := setupTestService()
	ctx := context.Background()

	t.Run("CreateNewOwner", func(t *testing.T) {
		profile, err := service.findOrCreateOwnerProfile(ctx, "new_user_456")
		if err != nil {
			t.Fatal(err)
		}
		if profile.Type != "owner" {
			t.Errorf("expected type 'owner', got '%s'", profile.Type)
		}
		if profile.OwnerUserID != "new_user_456" {
			t.Error("expected owner_user_id set correctly")
		}
	})

	t.Run("FindExistingOwner", func(t *testing.T) {
		profile1, err := service.findOrCreateOwnerProfile(ctx, "existing_user_789")
		if err != nil {
			t.Fatal(err)
		}
		profile2, err := service.findOrCreateOwnerProfile(ctx, "existing_user_789")
		if err != nil {
			t.Fatal(err)
		}
		if profile1.ID != profile2.ID {
			t.Error("expected same profile ID for existing user")
		}
	})
}
