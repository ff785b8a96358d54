package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-engine/internal/config"
)

func TestCORS_Preflight(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantOrigin  string
		wantMethods string
	}{
		{"allowed", []string{"https://app.example.com"}, "https://app.example.com", "https://app.example.com", corsAllowMethods},
		{"trailing slash in config", []string{"https://app.example.com/"}, "https://app.example.com", "https://app.example.com", corsAllowMethods},
		{"wildcard", []string{"*"}, "https://any.example.org", "https://any.example.org", corsAllowMethods},
		{"disallowed", []string{"https://app.example.com"}, "https://evil.com", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{CORSAllowedOrigins: tt.origins}
			handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called for preflight")
			}))

			req := httptest.NewRequest(http.MethodOptions, "/v1/meal/plan/generate", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusNoContent {
				t.Errorf("expected 204, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); got != tt.wantMethods {
				t.Errorf("Allow-Methods = %q, want %q", got, tt.wantMethods)
			}
		})
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins: []string{"https://app.example.com"},
	}

	innerCalled := false
	handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	req.Header.Set("Origin", "https://evil.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if !innerCalled {
		t.Error("expected inner handler to be called for non-OPTIONS request")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no Allow-Origin header, got %q", got)
	}
}

func TestCORS_Credentials(t *testing.T) {
	tests := []struct {
		name     string
		origins  []string
		wantCred string
	}{
		{"explicit origin", []string{"https://app.example.com"}, "true"},
		{"wildcard never sends credentials", []string{"*"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				CORSAllowedOrigins:   tt.origins,
				CORSAllowCredentials: true,
			}
			handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
			req.Header.Set("Origin", "https://app.example.com")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCred {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCred)
			}
			if got := rr.Header().Get("Access-Control-Expose-Headers"); got != corsExposeHeaders {
				t.Errorf("Expose-Headers = %q", got)
			}
		})
	}
}

func TestCORS_NoOriginHeader(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins: []string{"https://app.example.com"},
	}

	innerCalled := false
	handler := CORSMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if !innerCalled {
		t.Error("expected inner handler to be called")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no Allow-Origin header, got %q", got)
	}
}
