package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdg312/meal-engine/internal/config"
)

func serve(handler http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_SecondRequestReturns429(t *testing.T) {
	cfg := &config.Config{RateLimitRPS: 1, RateLimitBurst: 1}
	handler := RateLimitMiddleware(cfg, okHandler())

	if rr := serve(handler, "/v1/profiles", "1.2.3.4:12345"); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	rr := serve(handler, "/v1/profiles", "1.2.3.4:12345")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After header")
	}

	var body map[string]map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"]["code"] != "rate_limited" {
		t.Errorf("expected code=rate_limited, got %v", body["error"])
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{}, okHandler())

	for i := 0; i < 10; i++ {
		if rr := serve(handler, "/", "1.2.3.4:12345"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, okHandler())

	if rr := serve(handler, "/", "1.2.3.4:1"); rr.Code != http.StatusOK {
		t.Fatalf("IP1 first request: expected 200, got %d", rr.Code)
	}
	if rr := serve(handler, "/", "5.6.7.8:1"); rr.Code != http.StatusOK {
		t.Fatalf("IP2 first request: expected 200, got %d", rr.Code)
	}
}

func TestRateLimit_HealthzExempt(t *testing.T) {
	handler := RateLimitMiddleware(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, okHandler())

	for i := 0; i < 5; i++ {
		if rr := serve(handler, "/healthz", "1.2.3.4:1"); rr.Code != http.StatusOK {
			t.Fatalf("healthz request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name, xff, remote, want string
	}{
		{"remote addr", "", "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "10.0.0.1:5555", "203.0.113.7"},
		{"single forwarded", "198.51.100.2", "10.0.0.1:5555", "198.51.100.2"},
		{"malformed remote", "", "not-an-addr", "not-an-addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractIP(req); got != tt.want {
				t.Errorf("extractIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterStore_SweepsIdleClients(t *testing.T) {
	store := newRateLimiterStore(1, 1)
	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.allow("a")
	store.allow("b")
	if len(store.limiters) != 2 {
		t.Fatalf("expected 2 limiters, got %d", len(store.limiters))
	}

	now = now.Add(idleLimiterTTL + time.Minute)
	store.allow("c")

	if len(store.limiters) != 1 {
		t.Fatalf("expected idle clients to be swept, got %d limiters", len(store.limiters))
	}
	if _, ok := store.limiters["c"]; !ok {
		t.Errorf("expected the active client to remain")
	}
}
