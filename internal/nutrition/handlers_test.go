package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-engine/internal/storage/memory"
	"github.com/fdg312/meal-engine/internal/userctx"
	"github.com/google/uuid"
)

func setupHandler(t *testing.T) (*Handler, uuid.UUID) {
	t.Helper()
	store := memory.New()
	profiles, err := store.ListProfiles(context.Background())
	if err != nil || len(profiles) != 1 {
		t.Fatalf("expected the default owner profile, got %v (%v)", profiles, err)
	}
	service := NewService(store, store.GetBiometricsStorage(), store.GetNutritionTargetsStorage())
	return NewHandler(service), profiles[0].ID
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return resp.Error.Code
}

var maintenanceMale = BiometricProfile{
	Gender:        GenderMale,
	Age:           30,
	WeightKg:      80,
	HeightCm:      180,
	ActivityLevel: ActivityModerate,
	Goal:          GoalWeightMaintenance,
}

func TestHandleGetTargets_Defaults(t *testing.T) {
	handler, profileID := setupHandler(t)

	w := doJSON(t, handler.HandleGetTargets, http.MethodGet, "/v1/nutrition/targets?profile_id="+profileID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp GetTargetsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.IsDefault || resp.Targets.CaloriesKcal != 2200 {
		t.Errorf("expected defaults, got %+v", resp)
	}
}

func TestHandleGetTargets_InvalidProfileID(t *testing.T) {
	handler, _ := setupHandler(t)

	w := doJSON(t, handler.HandleGetTargets, http.MethodGet, "/v1/nutrition/targets?profile_id=nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHandleGetTargets_UnknownProfile(t *testing.T) {
	handler, _ := setupHandler(t)

	w := doJSON(t, handler.HandleGetTargets, http.MethodGet, "/v1/nutrition/targets?profile_id="+uuid.New().String(), nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "profile_not_found" {
		t.Fatalf("expected profile_not_found, got %d", w.Code)
	}
}

func TestHandleUpsertTargets_Manual(t *testing.T) {
	handler, profileID := setupHandler(t)

	w := doJSON(t, handler.HandleUpsertTargets, http.MethodPut, "/v1/nutrition/targets", UpsertTargetsRequest{
		ProfileID:    profileID,
		CaloriesKcal: 1900,
		ProteinG:     140,
		FatG:         60,
		CarbsG:       200,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp TargetsDTO
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Source != SourceManual || resp.CaloriesKcal != 1900 {
		t.Errorf("unexpected targets %+v", resp)
	}

	w = doJSON(t, handler.HandleUpsertTargets, http.MethodPut, "/v1/nutrition/targets", UpsertTargetsRequest{
		ProfileID:    profileID,
		CaloriesKcal: 100,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for out of range calories, got %d", w.Code)
	}
}

func TestHandleBiometricsRoundTrip(t *testing.T) {
	handler, profileID := setupHandler(t)

	w := doJSON(t, handler.HandleGetBiometrics, http.MethodGet, "/v1/nutrition/biometrics?profile_id="+profileID.String(), nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "biometrics_not_found" {
		t.Fatalf("expected biometrics_not_found, got %d", w.Code)
	}

	w = doJSON(t, handler.HandleUpsertBiometrics, http.MethodPut, "/v1/nutrition/biometrics", UpsertBiometricsRequest{
		ProfileID:        profileID,
		BiometricProfile: maintenanceMale,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, handler.HandleGetBiometrics, http.MethodGet, "/v1/nutrition/biometrics?profile_id="+profileID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got BiometricsDTO
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.WeightKg != 80 || got.MacroRatio != RatioHighFat {
		t.Errorf("unexpected biometrics %+v", got)
	}
}

func TestHandleUpsertBiometrics_Invalid(t *testing.T) {
	handler, profileID := setupHandler(t)

	bad := maintenanceMale
	bad.ActivityLevel = "couch"
	w := doJSON(t, handler.HandleUpsertBiometrics, http.MethodPut, "/v1/nutrition/biometrics", UpsertBiometricsRequest{
		ProfileID:        profileID,
		BiometricProfile: bad,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHandleComputeTargets_SavesComputed(t *testing.T) {
	handler, profileID := setupHandler(t)

	input := maintenanceMale
	w := doJSON(t, handler.HandleComputeTargets, http.MethodPost, "/v1/nutrition/targets/compute", ComputeTargetsRequest{
		ProfileID:  profileID,
		Biometrics: &input,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ComputeTargetsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Saved || resp.BMR != 1780 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Targets.CaloriesKcal != 2759 || resp.Targets.Source != SourceComputed {
		t.Errorf("unexpected targets %+v", resp.Targets)
	}

	// stored biometrics are reused when the body carries none
	w = doJSON(t, handler.HandleComputeTargets, http.MethodPost, "/v1/nutrition/targets/compute", ComputeTargetsRequest{
		ProfileID: profileID,
		DryRun:    true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = doJSON(t, handler.HandleGetTargets, http.MethodGet, "/v1/nutrition/targets?profile_id="+profileID.String(), nil)
	var stored GetTargetsResponse
	json.NewDecoder(w.Body).Decode(&stored)
	if stored.IsDefault || stored.Targets.CaloriesKcal != 2759 {
		t.Errorf("computed targets were not stored: %+v", stored)
	}
}

func TestHandleComputeTargets_BelowMinimum(t *testing.T) {
	handler, profileID := setupHandler(t)

	input := BiometricProfile{
		Gender:               GenderFemale,
		Age:                  40,
		WeightKg:             45,
		HeightCm:             150,
		ActivityLevel:        ActivityVeryLow,
		Goal:                 GoalWeightLoss,
		WeightLossRateKgWeek: 1.0,
	}
	w := doJSON(t, handler.HandleComputeTargets, http.MethodPost, "/v1/nutrition/targets/compute", ComputeTargetsRequest{
		ProfileID:  profileID,
		Biometrics: &input,
	})
	if w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != "below_minimum_calories" {
		t.Fatalf("expected 422 below_minimum_calories, got %d", w.Code)
	}

	w = doJSON(t, handler.HandleGetTargets, http.MethodGet, "/v1/nutrition/targets?profile_id="+profileID.String(), nil)
	var stored GetTargetsResponse
	json.NewDecoder(w.Body).Decode(&stored)
	if !stored.IsDefault {
		t.Errorf("nothing should be stored after a rejected computation")
	}
}

func TestHandleComputeTargets_WithoutBiometrics(t *testing.T) {
	handler, profileID := setupHandler(t)

	w := doJSON(t, handler.HandleComputeTargets, http.MethodPost, "/v1/nutrition/targets/compute", ComputeTargetsRequest{ProfileID: profileID})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestService_ForeignOwnerIsHidden(t *testing.T) {
	store := memory.New()
	profiles, _ := store.ListProfiles(context.Background())
	service := NewService(store, store.GetBiometricsStorage(), store.GetNutritionTargetsStorage())

	ctx := userctx.WithUserID(context.Background(), "someone-else")
	if _, _, err := service.GetOrDefault(ctx, profiles[0].ID); err != ErrProfileNotFound {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
