package mealplans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/recipes"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/fdg312/meal-engine/internal/userctx"
	"github.com/google/uuid"
)

// maxRangeDays bounds read and delete ranges.
const maxRangeDays = 62

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrMealNotFound    = errors.New("planned meal not found")
	ErrTargetsNotSet   = errors.New("nutrition targets are not set")
	ErrPlanExists      = errors.New("plan already exists")
	ErrInvalidRequest  = errors.New("invalid request")
)

// PlanExistsError is returned by Generate when the week already has meals
// and replace was not requested.
type PlanExistsError struct {
	Existing    int
	MissingDays []time.Time
}

func (e *PlanExistsError) Error() string {
	return fmt.Sprintf("plan already exists: %d meals planned, %d days missing", e.Existing, len(e.MissingDays))
}

func (e *PlanExistsError) Unwrap() error { return ErrPlanExists }

// ProfileStorage is the subset of storage.Storage the service needs.
type ProfileStorage interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error)
}

// TargetsSource returns saved targets; ok is false when none are saved.
type TargetsSource interface {
	GetTargets(ctx context.Context, profileID uuid.UUID) (nutrition.TargetsDTO, bool, error)
}

// Options tune plan generation.
type Options struct {
	Tolerance float64
	// Seed makes every generation deterministic when non-zero.
	Seed            int64
	Prefetch        bool
	DefaultPlanType string
}

// Service orchestrates weekly plan generation and plan reads.
type Service struct {
	profiles ProfileStorage
	targets  TargetsSource
	recipes  storage.RecipesStorage
	plans    storage.PlannedMealsStorage
	opts     Options
	now      func() time.Time
}

func NewService(profiles ProfileStorage, targets TargetsSource, recipeStore storage.RecipesStorage, plans storage.PlannedMealsStorage, opts Options) *Service {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.DefaultPlanType == "" {
		opts.DefaultPlanType = PlanThreeMain
	}
	return &Service{
		profiles: profiles,
		targets:  targets,
		recipes:  recipeStore,
		plans:    plans,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *Service) ensureProfileAccess(ctx context.Context, profileID uuid.UUID) (*storage.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil || profile == nil {
		return nil, ErrProfileNotFound
	}

	if userID, ok := userctx.GetUserID(ctx); ok && strings.TrimSpace(userID) != "" && profile.OwnerUserID != userID {
		return nil, ErrProfileNotFound
	}

	return profile, nil
}

func userIDFromContext(ctx context.Context) string {
	if userID, ok := userctx.GetUserID(ctx); ok && strings.TrimSpace(userID) != "" {
		return userID
	}
	return "default"
}

func (s *Service) today() time.Time {
	return DateOnly(s.now().UTC())
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidRequest, value)
	}
	return d, nil
}

// parseRange defaults to the week starting today.
func (s *Service) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := parseDate(fromStr, s.today())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(toStr, from.AddDate(0, 0, DaysPerWeek-1))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from must not be after to", ErrInvalidRequest)
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range cannot exceed %d days", ErrInvalidRequest, maxRangeDays)
	}
	return from, to, nil
}

// newGenerator builds a generator with its own random source and catalog view.
func (s *Service) newGenerator(ctx context.Context, cfg PlanConfig) (*Generator, error) {
	seed := s.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var catalog Catalog = s.recipes
	if s.opts.Prefetch {
		prefetch := recipes.NewPrefetchCatalog(s.recipes)
		types := make([]string, 0, len(cfg.Slots))
		for _, slot := range cfg.Slots {
			types = append(types, SearchMealType(slot.MealType))
		}
		if err := prefetch.Prefetch(ctx, types); err != nil {
			return nil, err
		}
		catalog = prefetch
	}

	selector := NewSelector(catalog, rand.New(rand.NewSource(seed)))
	return NewGenerator(NewAssembler(selector, s.opts.Tolerance), s.plans), nil
}

func (s *Service) resolveTargets(ctx context.Context, profileID uuid.UUID, explicit *nutrition.Targets) (nutrition.Targets, error) {
	if explicit != nil {
		if explicit.Calories <= 0 {
			return nutrition.Targets{}, fmt.Errorf("%w: targets.target_calories must be positive", ErrInvalidRequest)
		}
		return *explicit, nil
	}

	saved, ok, err := s.targets.GetTargets(ctx, profileID)
	if err != nil {
		return nutrition.Targets{}, fmt.Errorf("failed to get nutrition targets: %w", err)
	}
	if !ok {
		return nutrition.Targets{}, ErrTargetsNotSet
	}
	return saved.Targets(), nil
}

// Generate builds and stores the week starting at req.StartDate.
func (s *Service) Generate(ctx context.Context, req GeneratePlanRequest) (PlanResponse, error) {
	if req.ProfileID == uuid.Nil {
		return PlanResponse{}, fmt.Errorf("%w: profile_id is required", ErrInvalidRequest)
	}
	start, err := parseDate(req.StartDate, s.today())
	if err != nil {
		return PlanResponse{}, err
	}
	start = DateOnly(start)
	end := start.AddDate(0, 0, DaysPerWeek-1)

	profile, err := s.ensureProfileAccess(ctx, req.ProfileID)
	if err != nil {
		return PlanResponse{}, err
	}

	planType := req.PlanType
	if planType == "" {
		planType = s.opts.DefaultPlanType
	}
	cfg, err := ResolveConfig(planType, req.SelectedMeals)
	if err != nil {
		return PlanResponse{}, err
	}

	targets, err := s.resolveTargets(ctx, profile.ID, req.Targets)
	if err != nil {
		return PlanResponse{}, err
	}

	gen, err := s.newGenerator(ctx, cfg)
	if err != nil {
		log.Printf("ERROR mealplans: catalog prefetch failed profile=%s: %v", profile.ID, err)
		return PlanResponse{}, err
	}

	existing, err := gen.CheckExistingPlan(ctx, profile.OwnerUserID, profile.ID, start, end)
	if err != nil {
		return PlanResponse{}, fmt.Errorf("failed to check existing plan: %w", err)
	}
	if existing > 0 && !req.Replace {
		missing, err := gen.FindMissingDays(ctx, profile.OwnerUserID, profile.ID, WeekDates(start))
		if err != nil {
			return PlanResponse{}, fmt.Errorf("failed to find missing days: %w", err)
		}
		return PlanResponse{}, &PlanExistsError{Existing: existing, MissingDays: missing}
	}

	week, err := gen.GenerateWeek(ctx, WeekRequest{
		OwnerUserID: profile.OwnerUserID,
		ProfileID:   profile.ID,
		Targets:     targets,
		Config:      cfg,
		StartDate:   start,
	})
	if err != nil {
		log.Printf("WARN mealplans: generation failed profile=%s plan=%s: %v", profile.ID, cfg.PlanType, err)
		return PlanResponse{}, err
	}

	if err := s.plans.ReplaceRange(ctx, profile.OwnerUserID, profile.ID, start, end, week.Meals); err != nil {
		return PlanResponse{}, fmt.Errorf("failed to store plan: %w", err)
	}

	adjusted := 0
	for _, m := range week.Meals {
		adjusted += len(m.Overrides)
	}
	log.Printf("INFO mealplans: generated profile=%s plan=%s from=%s meals=%d adjusted=%d replaced=%d",
		profile.ID, cfg.PlanType, start.Format(dateLayout), len(week.Meals), adjusted, existing)

	stored, err := s.plans.List(ctx, profile.OwnerUserID, profile.ID, start, end)
	if err != nil {
		return PlanResponse{}, fmt.Errorf("failed to list plan: %w", err)
	}
	return s.buildPlan(profile.ID, start, end, &targets, stored, week.Recipes), nil
}

// GetPlan returns stored meals in [from, to] grouped by day.
func (s *Service) GetPlan(ctx context.Context, profileID uuid.UUID, fromStr, toStr string) (PlanResponse, error) {
	from, to, err := s.parseRange(fromStr, toStr)
	if err != nil {
		return PlanResponse{}, err
	}

	profile, err := s.ensureProfileAccess(ctx, profileID)
	if err != nil {
		return PlanResponse{}, err
	}

	meals, err := s.plans.List(ctx, profile.OwnerUserID, profile.ID, from, to)
	if err != nil {
		return PlanResponse{}, fmt.Errorf("failed to list plan: %w", err)
	}
	recipesByID, err := s.recipesFor(ctx, meals)
	if err != nil {
		return PlanResponse{}, err
	}

	return s.buildPlan(profile.ID, from, to, s.optionalTargets(ctx, profile.ID), meals, recipesByID), nil
}

// Today returns the meals of a single date.
func (s *Service) Today(ctx context.Context, profileID uuid.UUID, dateStr string) (TodayResponse, error) {
	date, err := parseDate(dateStr, s.today())
	if err != nil {
		return TodayResponse{}, err
	}

	plan, err := s.GetPlan(ctx, profileID, date.Format(dateLayout), date.Format(dateLayout))
	if err != nil {
		return TodayResponse{}, err
	}

	resp := TodayResponse{Date: date.Format(dateLayout), Targets: plan.Targets, Meals: []PlannedMealDTO{}}
	if len(plan.Days) > 0 {
		resp.Meals = plan.Days[0].Meals
		resp.Totals = plan.Days[0].Totals
	}
	return resp, nil
}

// Status reports how much of [from, to] is already planned.
func (s *Service) Status(ctx context.Context, profileID uuid.UUID, fromStr, toStr string) (PlanStatusResponse, error) {
	from, to, err := s.parseRange(fromStr, toStr)
	if err != nil {
		return PlanStatusResponse{}, err
	}

	profile, err := s.ensureProfileAccess(ctx, profileID)
	if err != nil {
		return PlanStatusResponse{}, err
	}

	gen := NewGenerator(nil, s.plans)
	count, err := gen.CheckExistingPlan(ctx, profile.OwnerUserID, profile.ID, from, to)
	if err != nil {
		return PlanStatusResponse{}, fmt.Errorf("failed to count planned meals: %w", err)
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	missing, err := gen.FindMissingDays(ctx, profile.OwnerUserID, profile.ID, dates)
	if err != nil {
		return PlanStatusResponse{}, fmt.Errorf("failed to find missing days: %w", err)
	}

	return PlanStatusResponse{
		From:         from.Format(dateLayout),
		To:           to.Format(dateLayout),
		PlannedMeals: count,
		MissingDays:  formatDates(missing),
		Complete:     len(missing) == 0,
	}, nil
}

// Delete removes planned meals in [from, to].
func (s *Service) Delete(ctx context.Context, profileID uuid.UUID, fromStr, toStr string) (int, error) {
	from, to, err := s.parseRange(fromStr, toStr)
	if err != nil {
		return 0, err
	}

	profile, err := s.ensureProfileAccess(ctx, profileID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.plans.DeleteRange(ctx, profile.OwnerUserID, profile.ID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete plan: %w", err)
	}
	log.Printf("INFO mealplans: deleted profile=%s from=%s to=%s meals=%d", profile.ID, from.Format(dateLayout), to.Format(dateLayout), deleted)
	return deleted, nil
}

// UpdateOverrides applies user edits to one planned meal.
func (s *Service) UpdateOverrides(ctx context.Context, mealID uuid.UUID, req UpdateOverridesRequest) (PlannedMealDTO, error) {
	if !req.Reset && len(req.Overrides) == 0 {
		return PlannedMealDTO{}, fmt.Errorf("%w: overrides must not be empty", ErrInvalidRequest)
	}

	meal, err := s.plans.Get(ctx, userIDFromContext(ctx), mealID)
	if errors.Is(err, storage.ErrNotFound) {
		return PlannedMealDTO{}, ErrMealNotFound
	}
	if err != nil {
		return PlannedMealDTO{}, fmt.Errorf("failed to get planned meal: %w", err)
	}
	if _, err := s.ensureProfileAccess(ctx, meal.ProfileID); err != nil {
		return PlannedMealDTO{}, ErrMealNotFound
	}

	recipe, err := s.recipes.Get(ctx, meal.RecipeID)
	if err != nil {
		return PlannedMealDTO{}, fmt.Errorf("failed to get recipe %s: %w", meal.RecipeID, err)
	}

	overrides := meal.Overrides
	if req.Reset {
		overrides = nil
	}
	for _, in := range req.Overrides {
		overrides, err = ApplyUserOverride(*recipe, overrides, in.IngredientID, in.NewAmount)
		if err != nil {
			return PlannedMealDTO{}, err
		}
	}

	updated, err := s.plans.UpdateOverrides(ctx, meal.OwnerUserID, meal.ID, overrides)
	if err != nil {
		return PlannedMealDTO{}, fmt.Errorf("failed to update overrides: %w", err)
	}
	return toMealDTO(*updated, *recipe), nil
}

// Configs lists every plan type with its default slots.
func (s *Service) Configs() ConfigsResponse {
	configs := make([]PlanConfig, 0, len(PlanTypes))
	for _, pt := range PlanTypes {
		cfg, err := ResolveConfig(pt, nil)
		if err != nil {
			continue
		}
		configs = append(configs, cfg)
	}
	return ConfigsResponse{DefaultPlanType: s.opts.DefaultPlanType, Configs: configs}
}

func (s *Service) optionalTargets(ctx context.Context, profileID uuid.UUID) *nutrition.Targets {
	saved, ok, err := s.targets.GetTargets(ctx, profileID)
	if err != nil || !ok {
		return nil
	}
	t := saved.Targets()
	return &t
}

func (s *Service) recipesFor(ctx context.Context, meals []storage.PlannedMeal) (map[uuid.UUID]storage.Recipe, error) {
	seen := make(map[uuid.UUID]bool, len(meals))
	ids := make([]uuid.UUID, 0, len(meals))
	for _, m := range meals {
		if !seen[m.RecipeID] {
			seen[m.RecipeID] = true
			ids = append(ids, m.RecipeID)
		}
	}
	out, err := s.recipes.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	return out, nil
}

func (s *Service) buildPlan(profileID uuid.UUID, from, to time.Time, targets *nutrition.Targets, meals []storage.PlannedMeal, recipesByID map[uuid.UUID]storage.Recipe) PlanResponse {
	resp := PlanResponse{
		ProfileID: profileID,
		From:      from.Format(dateLayout),
		To:        to.Format(dateLayout),
		Targets:   targets,
		Days:      []DayDTO{},
	}

	byDate := make(map[string][]storage.PlannedMeal)
	var order []string
	for _, m := range meals {
		date := m.MealDate.Format(dateLayout)
		if _, ok := byDate[date]; !ok {
			order = append(order, date)
		}
		byDate[date] = append(byDate[date], m)
	}

	for _, date := range order {
		dayMeals := byDate[date]
		day := DayDTO{Date: date, Meals: make([]PlannedMealDTO, 0, len(dayMeals))}
		for _, m := range dayMeals {
			recipe, ok := recipesByID[m.RecipeID]
			if !ok {
				log.Printf("WARN mealplans: meal %s references missing recipe %s", m.ID, m.RecipeID)
			}
			day.Meals = append(day.Meals, toMealDTO(m, recipe))
		}
		day.Totals = Aggregate(dayMeals, recipesByID)
		resp.Days = append(resp.Days, day)
	}
	return resp
}

func toMealDTO(m storage.PlannedMeal, recipe storage.Recipe) PlannedMealDTO {
	byIngredient := make(map[uuid.UUID]storage.IngredientOverride, len(m.Overrides))
	for _, o := range m.Overrides {
		byIngredient[o.IngredientID] = o
	}

	ings := make([]PlannedIngredientDTO, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		dto := PlannedIngredientDTO{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			IsScalable:   ing.IsScalable,
			BaseAmount:   ing.BaseAmount,
			Amount:       ing.BaseAmount,
		}
		if o, ok := byIngredient[ing.ID]; ok {
			dto.Amount = o.NewAmount
			dto.Overridden = true
			dto.AutoAdjusted = o.AutoAdjusted
		}
		ings = append(ings, dto)
	}

	overrides := m.Overrides
	if overrides == nil {
		overrides = []storage.IngredientOverride{}
	}

	return PlannedMealDTO{
		ID:          m.ID,
		ProfileID:   m.ProfileID,
		Date:        m.MealDate.Format(dateLayout),
		MealType:    m.MealType,
		RecipeID:    m.RecipeID,
		RecipeName:  recipe.Name,
		Nutrition:   EffectiveNutrition(recipe, m.Overrides),
		Ingredients: ings,
		Overrides:   overrides,
		UpdatedAt:   m.UpdatedAt,
	}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(dateLayout)
	}
	return out
}
