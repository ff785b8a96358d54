package mealplans

import (
	"context"
	"fmt"
	"time"

	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
)

// DaysPerWeek is the length of a generated plan.
const DaysPerWeek = 7

const dateLayout = "2006-01-02"

// IncompletePlanError means the assembled week does not have one meal per
// slot per day.
type IncompletePlanError struct {
	Expected int
	Got      int
}

func (e *IncompletePlanError) Error() string {
	return fmt.Sprintf("incomplete weekly plan: expected %d meals, got %d", e.Expected, e.Got)
}

// PlanStore is the part of persistence the generator consults.
type PlanStore interface {
	CountInRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error)
	ListDates(ctx context.Context, ownerUserID string, profileID uuid.UUID, dates []time.Time) ([]time.Time, error)
}

// WeekRequest describes one weekly generation.
type WeekRequest struct {
	OwnerUserID string
	ProfileID   uuid.UUID
	Targets     nutrition.Targets
	Config      PlanConfig
	StartDate   time.Time
}

// Week is the generation result. Recipes holds every recipe referenced by Meals.
type Week struct {
	Meals   []storage.PlannedMeal
	Recipes map[uuid.UUID]storage.Recipe
}

// Generator drives day assembly and optimization over a week.
type Generator struct {
	assembler *Assembler
	store     PlanStore
}

func NewGenerator(assembler *Assembler, store PlanStore) *Generator {
	return &Generator{assembler: assembler, store: store}
}

// GenerateWeek builds DaysPerWeek consecutive days starting at req.StartDate.
// Any day failure aborts the whole week.
func (g *Generator) GenerateWeek(ctx context.Context, req WeekRequest) (Week, error) {
	start := DateOnly(req.StartDate)
	week := Week{
		Meals:   make([]storage.PlannedMeal, 0, DaysPerWeek*len(req.Config.Slots)),
		Recipes: make(map[uuid.UUID]storage.Recipe),
	}

	for i := 0; i < DaysPerWeek; i++ {
		date := start.AddDate(0, 0, i)

		// Variety is per day only.
		day, err := g.assembler.AssembleDay(ctx, date, req.Config, req.Targets, nil)
		if err != nil {
			return Week{}, fmt.Errorf("day %s: %w", date.Format(dateLayout), err)
		}

		for _, meal := range Optimize(day.Meals, day.Recipes, req.Targets) {
			meal.OwnerUserID = req.OwnerUserID
			meal.ProfileID = req.ProfileID
			week.Meals = append(week.Meals, meal)
		}
		for id, r := range day.Recipes {
			week.Recipes[id] = r
		}
	}

	if expected := DaysPerWeek * len(req.Config.Slots); len(week.Meals) != expected {
		return Week{}, &IncompletePlanError{Expected: expected, Got: len(week.Meals)}
	}

	return week, nil
}

// CheckExistingPlan returns how many meals are already planned in [from, to].
func (g *Generator) CheckExistingPlan(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error) {
	return g.store.CountInRange(ctx, ownerUserID, profileID, DateOnly(from), DateOnly(to))
}

// FindMissingDays returns the dates that have no planned meals, in input order.
func (g *Generator) FindMissingDays(ctx context.Context, ownerUserID string, profileID uuid.UUID, dates []time.Time) ([]time.Time, error) {
	normalized := make([]time.Time, len(dates))
	for i, d := range dates {
		normalized[i] = DateOnly(d)
	}

	planned, err := g.store.ListDates(ctx, ownerUserID, profileID, normalized)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(planned))
	for _, d := range planned {
		have[d.Format(dateLayout)] = true
	}

	missing := make([]time.Time, 0, len(normalized))
	for _, d := range normalized {
		if !have[d.Format(dateLayout)] {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

// WeekDates returns DaysPerWeek dates starting at start.
func WeekDates(start time.Time) []time.Time {
	start = DateOnly(start)
	dates := make([]time.Time, DaysPerWeek)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
