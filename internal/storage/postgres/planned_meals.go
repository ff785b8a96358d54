package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type plannedMealsStorage struct {
	pool *pgxpool.Pool
}

func newPlannedMealsStorage(pool *pgxpool.Pool) *plannedMealsStorage {
	return &plannedMealsStorage{pool: pool}
}

const plannedMealColumns = `id, owner_user_id, profile_id, recipe_id, meal_date, meal_type, position, overrides, created_at, updated_at`

func encodeOverrides(overrides []storage.IngredientOverride) ([]byte, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	return json.Marshal(overrides)
}

func scanPlannedMeal(row pgx.Row) (*storage.PlannedMeal, error) {
	var (
		m   storage.PlannedMeal
		raw []byte
	)
	if err := row.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.ProfileID,
		&m.RecipeID,
		&m.MealDate,
		&m.MealType,
		&m.Position,
		&raw,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m.Overrides); err != nil {
			return nil, fmt.Errorf("decode overrides of %s: %w", m.ID, err)
		}
		if len(m.Overrides) == 0 {
			m.Overrides = nil
		}
	}
	m.MealDate = time.Date(m.MealDate.Year(), m.MealDate.Month(), m.MealDate.Day(), 0, 0, 0, 0, time.UTC)
	return &m, nil
}

// ReplaceRange удаляет старые трапезы диапазона и вставляет новые в одной транзакции
func (s *plannedMealsStorage) ReplaceRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time, meals []storage.PlannedMeal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM planned_meals
		WHERE owner_user_id = $1 AND profile_id = $2 AND meal_date BETWEEN $3 AND $4
	`, ownerUserID, profileID, from, to)
	if err != nil {
		return fmt.Errorf("failed to clear planned meals: %w", err)
	}

	insert := `
		INSERT INTO planned_meals (id, owner_user_id, profile_id, recipe_id, meal_date, meal_type, position, overrides)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	batch := &pgx.Batch{}
	for _, m := range meals {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		raw, err := encodeOverrides(m.Overrides)
		if err != nil {
			return fmt.Errorf("encode overrides: %w", err)
		}
		batch.Queue(insert, m.ID, ownerUserID, profileID, m.RecipeID, m.MealDate, m.MealType, m.Position, raw)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert planned meals: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit planned meals: %w", err)
	}
	return nil
}

func (s *plannedMealsStorage) CountInRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM planned_meals
		WHERE owner_user_id = $1 AND profile_id = $2 AND meal_date BETWEEN $3 AND $4
	`, ownerUserID, profileID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count planned meals: %w", err)
	}
	return n, nil
}

func (s *plannedMealsStorage) ListDates(ctx context.Context, ownerUserID string, profileID uuid.UUID, dates []time.Time) ([]time.Time, error) {
	if len(dates) == 0 {
		return []time.Time{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT meal_date FROM planned_meals
		WHERE owner_user_id = $1 AND profile_id = $2 AND meal_date = ANY($3)
	`, ownerUserID, profileID, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned dates: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		have[d.Format("2006-01-02")] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// порядок входного списка сохраняется
	out := make([]time.Time, 0, len(have))
	for _, d := range dates {
		if have[d.Format("2006-01-02")] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *plannedMealsStorage) List(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) ([]storage.PlannedMeal, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+plannedMealColumns+`
		FROM planned_meals
		WHERE owner_user_id = $1 AND profile_id = $2 AND meal_date BETWEEN $3 AND $4
		ORDER BY meal_date, position
	`, ownerUserID, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned meals: %w", err)
	}
	defer rows.Close()

	out := []storage.PlannedMeal{}
	for rows.Next() {
		m, err := scanPlannedMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *plannedMealsStorage) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.PlannedMeal, error) {
	m, err := scanPlannedMeal(s.pool.QueryRow(ctx, `SELECT `+plannedMealColumns+`
		FROM planned_meals WHERE id = $1 AND owner_user_id = $2`, id, ownerUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planned meal: %w", err)
	}
	return m, nil
}

func (s *plannedMealsStorage) UpdateOverrides(ctx context.Context, ownerUserID string, id uuid.UUID, overrides []storage.IngredientOverride) (*storage.PlannedMeal, error) {
	raw, err := encodeOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("encode overrides: %w", err)
	}

	m, err := scanPlannedMeal(s.pool.QueryRow(ctx, `
		UPDATE planned_meals SET overrides = $3, updated_at = now()
		WHERE id = $1 AND owner_user_id = $2
		RETURNING `+plannedMealColumns, id, ownerUserID, raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update overrides: %w", err)
	}
	return m, nil
}

func (s *plannedMealsStorage) DeleteRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM planned_meals
		WHERE owner_user_id = $1 AND profile_id = $2 AND meal_date BETWEEN $3 AND $4
	`, ownerUserID, profileID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete planned meals: %w", err)
	}
	return int(result.RowsAffected()), nil
}
