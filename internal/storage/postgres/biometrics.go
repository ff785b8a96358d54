package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type biometricsStorage struct {
	pool *pgxpool.Pool
}

func newBiometricsStorage(pool *pgxpool.Pool) *biometricsStorage {
	return &biometricsStorage{pool: pool}
}

const biometricsColumns = `profile_id, owner_user_id, gender, age, weight_kg, height_cm, activity_level, goal,
	weight_loss_rate_kg_week, macro_ratio, created_at, updated_at`

func scanBiometrics(row pgx.Row) (*storage.Biometrics, error) {
	var b storage.Biometrics
	err := row.Scan(
		&b.ProfileID,
		&b.OwnerUserID,
		&b.Gender,
		&b.Age,
		&b.WeightKg,
		&b.HeightCm,
		&b.ActivityLevel,
		&b.Goal,
		&b.WeightLossRateKgWeek,
		&b.MacroRatio,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *biometricsStorage) Get(ctx context.Context, ownerUserID string, profileID uuid.UUID) (*storage.Biometrics, error) {
	query := `SELECT ` + biometricsColumns + `
		FROM biometrics
		WHERE owner_user_id = $1 AND profile_id = $2`

	b, err := scanBiometrics(s.pool.QueryRow(ctx, query, ownerUserID, profileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get biometrics: %w", err)
	}
	return b, nil
}

func (s *biometricsStorage) Upsert(ctx context.Context, b storage.Biometrics) (*storage.Biometrics, error) {
	query := `
		INSERT INTO biometrics (profile_id, owner_user_id, gender, age, weight_kg, height_cm, activity_level, goal,
			weight_loss_rate_kg_week, macro_ratio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (owner_user_id, profile_id)
		DO UPDATE SET
			gender = EXCLUDED.gender,
			age = EXCLUDED.age,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			activity_level = EXCLUDED.activity_level,
			goal = EXCLUDED.goal,
			weight_loss_rate_kg_week = EXCLUDED.weight_loss_rate_kg_week,
			macro_ratio = EXCLUDED.macro_ratio,
			updated_at = now()
		RETURNING ` + biometricsColumns

	saved, err := scanBiometrics(s.pool.QueryRow(ctx, query,
		b.ProfileID,
		b.OwnerUserID,
		b.Gender,
		b.Age,
		b.WeightKg,
		b.HeightCm,
		b.ActivityLevel,
		b.Goal,
		b.WeightLossRateKgWeek,
		b.MacroRatio,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert biometrics: %w", err)
	}
	return saved, nil
}
