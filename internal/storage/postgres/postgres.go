package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound совпадает с общей ошибкой хранилища
var ErrNotFound = storage.ErrNotFound

// PostgresStorage - Postgres реализация всех хранилищ
type PostgresStorage struct {
	pool             *pgxpool.Pool
	biometrics       *biometricsStorage
	nutritionTargets *nutritionTargetsStorage
	recipes          *recipesStorage
	plannedMeals     *plannedMealsStorage
	reports          *PostgresReportsStorage
}

// New создаёт PostgresStorage и обеспечивает owner профиль по умолчанию
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	ps := &PostgresStorage{
		pool:             pool,
		biometrics:       newBiometricsStorage(pool),
		nutritionTargets: newNutritionTargetsStorage(pool),
		recipes:          newRecipesStorage(pool),
		plannedMeals:     newPlannedMealsStorage(pool),
		reports:          NewPostgresReportsStorage(pool),
	}

	// Создаём owner профиль, если его нет
	if err := ps.ensureOwnerProfile(ctx); err != nil {
		return nil, err
	}

	return ps, nil
}

// ensureOwnerProfile создаёт owner профиль, если его ещё нет
func (p *PostgresStorage) ensureOwnerProfile(ctx context.Context) error {
	query := `
		INSERT INTO profiles (id, owner_user_id, type, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`

	ownerID := uuid.New()
	now := time.Now()

	_, err := p.pool.Exec(ctx, query,
		ownerID,
		"default",
		"owner",
		"Я",
		now,
		now,
	)

	return err
}

func (p *PostgresStorage) ListProfiles(ctx context.Context) ([]storage.Profile, error) {
	query := `
		SELECT id, owner_user_id, type, name, created_at, updated_at
		FROM profiles
		ORDER BY created_at ASC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []storage.Profile{}
	for rows.Next() {
		var prof storage.Profile
		err := rows.Scan(
			&prof.ID,
			&prof.OwnerUserID,
			&prof.Type,
			&prof.Name,
			&prof.CreatedAt,
			&prof.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, prof)
	}

	return profiles, rows.Err()
}

func (p *PostgresStorage) GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error) {
	query := `
		SELECT id, owner_user_id, type, name, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var prof storage.Profile
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&prof.ID,
		&prof.OwnerUserID,
		&prof.Type,
		&prof.Name,
		&prof.CreatedAt,
		&prof.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &prof, nil
}

func (p *PostgresStorage) CreateProfile(ctx context.Context, profile *storage.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
		INSERT INTO profiles (id, owner_user_id, type, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.pool.Exec(ctx, query,
		profile.ID,
		profile.OwnerUserID,
		profile.Type,
		profile.Name,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	return err
}

func (p *PostgresStorage) UpdateProfile(ctx context.Context, profile *storage.Profile) error {
	profile.UpdatedAt = time.Now()

	query := `
		UPDATE profiles
		SET name = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := p.pool.Exec(ctx, query,
		profile.ID,
		profile.Name,
		profile.UpdatedAt,
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresStorage) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM profiles WHERE id = $1`

	result, err := p.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// GetBiometricsStorage returns biometrics storage
func (p *PostgresStorage) GetBiometricsStorage() storage.BiometricsStorage {
	return p.biometrics
}

// GetNutritionTargetsStorage returns nutrition targets storage
func (p *PostgresStorage) GetNutritionTargetsStorage() storage.NutritionTargetsStorage {
	return p.nutritionTargets
}

// GetRecipesStorage returns the recipe catalog
func (p *PostgresStorage) GetRecipesStorage() storage.RecipesStorage {
	return p.recipes
}

// GetPlannedMealsStorage returns planned meals storage
func (p *PostgresStorage) GetPlannedMealsStorage() storage.PlannedMealsStorage {
	return p.plannedMeals
}

// GetReportsStorage returns the reports storage
func (p *PostgresStorage) GetReportsStorage() *PostgresReportsStorage {
	return p.reports
}
