package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recipesStorage struct {
	pool *pgxpool.Pool
}

func newRecipesStorage(pool *pgxpool.Pool) *recipesStorage {
	return &recipesStorage{pool: pool}
}

// ingredientRow - форма ингредиента внутри JSONB колонки recipes.ingredients
type ingredientRow struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	BaseAmount float64   `json:"base_amount"`
	Unit       string    `json:"unit"`
	IsScalable bool      `json:"is_scalable"`
	Calories   float64   `json:"calories"`
	ProteinG   float64   `json:"protein_g"`
	CarbsG     float64   `json:"carbs_g"`
	FatsG      float64   `json:"fats_g"`
}

func encodeIngredients(ings []storage.Ingredient) ([]byte, error) {
	rows := make([]ingredientRow, 0, len(ings))
	for _, ing := range ings {
		rows = append(rows, ingredientRow(ing))
	}
	return json.Marshal(rows)
}

func decodeIngredients(raw []byte) ([]storage.Ingredient, error) {
	var rows []ingredientRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
	}
	out := make([]storage.Ingredient, 0, len(rows))
	for _, r := range rows {
		out = append(out, storage.Ingredient(r))
	}
	return out, nil
}

const recipeColumns = `id, name, meal_types, total_calories, total_protein_g, total_carbs_g, total_fats_g, ingredients, created_at`

func scanRecipe(row pgx.Row) (storage.Recipe, error) {
	var (
		r   storage.Recipe
		raw []byte
	)
	if err := row.Scan(
		&r.ID,
		&r.Name,
		&r.MealTypes,
		&r.TotalCalories,
		&r.TotalProteinG,
		&r.TotalCarbsG,
		&r.TotalFatsG,
		&raw,
		&r.CreatedAt,
	); err != nil {
		return storage.Recipe{}, err
	}
	ings, err := decodeIngredients(raw)
	if err != nil {
		return storage.Recipe{}, fmt.Errorf("decode ingredients of %s: %w", r.ID, err)
	}
	r.Ingredients = ings
	return r, nil
}

func collectRecipes(rows pgx.Rows) ([]storage.Recipe, error) {
	defer rows.Close()

	out := []storage.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *recipesStorage) FetchCandidates(ctx context.Context, mealType string, minCalories, maxCalories int) ([]storage.Recipe, error) {
	query := `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE $1 = ANY(meal_types) AND total_calories BETWEEN $2 AND $3
		ORDER BY name, id`

	rows, err := s.pool.Query(ctx, query, mealType, minCalories, maxCalories)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	return collectRecipes(rows)
}

func (s *recipesStorage) ListByMealType(ctx context.Context, mealType string) ([]storage.Recipe, error) {
	query := `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE $1 = ANY(meal_types)
		ORDER BY name, id`

	rows, err := s.pool.Query(ctx, query, mealType)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return collectRecipes(rows)
}

func (s *recipesStorage) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]storage.Recipe, error) {
	out := make(map[uuid.UUID]storage.Recipe, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}
	recipes, err := collectRecipes(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range recipes {
		out[r.ID] = r
	}
	return out, nil
}

func (s *recipesStorage) List(ctx context.Context, mealType, query string, limit, offset int) ([]storage.Recipe, int, error) {
	var (
		where []string
		args  []any
	)
	if mealType != "" {
		args = append(args, mealType)
		where = append(where, fmt.Sprintf("$%d = ANY(meal_types)", len(args)))
	}
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM recipes`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM recipes%s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		recipeColumns, clause, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	recipes, err := collectRecipes(rows)
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

func (s *recipesStorage) Get(ctx context.Context, id uuid.UUID) (*storage.Recipe, error) {
	r, err := scanRecipe(s.pool.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &r, nil
}

// Upsert пишет все рецепты одним батчем в транзакции
func (s *recipesStorage) Upsert(ctx context.Context, recipes []storage.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	query := `
		INSERT INTO recipes (id, name, meal_types, total_calories, total_protein_g, total_carbs_g, total_fats_g, ingredients)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			meal_types = EXCLUDED.meal_types,
			total_calories = EXCLUDED.total_calories,
			total_protein_g = EXCLUDED.total_protein_g,
			total_carbs_g = EXCLUDED.total_carbs_g,
			total_fats_g = EXCLUDED.total_fats_g,
			ingredients = EXCLUDED.ingredients
	`

	batch := &pgx.Batch{}
	for _, r := range recipes {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		raw, err := encodeIngredients(r.Ingredients)
		if err != nil {
			return fmt.Errorf("encode ingredients of %s: %w", r.Name, err)
		}
		batch.Queue(query, r.ID, r.Name, r.MealTypes, r.TotalCalories, r.TotalProteinG, r.TotalCarbsG, r.TotalFatsG, raw)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert recipes: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *recipesStorage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}
