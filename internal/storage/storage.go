package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound - общая ошибка "не найдено" для всех хранилищ
var ErrNotFound = errors.New("not found")

// Profile представляет профиль пользователя
type Profile struct {
	ID          uuid.UUID
	OwnerUserID string // "default" для MVP
	Type        string // "owner" или "guest"
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Storage - интерфейс для работы с профилями
type Storage interface {
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	CreateProfile(ctx context.Context, profile *Profile) error
	UpdateProfile(ctx context.Context, profile *Profile) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
	Close() error
}

// Biometrics - биометрические данные профиля, из которых считаются цели
type Biometrics struct {
	ProfileID     uuid.UUID
	OwnerUserID   string
	Gender        string
	Age           int
	WeightKg      float64
	HeightCm      float64
	ActivityLevel string
	Goal          string
	// WeightLossRateKgWeek is zero unless Goal is weight_loss.
	WeightLossRateKgWeek float64
	MacroRatio           string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// BiometricsStorage хранит биометрию по профилю
type BiometricsStorage interface {
	// Get возвращает nil, nil если данных нет
	Get(ctx context.Context, ownerUserID string, profileID uuid.UUID) (*Biometrics, error)
	Upsert(ctx context.Context, b Biometrics) (*Biometrics, error)
}

// NutritionTargetsStorage хранит дневные цели по питанию
type NutritionTargetsStorage interface {
	// Get возвращает цели по питанию для профиля (nil, nil если не заданы)
	Get(ctx context.Context, ownerUserID string, profileID uuid.UUID) (*NutritionTarget, error)

	// Upsert создаёт или обновляет цели по питанию
	Upsert(ctx context.Context, ownerUserID string, profileID uuid.UUID, upsert NutritionTargetUpsert) (*NutritionTarget, error)
}

// NutritionTarget represents nutrition goals/targets for a profile.
type NutritionTarget struct {
	ID           uuid.UUID
	OwnerUserID  string
	ProfileID    uuid.UUID
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
	Source       string // "computed" or "manual"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NutritionTargetUpsert is used for creating/updating targets.
type NutritionTargetUpsert struct {
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
	Source       string
}

// Ingredient is one line of a recipe. Nutrition values are at BaseAmount.
type Ingredient struct {
	ID         uuid.UUID
	Name       string
	BaseAmount float64
	Unit       string
	IsScalable bool
	Calories   float64
	ProteinG   float64
	CarbsG     float64
	FatsG      float64
}

// Recipe is a catalog entry. Totals are the sums over ingredients at base amounts.
type Recipe struct {
	ID            uuid.UUID
	Name          string
	MealTypes     []string
	TotalCalories int
	TotalProteinG float64
	TotalCarbsG   float64
	TotalFatsG    float64
	Ingredients   []Ingredient
	CreatedAt     time.Time
}

// HasMealType reports whether the recipe can be served as mealType.
func (r Recipe) HasMealType(mealType string) bool {
	for _, mt := range r.MealTypes {
		if mt == mealType {
			return true
		}
	}
	return false
}

// RecipesStorage - каталог рецептов
type RecipesStorage interface {
	// FetchCandidates returns recipes tagged with mealType whose total calories
	// fall in [minCalories, maxCalories].
	FetchCandidates(ctx context.Context, mealType string, minCalories, maxCalories int) ([]Recipe, error)
	// ListByMealType returns every recipe tagged with mealType.
	ListByMealType(ctx context.Context, mealType string) ([]Recipe, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Recipe, error)
	List(ctx context.Context, mealType, query string, limit, offset int) ([]Recipe, int, error)
	Get(ctx context.Context, id uuid.UUID) (*Recipe, error)
	// Upsert inserts or replaces recipes by ID.
	Upsert(ctx context.Context, recipes []Recipe) error
	Count(ctx context.Context) (int, error)
}

// IngredientOverride - отклонение количества ингредиента от базового для одного приёма пищи
type IngredientOverride struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	NewAmount    float64   `json:"new_amount"`
	AutoAdjusted bool      `json:"auto_adjusted"`
}

// PlannedMeal - одна запланированная трапеза
type PlannedMeal struct {
	ID          uuid.UUID
	OwnerUserID string
	ProfileID   uuid.UUID
	RecipeID    uuid.UUID
	MealDate    time.Time // date only, UTC midnight
	MealType    string
	Position    int // slot index within the day
	// Overrides is nil when the recipe is served at base amounts.
	Overrides []IngredientOverride
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlannedMealsStorage хранит сгенерированные планы питания
type PlannedMealsStorage interface {
	// ReplaceRange atomically deletes meals in [from, to] and inserts meals.
	ReplaceRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time, meals []PlannedMeal) error
	// CountInRange returns the number of planned meals with a date in [from, to].
	CountInRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error)
	// ListDates returns the subset of dates that already have at least one meal.
	ListDates(ctx context.Context, ownerUserID string, profileID uuid.UUID, dates []time.Time) ([]time.Time, error)
	List(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) ([]PlannedMeal, error)
	Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*PlannedMeal, error)
	UpdateOverrides(ctx context.Context, ownerUserID string, id uuid.UUID, overrides []IngredientOverride) (*PlannedMeal, error)
	DeleteRange(ctx context.Context, ownerUserID string, profileID uuid.UUID, from, to time.Time) (int, error)
}

// ReportsStorage - интерфейс для работы с отчётами
type ReportsStorage interface {
	// CreateReport создаёт новый отчёт (metadata + optional data for memory mode)
	CreateReport(ctx context.Context, report *ReportMeta) error

	// GetReport возвращает отчёт по ID
	GetReport(ctx context.Context, id uuid.UUID) (*ReportMeta, error)

	// ListReports возвращает список отчётов профиля с пагинацией
	ListReports(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]ReportMeta, error)

	// DeleteReport удаляет отчёт
	DeleteReport(ctx context.Context, id uuid.UUID) error
}

// ReportMeta - метаданные отчёта
type ReportMeta struct {
	ID        uuid.UUID
	ProfileID uuid.UUID
	Format    string  // "pdf" or "csv"
	FromDate  string  // YYYY-MM-DD
	ToDate    string  // YYYY-MM-DD
	ObjectKey *string // S3 object key (NULL for memory mode)
	SizeBytes int64
	Status    string // "ready" or "failed"
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      []byte // Only used in memory mode (not stored in DB)
}
