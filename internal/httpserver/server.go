package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/meal-engine/internal/auth"
	"github.com/fdg312/meal-engine/internal/blob"
	"github.com/fdg312/meal-engine/internal/config"
	"github.com/fdg312/meal-engine/internal/mealplans"
	"github.com/fdg312/meal-engine/internal/nutrition"
	"github.com/fdg312/meal-engine/internal/profiles"
	"github.com/fdg312/meal-engine/internal/recipes"
	"github.com/fdg312/meal-engine/internal/reports"
	"github.com/fdg312/meal-engine/internal/storage"
	"github.com/fdg312/meal-engine/internal/storage/memory"
	"github.com/fdg312/meal-engine/internal/storage/postgres"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage инициализирует storage (Memory или Postgres)
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("INFO storage: using in-memory storage")
		s.storage = memory.New()
		return
	}

	log.Println("INFO storage: connecting to PostgreSQL...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		log.Printf("WARN storage: postgres connection failed: %v", err)
		log.Println("WARN storage: fallback to in-memory storage")
		s.storage = memory.New()
		return
	}
	log.Println("INFO storage: PostgreSQL connected")
	s.storage = pgStorage
}

// routes регистрирует маршруты
func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Auth API (no auth required)
	authService := auth.NewService(s.config, s.storage)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	if s.config.AuthMode == config.AuthModeDev {
		// POST /v1/auth/dev - local dev token
		s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)
	}

	// Profiles API
	profileHandler := profiles.NewHandler(profiles.NewService(s.storage))
	s.mux.HandleFunc("GET /v1/profiles", profileHandler.HandleList)
	s.mux.HandleFunc("POST /v1/profiles", profileHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/profiles/{id}", profileHandler.HandleGet)
	s.mux.HandleFunc("PATCH /v1/profiles/{id}", profileHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/profiles/{id}", profileHandler.HandleDelete)

	// Nutrition API: biometrics and daily targets
	nutritionService := nutrition.NewService(s.storage, s.getBiometricsStorage(), s.getNutritionTargetsStorage())
	nutritionHandler := nutrition.NewHandler(nutritionService)
	s.mux.HandleFunc("GET /v1/nutrition/biometrics", nutritionHandler.HandleGetBiometrics)
	s.mux.HandleFunc("PUT /v1/nutrition/biometrics", nutritionHandler.HandleUpsertBiometrics)
	s.mux.HandleFunc("GET /v1/nutrition/targets", nutritionHandler.HandleGetTargets)
	s.mux.HandleFunc("PUT /v1/nutrition/targets", nutritionHandler.HandleUpsertTargets)
	s.mux.HandleFunc("POST /v1/nutrition/targets/compute", nutritionHandler.HandleComputeTargets)

	// Recipes catalog
	recipesStorage := s.getRecipesStorage()
	recipesService := recipes.NewService(recipesStorage)
	s.seedRecipes(recipesService)
	recipesHandler := recipes.NewHandler(recipesService)
	s.mux.HandleFunc("GET /v1/recipes", recipesHandler.HandleList)
	s.mux.HandleFunc("GET /v1/recipes/{id}", recipesHandler.HandleGet)
	s.mux.HandleFunc("POST /v1/recipes/import", recipesHandler.HandleImport)

	// Meal plans
	mealPlansService := mealplans.NewService(
		s.storage,
		nutritionService,
		recipesStorage,
		s.getPlannedMealsStorage(),
		mealplans.Options{
			Tolerance:       s.config.Planner.CalorieTolerance,
			Seed:            s.config.Planner.RandomSeed,
			Prefetch:        s.config.Planner.Prefetch,
			DefaultPlanType: s.config.Planner.DefaultPlanType,
		},
	)
	mealPlansHandler := mealplans.NewHandler(mealPlansService)
	s.mux.HandleFunc("GET /v1/meal/configs", mealPlansHandler.HandleConfigs)
	s.mux.HandleFunc("POST /v1/meal/plan/generate", mealPlansHandler.HandleGenerate)
	s.mux.HandleFunc("GET /v1/meal/plan", mealPlansHandler.HandleGetPlan)
	s.mux.HandleFunc("DELETE /v1/meal/plan", mealPlansHandler.HandleDeletePlan)
	s.mux.HandleFunc("GET /v1/meal/plan/status", mealPlansHandler.HandleStatus)
	s.mux.HandleFunc("GET /v1/meal/today", mealPlansHandler.HandleToday)
	s.mux.HandleFunc("PATCH /v1/meal/plan/{id}/overrides", mealPlansHandler.HandleUpdateOverrides)

	// Reports API: meal plan exports
	reportsService := reports.NewService(
		s.getReportsStorage(),
		s.storage,
		reports.NewGenerator(mealPlansService, s.config.ReportsFontPath),
		s.initReportsBlobStore(),
		reports.Options{
			MaxRangeDays:    s.config.ReportsMaxRangeDays,
			PresignTTL:      time.Duration(s.config.Blob.S3.PresignTTLSeconds) * time.Second,
			PublicBaseURL:   s.config.Blob.S3.PublicBaseURL,
			PreferPublicURL: s.config.Blob.S3.PreferPublicURL,
		},
	)
	reportsHandler := reports.NewHandlers(reportsService)
	s.mux.HandleFunc("POST /v1/reports", reportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/reports", reportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}/download", reportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/reports/{id}", reportsHandler.HandleDelete)
}

// seedRecipes loads RECIPES_SEED_FILE into an empty catalog. Failures are logged, not fatal.
func (s *Server) seedRecipes(svc *recipes.Service) {
	if s.config.RecipesSeedFile == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := svc.SeedIfEmpty(ctx, s.config.RecipesSeedFile)
	if err != nil {
		log.Printf("WARN recipes: seed from %s failed: %v", s.config.RecipesSeedFile, err)
		return
	}
	if n > 0 {
		log.Printf("INFO recipes: seeded %d recipes from %s", n, s.config.RecipesSeedFile)
	}
}

func (s *Server) getBiometricsStorage() storage.BiometricsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetBiometricsStorage()
	case *postgres.PostgresStorage:
		return st.GetBiometricsStorage()
	default:
		log.Fatalf("FATAL storage: unsupported storage type %T", s.storage)
		return nil
	}
}

func (s *Server) getNutritionTargetsStorage() storage.NutritionTargetsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetNutritionTargetsStorage()
	case *postgres.PostgresStorage:
		return st.GetNutritionTargetsStorage()
	default:
		log.Fatalf("FATAL storage: unsupported storage type %T", s.storage)
		return nil
	}
}

func (s *Server) getRecipesStorage() storage.RecipesStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetRecipesStorage()
	case *postgres.PostgresStorage:
		return st.GetRecipesStorage()
	default:
		log.Fatalf("FATAL storage: unsupported storage type %T", s.storage)
		return nil
	}
}

func (s *Server) getPlannedMealsStorage() storage.PlannedMealsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetPlannedMealsStorage()
	case *postgres.PostgresStorage:
		return st.GetPlannedMealsStorage()
	default:
		log.Fatalf("FATAL storage: unsupported storage type %T", s.storage)
		return nil
	}
}

// getReportsStorage returns the reports storage based on storage type
func (s *Server) getReportsStorage() storage.ReportsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetReportsStorage()
	case *postgres.PostgresStorage:
		return st.GetReportsStorage()
	default:
		log.Fatalf("FATAL storage: unsupported storage type %T", s.storage)
		return nil
	}
}

// initReportsBlobStore follows REPORTS_MODE, falling back to BLOB_MODE.
// A nil store keeps exports in the reports storage.
func (s *Server) initReportsBlobStore() blob.Store {
	mode := s.config.Blob.EffectiveReportsMode()
	log.Printf("INFO blob: initializing reports store (mode=%s)", mode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, effective, err := blob.NewBlobStore(ctx, mode, s.config.Blob.S3, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize reports store: %v", err)
	}
	log.Printf("INFO blob: reports blob mode: %s", effective)
	return store
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Handler builds the middleware chain (outermost first): CORS → Rate Limit → Auth → Router
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.authMiddleware != nil && s.config.AuthMode != config.AuthModeNone {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start запускает HTTP сервер и блокируется до Shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	log.Printf("INFO http: server listening on http://localhost%s", addr)
	log.Printf("INFO http: health check http://localhost%s/healthz", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает приём запросов и дожидается активных
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
