// Command seed bulk-loads a recipe catalog JSON file into the configured storage.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/meal-engine/internal/config"
	"github.com/fdg312/meal-engine/internal/recipes"
	"github.com/fdg312/meal-engine/internal/storage/postgres"
)

func main() {
	file := flag.String("file", "", "recipe catalog JSON (defaults to RECIPES_SEED_FILE)")
	onlyEmpty := flag.Bool("if-empty", false, "skip when the catalog already has recipes")
	flag.Parse()

	cfg := config.Load()

	path := *file
	if path == "" {
		path = cfg.RecipesSeedFile
	}
	if path == "" {
		log.Fatal("FATAL seed: no catalog file (pass -file or set RECIPES_SEED_FILE)")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("FATAL seed: DATABASE_URL is not set; the in-memory catalog would be lost on exit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL seed: postgres connection failed: %v", err)
	}
	defer store.Close()

	svc := recipes.NewService(store.GetRecipesStorage())

	if *onlyEmpty {
		n, err := svc.SeedIfEmpty(ctx, path)
		if err != nil {
			log.Fatalf("FATAL seed: %v", err)
		}
		log.Printf("INFO seed: imported %d recipes", n)
		return
	}

	req, err := recipes.LoadFile(path)
	if err != nil {
		log.Fatalf("FATAL seed: %v", err)
	}
	resp, err := svc.Import(ctx, req)
	if err != nil {
		log.Fatalf("FATAL seed: import failed: %v", err)
	}
	log.Printf("INFO seed: imported %d recipes, catalog total %d", resp.Imported, resp.Total)
}
