package dbmigrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/fdg312/meal-engine/migrations"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Commands lists the goose commands exposed by cmd/migrate.
var Commands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"version": true,
	"redo":    true,
}

// Run applies command against dbURL. An empty migrationsDir uses the SQL
// files embedded in the binary; otherwise the directory is read from disk.
func Run(ctx context.Context, command string, dbURL string, migrationsDir string) error {
	if !Commands[command] {
		return fmt.Errorf("unsupported migration command %q", command)
	}
	if dbURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	var fsys fs.FS = migrations.FS
	dir := "."
	if migrationsDir != "" {
		fsys = os.DirFS(migrationsDir)
	}
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	return nil
}
