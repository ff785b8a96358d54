package dbmigrate

import (
	"fmt"

	"github.com/fdg312/meal-engine/internal/config"
)

// Selection is the database URL chosen for DDL and where it came from.
type Selection struct {
	URL     string
	Source  string
	Warning string
}

// SelectDatabaseURL picks the URL for migrations: DIRECT > DATABASE_URL > POOLED.
// Pooled connections are accepted with a warning. requireDirect accepts only
// DATABASE_URL_DIRECT.
func SelectDatabaseURL(cfg *config.Config, requireDirect bool) (Selection, error) {
	if cfg.DatabaseURLDirect != "" {
		return Selection{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, nil
	}
	if requireDirect {
		return Selection{}, fmt.Errorf("DATABASE_URL_DIRECT is required for DDL/migrations")
	}

	switch {
	case cfg.DatabaseURLRaw != "":
		return Selection{URL: cfg.DatabaseURLRaw, Source: "DATABASE_URL"}, nil
	case cfg.DatabaseURLPooled != "":
		return Selection{
			URL:     cfg.DatabaseURLPooled,
			Source:  "DATABASE_URL_POOLED",
			Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT",
		}, nil
	}

	return Selection{}, fmt.Errorf("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
}
