package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/meal-engine/internal/config"
	"github.com/fdg312/meal-engine/internal/dbmigrate"
)

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalf("usage: go run ./cmd/migrate [-dir migrations] [%s]", strings.Join(commandNames(), "|"))
	}

	command := flag.Arg(0)
	if !dbmigrate.Commands[command] {
		log.Fatalf("unsupported command %q (allowed: %s)", command, strings.Join(commandNames(), ", "))
	}

	cfg := config.Load()
	sel, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if sel.Warning != "" {
		log.Printf("WARN migrate: %s", sel.Warning)
	}
	log.Printf("INFO migrate: command=%s using=%s", command, sel.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := dbmigrate.Run(ctx, command, sel.URL, *dir); err != nil {
		log.Fatal(err)
	}

	log.Printf("INFO migrate: %s completed successfully", command)
}

func commandNames() []string {
	names := make([]string, 0, len(dbmigrate.Commands))
	for name := range dbmigrate.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
