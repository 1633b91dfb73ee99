package main

import (
	"log"
	"os"

	"github.com/safar/cartstore/internal/config"
	"github.com/safar/cartstore/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := database.Direction(os.Args[1])
	if direction != database.Up && direction != database.Down {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	version, err := database.Migrate(cfg.Database.URL, direction)
	if err != nil {
		log.Fatalf("Run migrations: %v", err)
	}

	log.Printf("Migrations %s complete, schema version %d", direction, version)
}
