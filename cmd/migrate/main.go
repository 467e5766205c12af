package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "List embedded migrations without executing them")
	flag.Parse()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if *dryRun {
		logger.Info("Dry run mode - listing migrations without executing")
		versions, err := postgres.MigrationVersions()
		if err != nil {
			logger.Fatalw("Failed to list migrations", "error", err)
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Running database migrations...")
	applied, err := db.Migrate(ctx)
	if err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err, "applied", applied)
	}
	logger.Infow("Migration completed successfully", "applied", applied)

	fmt.Println("Migration process completed")
}
