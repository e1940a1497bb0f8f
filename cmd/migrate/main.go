package main

// Manage database migrations:
//   go run ./cmd/migrate          apply pending migrations
//   go run ./cmd/migrate down     roll back the last migration
//   go run ./cmd/migrate status   print migration status

import (
	"context"
	"log"
	"os"

	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackLastMigration(ctx, sqlDB)
	case "status":
		err = db.PrintMigrationStatus(ctx, sqlDB)
	default:
		log.Printf("unknown command %q (want up, down, or status)", command)
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s failed: %v", command, err)
		os.Exit(1)
	}
}
