package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cutvalid/adapters/db/postgres/migrations"
	"cutvalid/adapters/postgres"
	"cutvalid/internal"
	"cutvalid/internal/config"

	"github.com/joho/godotenv"
)

const usage = "Usage: migrate [up|status]"

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("No .env file found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := run(context.Background(), command); err != nil {
		internal.DefaultLogger.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db, logger)

	switch command {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			logger.Info("Schema is up to date")
		}
		for _, name := range applied {
			logger.Info("Applied %s", name)
		}
		return nil
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%-4s %-32s %s\n", s.Version, s.Name, state)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q. %s", command, usage)
	}
}
