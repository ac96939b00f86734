package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cutvalid/adapters/db/postgres/migrations"
	"cutvalid/adapters/postgres"
	"cutvalid/internal"
	"cutvalid/internal/config"
	"cutvalid/internal/container"
	"cutvalid/internal/errors"
	"cutvalid/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

// initDatabase connects to the results store and applies pending migrations.
// Without DATABASE_URL an in-memory SQLite store is used.
func initDatabase(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*sqlx.DB, error) {
	driver, url := cfg.Database.Driver, cfg.Database.URL
	if url == "" {
		logger.Warn("DATABASE_URL not set, using an in-memory SQLite store")
		driver, url = config.DriverSQLite, ":memory:"
	}

	db, err := postgres.Open(ctx, driver, url)
	if err != nil {
		return nil, err
	}

	applied, err := migrations.NewMigrator(db, logger).Up(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	if len(applied) > 0 {
		logger.Info("Applied %d migration(s)", len(applied))
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		internal.DefaultLogger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	internal.DefaultLogger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to build container: %v", err)
		os.Exit(1)
	}

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		logger.Error("Failed to initialize container: %v", err)
		os.Exit(1)
	}
	defer c.Shutdown(context.Background())

	app := ui.NewApp(ui.Config{Port: cfg.Server.Port}, c.Results, c.Metrics, logger)
	if err := app.Start(ctx); err != nil {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
}
