package container

import (
	"context"
	"fmt"

	"cutvalid/adapters/csvmeta"
	"cutvalid/adapters/excel"
	"cutvalid/adapters/postgres"
	"cutvalid/adapters/report"
	"cutvalid/app"
	"cutvalid/internal"
	"cutvalid/internal/analysis"
	"cutvalid/internal/config"
	"cutvalid/internal/metrics"
	"cutvalid/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config  *config.Config
	Logger  *internal.Logger
	Metrics *metrics.Metrics

	// Infrastructure
	DB *sqlx.DB

	// Results is nil until InitWithDatabase
	Results *postgres.ResultRepository

	// Validation components
	Reader     *csvmeta.Reader
	Aggregator *analysis.Aggregator
	Service    *app.ValidationService
	Runner     *app.BatchRunner
	Sinks      []ports.ResultSink
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	opts, err := cfg.Analysis.Options()
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Reader:  csvmeta.NewReader(logger),
	}
	c.Aggregator = analysis.NewAggregator(opts, logger)
	c.Service = app.NewValidationService(c.Reader, c.Aggregator, c.Metrics, logger)
	c.initSinks()
	c.buildRunner()

	return c, nil
}

// initSinks creates the file sinks for the configured output formats
func (c *Container) initSinks() {
	c.Sinks = nil
	if c.Config.HasFormat(config.FormatXLSX) {
		c.Sinks = append(c.Sinks, excel.NewWriter(c.Config.Output.Dir, c.Logger))
	}
	if c.Config.HasFormat(config.FormatHTML) {
		c.Sinks = append(c.Sinks, report.NewWriter(c.Config.Output.Dir, c.Logger))
	}
}

func (c *Container) buildRunner() {
	c.Runner = app.NewBatchRunner(c.Service, c.Config.Input.Workers, c.Sinks, c.Metrics, c.Logger)
}

// InitWithDatabase attaches the results store; runs are then persisted as well
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.Results = postgres.NewResultRepository(db)
	c.Sinks = append(c.Sinks, c.Results)
	c.buildRunner()

	c.Logger.Debug("Container initialized with %s results store", c.Config.Database.Driver)
	return nil
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
