package ports

import (
	"context"

	"cutvalid/domain/core"
	"cutvalid/domain/run"
)

// PointFilters narrows ListPoints; empty fields match everything
type PointFilters struct {
	// File matches the file's base name or path
	File      string
	Direction string
}

// ResultRepository persists batch runs and serves them back read-only
type ResultRepository interface {
	// SaveRun stores the run, its files, failures and chi-squared points in one transaction
	SaveRun(ctx context.Context, result *run.Result) error

	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, limit int) ([]run.Summary, error)

	// GetRun returns core.ErrRunNotFound for an unknown run
	GetRun(ctx context.Context, runID core.RunID) (*run.Summary, error)

	ListFiles(ctx context.Context, runID core.RunID) ([]run.FileSummary, error)

	ListPoints(ctx context.Context, runID core.RunID, filters PointFilters) ([]run.PointRow, error)
}
