// Package postgres stores validation runs with sqlx. The queries are portable
// between PostgreSQL and SQLite; placeholders are rebound per driver.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"

	"cutvalid/domain/core"
	"cutvalid/domain/run"
	"cutvalid/internal/errors"
	"cutvalid/internal/naming"
	"cutvalid/ports"
)

// pointBatch bounds rows per INSERT to stay under driver parameter limits
const pointBatch = 500

// ResultRepository implements ports.ResultRepository and ports.ResultSink
type ResultRepository struct {
	db *sqlx.DB
}

var (
	_ ports.ResultRepository = (*ResultRepository)(nil)
	_ ports.ResultSink       = (*ResultRepository)(nil)
)

// NewResultRepository creates a repository over an open, migrated database
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Name() string { return "sql" }

// Write stores the run; it makes the repository usable as a batch sink
func (r *ResultRepository) Write(ctx context.Context, result *run.Result) error {
	return r.SaveRun(ctx, result)
}

// pointRecord stores non-finite values as NULL
type pointRecord struct {
	FileID    core.FileID     `db:"file_id"`
	Seq       int             `db:"seq"`
	Direction string          `db:"direction"`
	DeltaC    sql.NullFloat64 `db:"delta_c"`
	DeltaW    sql.NullFloat64 `db:"delta_w"`
	Magnitude sql.NullFloat64 `db:"magnitude"`
	CutVsRef  sql.NullFloat64 `db:"cut_vs_ref"`
	ParVsCut  sql.NullFloat64 `db:"par_vs_cut"`
	Bins      int             `db:"bins"`
	PValue    sql.NullFloat64 `db:"p_value"`
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func toRecord(seq int, p run.PointRow) pointRecord {
	return pointRecord{
		FileID:    p.FileID,
		Seq:       seq,
		Direction: p.Direction,
		DeltaC:    nullable(p.DeltaC),
		DeltaW:    nullable(p.DeltaW),
		Magnitude: nullable(p.Magnitude),
		CutVsRef:  nullable(p.CutVsRef),
		ParVsCut:  nullable(p.ParVsCut),
		Bins:      p.Bins,
		PValue:    nullable(p.PValue),
	}
}

func (p pointRecord) row() run.PointRow {
	return run.PointRow{
		FileID:    p.FileID,
		Direction: p.Direction,
		DeltaC:    orNaN(p.DeltaC),
		DeltaW:    orNaN(p.DeltaW),
		Magnitude: orNaN(p.Magnitude),
		CutVsRef:  orNaN(p.CutVsRef),
		ParVsCut:  orNaN(p.ParVsCut),
		Bins:      p.Bins,
		PValue:    orNaN(p.PValue),
	}
}

// SaveRun stores the run, its files, failures and points in one transaction
func (r *ResultRepository) SaveRun(ctx context.Context, result *run.Result) error {
	if result.Manifest == nil {
		return errors.InternalError("run has no manifest")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	summary := result.Summary()
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, status, fingerprint, test_lumi, file_count, failed_count, started_at, finished_at)
		VALUES (:id, :status, :fingerprint, :test_lumi, :file_count, :failed_count, :started_at, :finished_at)
	`, summary); err != nil {
		return errors.DatabaseError("failed to insert run "+summary.ID.String(), err)
	}

	files := make([]run.FileSummary, 0, len(result.Files)+len(result.Failures))
	var points []pointRecord
	for _, fr := range result.Files {
		files = append(files, fr.Summary(summary.ID))
		for _, p := range run.PointRows(fr) {
			points = append(points, toRecord(len(points), p))
		}
	}
	for _, f := range result.Failures {
		files = append(files, run.FileSummary{
			ID:       core.NewFileID(),
			RunID:    summary.ID,
			Path:     f.Path,
			BaseName: naming.BaseName(f.Path),
			Error:    fmt.Sprintf("%s: %s", f.Code, f.Error),
		})
	}

	for _, f := range files {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO run_files (id, run_id, path, base_name, name, checksum, n_bins, warnings, error)
			VALUES (:id, :run_id, :path, :base_name, :name, :checksum, :n_bins, :warnings, :error)
		`, f); err != nil {
			return errors.DatabaseError("failed to insert file "+f.Path, err)
		}
	}

	for start := 0; start < len(points); start += pointBatch {
		end := start + pointBatch
		if end > len(points) {
			end = len(points)
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO chi2_points (file_id, seq, direction, delta_c, delta_w, magnitude, cut_vs_ref, par_vs_cut, bins, p_value)
			VALUES (:file_id, :seq, :direction, :delta_c, :delta_w, :magnitude, :cut_vs_ref, :par_vs_cut, :bins, :p_value)
		`, points[start:end]); err != nil {
			return errors.DatabaseError("failed to insert chi-squared points", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit run "+summary.ID.String(), err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (r *ResultRepository) ListRuns(ctx context.Context, limit int) ([]run.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []run.Summary{}
	err := r.db.SelectContext(ctx, &runs, r.db.Rebind(`
		SELECT id, status, fingerprint, test_lumi, file_count, failed_count, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

// GetRun returns core.ErrRunNotFound for an unknown run
func (r *ResultRepository) GetRun(ctx context.Context, runID core.RunID) (*run.Summary, error) {
	var summary run.Summary
	err := r.db.GetContext(ctx, &summary, r.db.Rebind(`
		SELECT id, status, fingerprint, test_lumi, file_count, failed_count, started_at, finished_at
		FROM runs
		WHERE id = ?
	`), runID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get run "+runID.String(), err)
	}
	return &summary, nil
}

// ListFiles returns the files of a run ordered by path
func (r *ResultRepository) ListFiles(ctx context.Context, runID core.RunID) ([]run.FileSummary, error) {
	files := []run.FileSummary{}
	err := r.db.SelectContext(ctx, &files, r.db.Rebind(`
		SELECT id, run_id, path, base_name, name, checksum, n_bins, warnings, error
		FROM run_files
		WHERE run_id = ?
		ORDER BY path
	`), runID)
	if err != nil {
		return nil, errors.DatabaseError("failed to list files of run "+runID.String(), err)
	}
	return files, nil
}

// ListPoints returns chi-squared points in the order they were computed
func (r *ResultRepository) ListPoints(ctx context.Context, runID core.RunID, filters ports.PointFilters) ([]run.PointRow, error) {
	query := []string{`
		SELECT p.file_id, p.seq, p.direction, p.delta_c, p.delta_w, p.magnitude, p.cut_vs_ref, p.par_vs_cut, p.bins, p.p_value
		FROM chi2_points p
		JOIN run_files f ON f.id = p.file_id
		WHERE f.run_id = ?`}
	args := []interface{}{runID}
	if filters.File != "" {
		query = append(query, "AND (f.base_name = ? OR f.path = ?)")
		args = append(args, filters.File, filters.File)
	}
	if filters.Direction != "" {
		query = append(query, "AND p.direction = ?")
		args = append(args, filters.Direction)
	}
	query = append(query, "ORDER BY f.path, p.seq")

	var records []pointRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(strings.Join(query, "\n")), args...); err != nil {
		return nil, errors.DatabaseError("failed to list points of run "+runID.String(), err)
	}
	rows := make([]run.PointRow, len(records))
	for i, rec := range records {
		rows[i] = rec.row()
	}
	return rows, nil
}
