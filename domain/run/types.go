package run

import (
	"sort"
	"time"

	"cutvalid/domain/core"
	"cutvalid/domain/delta"
	"cutvalid/internal/analysis"
)

// Status is the outcome of a batch run
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusPartial means at least one file failed and at least one succeeded.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// FileResult is everything computed for one validation file
type FileResult struct {
	ID         core.FileID                `json:"id"`
	Path       string                     `json:"path"`
	BaseName   string                     `json:"base_name"`
	Name       string                     `json:"name"`
	Title      string                     `json:"title"`
	Checksum   core.Hash                  `json:"checksum"`
	HeaderLine int                        `json:"header_line"`
	Metadata   map[string]string          `json:"metadata"`
	ChiSquared *analysis.ChiSquaredResult `json:"chi_squared"`
	Deviations *analysis.DeviationResult  `json:"deviations"`
	// CutEffect is nil when the file carries no coordinate metadata.
	CutEffect *analysis.CutEffectResult `json:"cut_effect,omitempty"`
	Duration  time.Duration             `json:"duration"`
}

// Warnings returns the domain warnings raised while scoring the file
func (f *FileResult) Warnings() []analysis.DomainWarning {
	if f.ChiSquared == nil {
		return nil
	}
	return f.ChiSquared.Warnings
}

// Points returns the chi-squared points of one direction
func (f *FileResult) Points(d delta.Direction) []analysis.ChiSquaredPoint {
	if f.ChiSquared == nil {
		return nil
	}
	dr, ok := f.ChiSquared.Direction(d)
	if !ok {
		return nil
	}
	return dr.Points
}

// FileFailure records a file that could not be processed
type FileFailure struct {
	Path  string `json:"path"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Result is the outcome of one batch run
type Result struct {
	Manifest   *Manifest      `json:"manifest"`
	Status     Status         `json:"status"`
	Files      []*FileResult  `json:"files"`
	Failures   []FileFailure  `json:"failures"`
	FinishedAt core.Timestamp `json:"finished_at"`
}

// RunID returns the run's identifier
func (r *Result) RunID() core.RunID {
	if r.Manifest == nil {
		return ""
	}
	return r.Manifest.RunID
}

// Finish orders files and failures by path and derives the status
func (r *Result) Finish() {
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Path < r.Failures[j].Path })
	r.FinishedAt = core.Now()

	switch {
	case len(r.Failures) == 0:
		r.Status = StatusCompleted
	case len(r.Files) == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}

// Summary is the stored, listable view of a run
type Summary struct {
	ID          core.RunID `json:"id" db:"id"`
	Status      Status     `json:"status" db:"status"`
	Fingerprint core.Hash  `json:"fingerprint" db:"fingerprint"`
	TestLumi    float64    `json:"test_lumi" db:"test_lumi"`
	FileCount   int        `json:"file_count" db:"file_count"`
	FailedCount int        `json:"failed_count" db:"failed_count"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// FileSummary is the stored view of one processed file
type FileSummary struct {
	ID       core.FileID `json:"id" db:"id"`
	RunID    core.RunID  `json:"run_id" db:"run_id"`
	Path     string      `json:"path" db:"path"`
	BaseName string      `json:"base_name" db:"base_name"`
	Name     string      `json:"name" db:"name"`
	Checksum core.Hash   `json:"checksum" db:"checksum"`
	NBins    int         `json:"n_bins" db:"n_bins"`
	Warnings int         `json:"warnings" db:"warnings"`
	Error    string      `json:"error,omitempty" db:"error"`
}

// PointRow is one stored chi-squared point
type PointRow struct {
	FileID    core.FileID `json:"file_id" db:"file_id"`
	Direction string      `json:"direction" db:"direction"`
	DeltaC    float64     `json:"delta_c" db:"delta_c"`
	DeltaW    float64     `json:"delta_w" db:"delta_w"`
	Magnitude float64     `json:"magnitude" db:"magnitude"`
	CutVsRef  float64     `json:"cut_vs_ref" db:"cut_vs_ref"`
	ParVsCut  float64     `json:"par_vs_cut" db:"par_vs_cut"`
	Bins      int         `json:"bins" db:"bins"`
	PValue    float64     `json:"p_value" db:"p_value"`
}

// PointRows flattens a file's chi-squared result into rows
func PointRows(f *FileResult) []PointRow {
	if f.ChiSquared == nil {
		return nil
	}
	var rows []PointRow
	for _, dr := range f.ChiSquared.Directions {
		for _, p := range dr.Points {
			rows = append(rows, PointRow{
				FileID:    f.ID,
				Direction: dr.Direction.String(),
				DeltaC:    p.Delta.C,
				DeltaW:    p.Delta.W,
				Magnitude: p.Magnitude,
				CutVsRef:  p.CutVsRef,
				ParVsCut:  p.ParVsCut,
				Bins:      p.Bins,
				PValue:    p.PValue,
			})
		}
	}
	return rows
}

// Summary returns the stored view of the run
func (r *Result) Summary() Summary {
	m := r.Manifest
	s := Summary{
		ID:          m.RunID,
		Status:      r.Status,
		Fingerprint: m.Fingerprint,
		TestLumi:    m.Settings.TestLumi,
		FileCount:   len(r.Files),
		FailedCount: len(r.Failures),
		StartedAt:   m.CreatedAt.Time().UTC(),
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt.Time().UTC()
		s.FinishedAt = &finished
	}
	return s
}

// Summary returns the stored view of the file within run runID
func (f *FileResult) Summary(runID core.RunID) FileSummary {
	s := FileSummary{
		ID:       f.ID,
		RunID:    runID,
		Path:     f.Path,
		BaseName: f.BaseName,
		Name:     f.Name,
		Checksum: f.Checksum,
		Warnings: len(f.Warnings()),
	}
	if f.ChiSquared != nil {
		s.NBins = f.ChiSquared.NBins
	}
	return s
}
