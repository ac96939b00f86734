package report

import (
	"context"
	"os"
	"path/filepath"

	"cutvalid/domain/run"
	"cutvalid/internal"
	"cutvalid/internal/errors"
	"cutvalid/internal/naming"
)

// Format is the output format name and file extension
const Format = "html"

// Writer saves one HTML report per run
type Writer struct {
	outputDir string
	logger    *internal.Logger
}

// NewWriter creates a report writer. With an empty outputDir the report goes
// next to the first processed (or failed) input.
func NewWriter(outputDir string, logger *internal.Logger) *Writer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Writer{outputDir: outputDir, logger: logger}
}

func (w *Writer) Name() string { return Format }

// PathFor returns where the report of result is written
func (w *Writer) PathFor(result *run.Result) string {
	anchor := ""
	switch {
	case len(result.Files) > 0:
		anchor = result.Files[0].Path
	case len(result.Failures) > 0:
		anchor = result.Failures[0].Path
	}
	layout := naming.LayoutFor(w.outputDir, anchor)
	return filepath.Join(layout.Dir(Format, naming.KindSummary), "run_"+string(result.RunID())+"."+Format)
}

// Write renders and saves the run report
func (w *Writer) Write(ctx context.Context, result *run.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := w.PathFor(result)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create report directory %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, HTML(FromResult(result)), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write report %s", path)
	}
	w.logger.Info("[report] wrote %s", path)
	return nil
}
