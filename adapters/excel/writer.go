// Package excel exports validation results as xlsx workbooks.
package excel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"cutvalid/domain/run"
	"cutvalid/internal"
	"cutvalid/internal/analysis"
	"cutvalid/internal/errors"
	"cutvalid/internal/naming"
)

// Format is the output format name and file extension
const Format = "xlsx"

const metadataSheet = "Metadata"

// Writer writes one workbook per processed file
type Writer struct {
	outputDir string
	logger    *internal.Logger
}

// NewWriter creates a workbook writer; an empty outputDir writes next to each input
func NewWriter(outputDir string, logger *internal.Logger) *Writer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Writer{outputDir: outputDir, logger: logger}
}

func (w *Writer) Name() string { return Format }

// Write exports every file of the run
func (w *Writer) Write(ctx context.Context, result *run.Result) error {
	for _, fr := range result.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := w.PathFor(fr)
		if err := WriteFile(path, fr); err != nil {
			return err
		}
		w.logger.Debug("[excel] wrote %s", path)
	}
	return nil
}

// PathFor returns where the workbook of fr is written
func (w *Writer) PathFor(fr *run.FileResult) string {
	return naming.LayoutFor(w.outputDir, fr.Path).Path(Format, naming.KindSummary, fr.BaseName, "", nil)
}

// WriteFile saves the workbook of one file result at path, creating parent directories
func WriteFile(path string, fr *run.FileResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", metadataSheet); err != nil {
		return errors.Wrap(err, "failed to prepare workbook")
	}
	if err := writeMetadata(f, fr); err != nil {
		return err
	}
	if fr.ChiSquared != nil {
		for _, dr := range fr.ChiSquared.Directions {
			if err := writeChiSquared(f, dr); err != nil {
				return err
			}
		}
		if err := writeWarnings(f, fr.ChiSquared.Warnings); err != nil {
			return err
		}
	}
	if fr.Deviations != nil {
		for _, dd := range fr.Deviations.Directions {
			if err := writeDiffs(f, dd); err != nil {
				return err
			}
		}
	}
	if fr.CutEffect != nil {
		if err := writeCutEffect(f, fr.CutEffect); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

func writeMetadata(f *excelize.File, fr *run.FileResult) error {
	rows := [][]interface{}{
		{"Key", "Value"},
		{"Title", fr.Title},
		{"Path", fr.Path},
		{"Checksum", fr.Checksum.String()},
	}
	if fr.ChiSquared != nil {
		rows = append(rows,
			[]interface{}{"ScaleFactor", cell(fr.ChiSquared.ScaleFactor)},
			[]interface{}{"MaxRadius", cell(fr.ChiSquared.MaxRadius)},
			[]interface{}{"NBins", fr.ChiSquared.NBins},
		)
	}
	keys := make([]string, 0, len(fr.Metadata))
	for k := range fr.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []interface{}{k, fr.Metadata[k]})
	}
	return writeRows(f, metadataSheet, rows)
}

func writeChiSquared(f *excelize.File, dr analysis.DirectionResult) error {
	rows := [][]interface{}{
		{"Delta-c", "Delta-w", "Magnitude", "Chi2 cut vs ref", "Chi2 par vs cut", "Bins", "p-value"},
	}
	for _, p := range dr.Points {
		rows = append(rows, []interface{}{
			cell(p.Delta.C), cell(p.Delta.W), cell(p.Magnitude),
			cell(p.CutVsRef), cell(p.ParVsCut), p.Bins, cell(p.PValue),
		})
	}
	return writeRows(f, "Chi2 "+dr.Direction.Label(), rows)
}

func writeDiffs(f *excelize.File, dd analysis.DirectionDiffs) error {
	rows := [][]interface{}{
		{"Bin", "Delta", "Delta-c", "Delta-w", "Cut - Cut0", "Par - Cut", "Par - Cut0"},
	}
	for b := range dd.CutMinusRef {
		for i, p := range dd.Deltas {
			rows = append(rows, []interface{}{
				b, dd.Labels[i], cell(p.C), cell(p.W),
				cell(dd.CutMinusRef[b][i]), cell(dd.ParMinusCut[b][i]), cell(dd.ParMinusRef[b][i]),
			})
		}
	}
	return writeRows(f, "Diff "+dd.Direction.Label(), rows)
}

func writeCutEffect(f *excelize.File, ce *analysis.CutEffectResult) error {
	header := []interface{}{"Bin"}
	for _, dim := range ce.Dimensions {
		header = append(header, dim.Name)
	}
	header = append(header, "No cut", "Cut", "Par")
	rows := [][]interface{}{header}

	for b := range ce.NoCut {
		row := []interface{}{b}
		for _, dim := range ce.Dimensions {
			row = append(row, cell(dim.Centers[b]))
		}
		row = append(row, cell(ce.NoCut[b]), cell(ce.Cut[b]), cell(ce.Par[b]))
		rows = append(rows, row)
	}
	return writeRows(f, string(naming.KindCutEffect), rows)
}

func writeWarnings(f *excelize.File, warnings []analysis.DomainWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	rows := [][]interface{}{{"Bin", "Delta-c", "Delta-w", "Cut", "Par", "Ref", "Message"}}
	for _, w := range warnings {
		rows = append(rows, []interface{}{w.Bin, cell(w.Delta.C), cell(w.Delta.W), cell(w.Cut), cell(w.Par), cell(w.Ref), w.Message})
	}
	return writeRows(f, "Warnings", rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrapf(err, "failed to add sheet %q", sheet)
		}
	}
	for r, row := range rows {
		start, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return errors.Wrapf(err, "failed to write sheet %q", sheet)
		}
	}
	return nil
}

// cell leaves non-finite values empty; xlsx has no representation for them
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
