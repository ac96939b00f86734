// Package naming holds labelling and output-path conventions for validation results.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"cutvalid/domain/delta"
	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
	"cutvalid/internal/errors"
)

// InputSuffix is stripped from input file names to form the base name
const InputSuffix = "_valdata.csv"

// DefaultResultsDir is used next to the input file when no output directory is configured
const DefaultResultsDir = "plots"

// Kind names one family of result artefacts
type Kind string

const (
	KindChiSquared Kind = "ChiSquared"
	KindCutEffect  Kind = "CutEffect"
	KindDevCutCut0 Kind = "DevCutCut0"
	KindDevParCut  Kind = "DevParCut"
	KindSummary    Kind = "Summary"
)

// Chirality maps a beam chirality integer to its handedness letter
func Chirality(v int) (string, error) {
	switch v {
	case -1:
		return "L", nil
	case +1:
		return "R", nil
	default:
		return "", errors.MalformedInput("unknown chirality %d", v)
	}
}

// BeamLabel renders the e- and e+ chiralities, e.g. "e-L e+R"
func BeamLabel(eMinus, ePlus int) (string, error) {
	m, err := Chirality(eMinus)
	if err != nil {
		return "", errors.Wrap(err, "e- chirality")
	}
	p, err := Chirality(ePlus)
	if err != nil {
		return "", errors.Wrap(err, "e+ chirality")
	}
	return fmt.Sprintf("e-%s e+%s", m, p), nil
}

// Title builds a plot or sheet title for a record at the given luminosity.
// Records without chirality fields get the name and luminosity only.
func Title(rec *record.ValidationRecord, lumi float64) (string, error) {
	title := rec.Name()
	if rec.Has(metadata.KeyEMinusChiral) && rec.Has(metadata.KeyEPlusChiral) {
		m, err := rec.Int(metadata.KeyEMinusChiral)
		if err != nil {
			return "", err
		}
		p, err := rec.Int(metadata.KeyEPlusChiral)
		if err != nil {
			return "", err
		}
		beams, err := BeamLabel(m, p)
		if err != nil {
			return "", err
		}
		title += " : " + beams
	}
	return fmt.Sprintf("%s @ %g fb^-1", title, lumi), nil
}

// BaseName strips the directory and the _valdata.csv suffix from an input path
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), InputSuffix)
}

// Layout places result files under Root/<format>/<kind>/
type Layout struct {
	Root string
}

// LayoutFor returns the layout for an input file: outputDir when set,
// otherwise a plots directory next to the input.
func LayoutFor(outputDir, inputPath string) Layout {
	if outputDir != "" {
		return Layout{Root: outputDir}
	}
	return Layout{Root: filepath.Join(filepath.Dir(inputPath), DefaultResultsDir)}
}

// Dir returns the directory holding artefacts of one format and kind
func (l Layout) Dir(format string, kind Kind) string {
	return filepath.Join(l.Root, format, string(kind))
}

// FileName joins base, the optional coordinate, the kind and the optional
// direction slug: <base>[_<coord>]_<kind>[_<direction>].<format>
func FileName(base, coord string, kind Kind, dir *delta.Direction, format string) string {
	parts := []string{base}
	if coord != "" {
		parts = append(parts, coord)
	}
	parts = append(parts, string(kind))
	if dir != nil {
		parts = append(parts, dir.Slug())
	}
	return strings.Join(parts, "_") + "." + format
}

// Path is Dir joined with FileName
func (l Layout) Path(format string, kind Kind, base, coord string, dir *delta.Direction) string {
	return filepath.Join(l.Dir(format, kind), FileName(base, coord, kind, dir, format))
}
