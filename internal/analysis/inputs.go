package analysis

import (
	"math"

	"cutvalid/domain/delta"
	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
	"cutvalid/internal/errors"
)

// scaledCounts is the per-file view the aggregations work on. Counts are scaled
// to the test luminosity and indexed [bin][row].
type scaledCounts struct {
	name      string
	scale     float64
	nBins     int
	pairs     []delta.Pair
	reference int
	cut       [][]float64
	par       [][]float64
}

func malformed(cause error, format string, args ...interface{}) error {
	err := errors.MalformedInput(format, args...)
	err.Cause = cause
	return err
}

// ScaleFactor converts simulated counts to expected counts at testLumi:
// testLumi × CrossSection / NTotalMC.
func ScaleFactor(rec *record.ValidationRecord, testLumi float64) (float64, error) {
	xsec, err := rec.Float(metadata.KeyCrossSection)
	if err != nil {
		return 0, malformed(err, "%s: cross section unavailable", rec.Path())
	}
	nTotal, err := rec.Int(metadata.KeyNTotalMC)
	if err != nil {
		return 0, malformed(err, "%s: number of generated events unavailable", rec.Path())
	}
	if nTotal <= 0 {
		return 0, errors.MalformedInput("%s: %s must be positive, got %d", rec.Path(), metadata.KeyNTotalMC, nTotal)
	}
	return testLumi * xsec / float64(nTotal), nil
}

// ReferenceRow returns the index of the single (0,0) row
func ReferenceRow(pairs []delta.Pair) (int, error) {
	ref := -1
	for i, p := range pairs {
		if !p.IsReference() {
			continue
		}
		if ref >= 0 {
			return 0, errors.MalformedInput("more than one reference row (rows %d and %d)", ref, i)
		}
		ref = i
	}
	if ref < 0 {
		return 0, errors.MalformedInput("no reference row with Delta-c == 0 and Delta-w == 0")
	}
	return ref, nil
}

func prepare(rec *record.ValidationRecord, testLumi float64) (*scaledCounts, error) {
	scale, err := ScaleFactor(rec, testLumi)
	if err != nil {
		return nil, err
	}
	nBins, err := rec.BinCount()
	if err != nil {
		return nil, err
	}
	pairs, err := rec.Data().Pairs()
	if err != nil {
		return nil, err
	}
	ref, err := ReferenceRow(pairs)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", rec.Path())
	}

	sc := &scaledCounts{
		name:      rec.Name(),
		scale:     scale,
		nBins:     nBins,
		pairs:     pairs,
		reference: ref,
		cut:       make([][]float64, nBins),
		par:       make([][]float64, nBins),
	}
	for b := 0; b < nBins; b++ {
		if sc.cut[b], err = scaledColumn(rec.Data(), record.CutColumn(b), scale); err != nil {
			return nil, err
		}
		if sc.par[b], err = scaledColumn(rec.Data(), record.ParColumn(b), scale); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func scaledColumn(t *record.Table, name string, scale float64) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	for i := range col {
		col[i] *= scale
	}
	return col, nil
}

// refCut returns N_cut_cut0, the scaled true-cut counts of the reference row
func (sc *scaledCounts) refCut() []float64 {
	out := make([]float64, sc.nBins)
	for b := range out {
		out[b] = sc.cut[b][sc.reference]
	}
	return out
}

func (sc *scaledCounts) refPar() []float64 {
	out := make([]float64, sc.nBins)
	for b := range out {
		out[b] = sc.par[b][sc.reference]
	}
	return out
}

// maxRadius returns factor×Delta, or +Inf (no cutoff) when factor <= 0.
// A zero Delta is a real bound that keeps only the reference point.
func maxRadius(rec *record.ValidationRecord, factor float64) (float64, float64, error) {
	if factor <= 0 {
		step, _ := rec.Float(metadata.KeyDelta)
		return math.Inf(1), step, nil
	}
	step, err := rec.Float(metadata.KeyDelta)
	if err != nil {
		return 0, 0, malformed(err, "%s: grid step unavailable", rec.Path())
	}
	if step < 0 || math.IsNaN(step) {
		return 0, 0, errors.MalformedInput("%s: %s must not be negative, got %g", rec.Path(), metadata.KeyDelta, step)
	}
	return factor * step, step, nil
}
