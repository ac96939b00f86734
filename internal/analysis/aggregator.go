// Package analysis compares the true cut, its parametrisation and the nominal cut
// at every deviation point of a validation record.
package analysis

import (
	"fmt"

	"cutvalid/domain/delta"
	"cutvalid/domain/record"
	"cutvalid/internal"
	"cutvalid/internal/errors"

	"gonum.org/v1/gonum/stat/distuv"
)

// Aggregator computes χ² scans and difference arrays. It keeps no state between
// records and may be shared by goroutines.
type Aggregator struct {
	opts   Options
	logger *internal.Logger
}

// NewAggregator creates an aggregator; a nil logger falls back to the default logger
func NewAggregator(opts Options, logger *internal.Logger) *Aggregator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Aggregator{opts: opts, logger: logger}
}

// Options returns the configured options
func (a *Aggregator) Options() Options {
	return a.opts
}

// ChiSquared scores every requested direction of rec. For each selected row it sums,
// over bins affected by the cut:
//
//	chi2_par_vs_cut += (N_par − N_cut)² / N_cut
//	chi2_cut_vs_ref += (N_cut − N_cut0)² / N_cut0
//
// Bins with N_cut <= 0 are skipped (with a warning if N_par differs), as are bins
// whose N_cut equals N_cut0 for every selected row of the direction.
func (a *Aggregator) ChiSquared(rec *record.ValidationRecord) (*ChiSquaredResult, error) {
	if a.opts.TestLumi <= 0 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("test luminosity must be positive, got %g", a.opts.TestLumi))
	}
	sc, err := prepare(rec, a.opts.TestLumi)
	if err != nil {
		return nil, err
	}
	radius, step, err := maxRadius(rec, a.opts.CutoffFactor)
	if err != nil {
		return nil, err
	}

	result := &ChiSquaredResult{
		Name:        sc.name,
		ScaleFactor: sc.scale,
		Delta:       step,
		MaxRadius:   radius,
		NBins:       sc.nBins,
		Directions:  make([]DirectionResult, 0, len(a.opts.Directions)),
	}
	ref := sc.refCut()

	for _, dir := range a.opts.Directions {
		a.logger.Debug("[analysis] %s: scoring direction %s", sc.name, dir.Label())
		rows := delta.Select(dir, sc.pairs, radius)
		unaffected := unaffectedBins(sc.cut, ref, rows)

		dr := DirectionResult{Direction: dir, Points: make([]ChiSquaredPoint, 0, len(rows))}
		for _, row := range rows {
			point, warnings := scorePoint(sc, ref, unaffected, row)
			for _, w := range warnings {
				a.logger.Warn("%s: %s", sc.name, w)
			}
			result.Warnings = append(result.Warnings, warnings...)
			dr.Points = append(dr.Points, point)
		}
		dr.CutVsRef = Summarize(dr.CutVsRefValues())
		dr.ParVsCut = Summarize(dr.ParVsCutValues())
		result.Directions = append(result.Directions, dr)
	}
	return result, nil
}

// unaffectedBins marks bins whose true-cut count equals the reference for all rows
func unaffectedBins(cut [][]float64, ref []float64, rows []int) []bool {
	out := make([]bool, len(ref))
	for b := range ref {
		same := true
		for _, row := range rows {
			if cut[b][row] != ref[b] {
				same = false
				break
			}
		}
		out[b] = same
	}
	return out
}

func scorePoint(sc *scaledCounts, ref []float64, unaffected []bool, row int) (ChiSquaredPoint, []DomainWarning) {
	p := sc.pairs[row]
	point := ChiSquaredPoint{Delta: p, Magnitude: p.Magnitude()}
	var warnings []DomainWarning

	for b := 0; b < sc.nBins; b++ {
		nCut, nPar := sc.cut[b][row], sc.par[b][row]
		if !(nCut > 0) {
			if nPar != nCut {
				warnings = append(warnings, DomainWarning{
					Bin: b, Delta: p, Cut: nCut, Par: nPar, Ref: ref[b],
					Message: "cut count is 0 but parametrisation is not",
				})
			}
			continue
		}
		if unaffected[b] {
			continue
		}

		point.ParVsCut += (nPar - nCut) * (nPar - nCut) / nCut
		if !(ref[b] > delta.RatioEpsilon) {
			warnings = append(warnings, DomainWarning{
				Bin: b, Delta: p, Cut: nCut, Par: nPar, Ref: ref[b],
				Message: "reference count is 0 but cut count is not; shift term skipped",
			})
		}
		point.CutVsRef += delta.Ratio((nCut-ref[b])*(nCut-ref[b]), ref[b], 0)
		point.Bins++
	}
	point.PValue = pValue(point.ParVsCut, point.Bins)
	return point, warnings
}

func pValue(chi2 float64, dof int) float64 {
	if dof <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(dof)}.Survival(chi2)
}
