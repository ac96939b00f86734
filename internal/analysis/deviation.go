package analysis

import (
	"fmt"

	"cutvalid/domain/delta"
	"cutvalid/domain/record"
	"cutvalid/internal/errors"
)

// Deviations returns, for every requested direction, the scaled per-bin differences
// N_cut − N_cut0, N_par − N_cut and N_par − N_cut0 at each selected row.
func (a *Aggregator) Deviations(rec *record.ValidationRecord) (*DeviationResult, error) {
	if a.opts.TestLumi <= 0 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("test luminosity must be positive, got %g", a.opts.TestLumi))
	}
	sc, err := prepare(rec, a.opts.TestLumi)
	if err != nil {
		return nil, err
	}
	radius, step, err := maxRadius(rec, a.opts.DiffCutoffFactor)
	if err != nil {
		return nil, err
	}

	result := &DeviationResult{
		Name:        sc.name,
		ScaleFactor: sc.scale,
		Delta:       step,
		NBins:       sc.nBins,
		Directions:  make([]DirectionDiffs, 0, len(a.opts.DiffDirections)),
	}
	refCut := sc.refCut()

	for _, dir := range a.opts.DiffDirections {
		rows := delta.Select(dir, sc.pairs, radius)
		dd := DirectionDiffs{
			Direction:   dir,
			Deltas:      make([]delta.Pair, len(rows)),
			Labels:      make([]string, len(rows)),
			CutMinusRef: make([][]float64, sc.nBins),
			ParMinusCut: make([][]float64, sc.nBins),
			ParMinusRef: make([][]float64, sc.nBins),
		}
		for i, row := range rows {
			dd.Deltas[i] = sc.pairs[row]
			dd.Labels[i] = DeltaLabel(sc.pairs[row], step)
		}
		for b := 0; b < sc.nBins; b++ {
			dd.CutMinusRef[b] = make([]float64, len(rows))
			dd.ParMinusCut[b] = make([]float64, len(rows))
			dd.ParMinusRef[b] = make([]float64, len(rows))
			for i, row := range rows {
				nCut, nPar := sc.cut[b][row], sc.par[b][row]
				dd.CutMinusRef[b][i] = nCut - refCut[b]
				dd.ParMinusCut[b][i] = nPar - nCut
				dd.ParMinusRef[b][i] = nPar - refCut[b]
			}
		}
		result.Directions = append(result.Directions, dd)
	}
	return result, nil
}

// DeltaLabel renders a deviation point in units of the grid step, e.g. "(1 δ, -0.5 δ)".
// Without a usable step the raw values are printed.
func DeltaLabel(p delta.Pair, step float64) string {
	c := delta.Ratio(p.C, step, p.C)
	w := delta.Ratio(p.W, step, p.W)
	if step == 0 {
		return fmt.Sprintf("(%g, %g)", c, w)
	}
	return fmt.Sprintf("(%g δ, %g δ)", c, w)
}
