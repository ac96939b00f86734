package analysis

import (
	"fmt"

	"cutvalid/domain/delta"
)

// DefaultCutoffFactor excludes points further than twice the grid step from χ² scoring
const DefaultCutoffFactor = 2.0

// Options configures an Aggregator
type Options struct {
	// TestLumi is the integrated luminosity (fb⁻¹) counts are scaled to.
	TestLumi float64
	// CutoffFactor sets the χ² cutoff radius to CutoffFactor×Delta; <= 0 disables it
	// and the result reports an infinite MaxRadius.
	CutoffFactor float64
	// DiffCutoffFactor is the same cutoff for the difference arrays.
	DiffCutoffFactor float64
	// Directions lists the selections χ² sequences are produced for.
	Directions []delta.Direction
	// DiffDirections lists the selections difference arrays are produced for.
	DiffDirections []delta.Direction
}

// DefaultOptions returns the standard validation settings at the given luminosity
func DefaultOptions(testLumi float64) Options {
	return Options{
		TestLumi:       testLumi,
		CutoffFactor:   DefaultCutoffFactor,
		Directions:     []delta.Direction{delta.AllPoints, delta.Center, delta.Width, delta.UpperEdge, delta.LowerEdge},
		DiffDirections: append([]delta.Direction(nil), delta.Axes...),
	}
}

// ChiSquaredPoint holds both χ² sums at one deviation point
type ChiSquaredPoint struct {
	Delta     delta.Pair `json:"delta"`
	Magnitude float64    `json:"magnitude"`
	// CutVsRef is Σ (N_cut − N_cut0)² / N_cut0 over affected bins.
	CutVsRef float64 `json:"chi2_cut_vs_ref"`
	// ParVsCut is Σ (N_par − N_cut)² / N_cut over affected bins.
	ParVsCut float64 `json:"chi2_par_vs_cut"`
	// Bins is the number of bins that contributed.
	Bins int `json:"bins"`
	// PValue is the χ² survival probability of ParVsCut with Bins degrees of freedom.
	PValue float64 `json:"p_value"`
}

// Summary describes one χ² sequence
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// DirectionResult is the ordered χ² sequence of one direction
type DirectionResult struct {
	Direction delta.Direction   `json:"direction"`
	Points    []ChiSquaredPoint `json:"points"`
	CutVsRef  Summary           `json:"cut_vs_ref"`
	ParVsCut  Summary           `json:"par_vs_cut"`
}

// CutVsRefValues returns the CutVsRef column in point order
func (d DirectionResult) CutVsRefValues() []float64 {
	out := make([]float64, len(d.Points))
	for i, p := range d.Points {
		out[i] = p.CutVsRef
	}
	return out
}

// ParVsCutValues returns the ParVsCut column in point order
func (d DirectionResult) ParVsCutValues() []float64 {
	out := make([]float64, len(d.Points))
	for i, p := range d.Points {
		out[i] = p.ParVsCut
	}
	return out
}

// DomainWarning flags an inconsistent bin that was skipped or defaulted. It never
// aborts processing.
type DomainWarning struct {
	Bin     int        `json:"bin"`
	Delta   delta.Pair `json:"delta"`
	Cut     float64    `json:"n_cut"`
	Par     float64    `json:"n_par"`
	Ref     float64    `json:"n_cut_ref"`
	Message string     `json:"message"`
}

func (w DomainWarning) String() string {
	return fmt.Sprintf("bin %d at deviation (%g, %g): %s", w.Bin, w.Delta.C, w.Delta.W, w.Message)
}

// ChiSquaredResult is the χ² scan of one file
type ChiSquaredResult struct {
	Name        string            `json:"name"`
	ScaleFactor float64           `json:"scale_factor"`
	Delta       float64           `json:"delta"`
	MaxRadius   float64           `json:"max_radius"`
	NBins       int               `json:"n_bins"`
	Directions  []DirectionResult `json:"directions"`
	Warnings    []DomainWarning   `json:"warnings,omitempty"`
}

// Direction returns the sequence of d, if it was requested
func (r *ChiSquaredResult) Direction(d delta.Direction) (DirectionResult, bool) {
	for _, dr := range r.Directions {
		if dr.Direction == d {
			return dr, true
		}
	}
	return DirectionResult{}, false
}

// DirectionDiffs holds the scaled per-bin differences of one direction, indexed
// [bin][row] with rows in file order.
type DirectionDiffs struct {
	Direction   delta.Direction `json:"direction"`
	Deltas      []delta.Pair    `json:"deltas"`
	Labels      []string        `json:"labels"`
	CutMinusRef [][]float64     `json:"cut_minus_ref"`
	ParMinusCut [][]float64     `json:"par_minus_cut"`
	ParMinusRef [][]float64     `json:"par_minus_ref"`
}

// DeviationResult holds the difference arrays of one file
type DeviationResult struct {
	Name        string           `json:"name"`
	ScaleFactor float64          `json:"scale_factor"`
	Delta       float64          `json:"delta"`
	NBins       int              `json:"n_bins"`
	Directions  []DirectionDiffs `json:"directions"`
}

// CutEffectDimension is the binning along one coordinate
type CutEffectDimension struct {
	Name    string    `json:"name"`
	Edges   []float64 `json:"edges"`
	Centers []float64 `json:"centers"`
}

// CutEffectResult holds the scaled reference histograms without cut, with the true
// cut and with the parametrised cut.
type CutEffectResult struct {
	Name        string               `json:"name"`
	ScaleFactor float64              `json:"scale_factor"`
	CutValue    float64              `json:"cut_value"`
	NoCut       []float64            `json:"no_cut"`
	Cut         []float64            `json:"cut"`
	Par         []float64            `json:"par"`
	Dimensions  []CutEffectDimension `json:"dimensions"`
}
