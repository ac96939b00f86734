package analysis

import (
	"fmt"

	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
	"cutvalid/internal/errors"

	"gonum.org/v1/gonum/floats"
)

// CutEffect returns the reference-row histograms (no cut, true cut, parametrised
// cut) scaled to the test luminosity, with the binning of each coordinate.
func (a *Aggregator) CutEffect(rec *record.ValidationRecord) (*CutEffectResult, error) {
	if a.opts.TestLumi <= 0 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("test luminosity must be positive, got %g", a.opts.TestLumi))
	}
	sc, err := prepare(rec, a.opts.TestLumi)
	if err != nil {
		return nil, err
	}

	coords, err := readCoordinates(rec, sc.nBins)
	if err != nil {
		return nil, err
	}
	noCut, err := arrayField(rec, metadata.KeyNoCutData)
	if err != nil {
		return nil, err
	}
	noCutCounts, err := noCut.Floats()
	if err != nil {
		return nil, malformed(err, "%s: %s", rec.Path(), metadata.KeyNoCutData)
	}
	if len(noCutCounts) != sc.nBins {
		return nil, errors.MalformedInput("%s: %s has %d bins, expected %d", rec.Path(), metadata.KeyNoCutData, len(noCutCounts), sc.nBins)
	}
	floats.Scale(sc.scale, noCutCounts)

	result := &CutEffectResult{
		Name:        sc.name,
		ScaleFactor: sc.scale,
		NoCut:       noCutCounts,
		Cut:         sc.refCut(),
		Par:         sc.refPar(),
		Dimensions:  coords,
	}
	if cut, err := rec.Float(metadata.KeyCutValue); err == nil {
		result.CutValue = cut
	}
	return result, nil
}

func arrayField(rec *record.ValidationRecord, key string) (metadata.Node, error) {
	node, err := rec.Array(key)
	if err != nil {
		return node, malformed(err, "%s: %s unavailable", rec.Path(), key)
	}
	return node, nil
}

// readCoordinates builds the per-dimension binning: edges are
// linspace(CoordMin, CoordMax, CoordNBins+1), centers are BinCenters[:, d].
func readCoordinates(rec *record.ValidationRecord, nBins int) ([]CutEffectDimension, error) {
	fields := map[string]metadata.Node{}
	for _, key := range []string{metadata.KeyCoordName, metadata.KeyCoordNBins, metadata.KeyCoordMin, metadata.KeyCoordMax, metadata.KeyBinCenters} {
		node, err := arrayField(rec, key)
		if err != nil {
			return nil, err
		}
		fields[key] = node
	}

	names, err := fields[metadata.KeyCoordName].Strings()
	if err != nil {
		return nil, malformed(err, "%s: %s", rec.Path(), metadata.KeyCoordName)
	}
	counts, err := fields[metadata.KeyCoordNBins].Ints()
	if err != nil {
		return nil, malformed(err, "%s: %s", rec.Path(), metadata.KeyCoordNBins)
	}
	mins, err := fields[metadata.KeyCoordMin].Floats()
	if err != nil {
		return nil, malformed(err, "%s: %s", rec.Path(), metadata.KeyCoordMin)
	}
	maxs, err := fields[metadata.KeyCoordMax].Floats()
	if err != nil {
		return nil, malformed(err, "%s: %s", rec.Path(), metadata.KeyCoordMax)
	}
	centers, err := fields[metadata.KeyBinCenters].Matrix()
	if err != nil {
		return nil, malformed(err, "%s: %s", rec.Path(), metadata.KeyBinCenters)
	}

	nDims := len(names)
	if len(counts) != nDims || len(mins) != nDims || len(maxs) != nDims {
		return nil, errors.MalformedInput("%s: coordinate arrays disagree on the number of dimensions", rec.Path())
	}
	if len(centers) != nBins {
		return nil, errors.MalformedInput("%s: %d bin centers for %d bins", rec.Path(), len(centers), nBins)
	}

	dims := make([]CutEffectDimension, nDims)
	for d := 0; d < nDims; d++ {
		if counts[d] < 1 {
			return nil, errors.MalformedInput("%s: coordinate %s has %d bins", rec.Path(), names[d], counts[d])
		}
		edges := floats.Span(make([]float64, counts[d]+1), mins[d], maxs[d])
		xs := make([]float64, nBins)
		for b, row := range centers {
			if len(row) != nDims {
				return nil, errors.MalformedInput("%s: bin center %d has %d coordinates, expected %d", rec.Path(), b, len(row), nDims)
			}
			xs[b] = row[d]
		}
		dims[d] = CutEffectDimension{Name: names[d], Edges: edges, Centers: xs}
	}
	return dims, nil
}
