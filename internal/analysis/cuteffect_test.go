package analysis

import (
	"testing"

	"cutvalid/domain/metadata"
	"cutvalid/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordinateMetadata() metadata.Block {
	meta := baseMetadata()
	meta[metadata.KeyCutValue] = metadata.FloatValue(0.9925)
	meta[metadata.KeyCoordName] = metadata.ArrayValue(metadata.List(metadata.Str("costh"), metadata.Str("phi")))
	meta[metadata.KeyCoordNBins] = metadata.ArrayValue(metadata.List(metadata.Num(2), metadata.Num(1)))
	meta[metadata.KeyCoordMin] = metadata.ArrayValue(metadata.List(metadata.Num(-1), metadata.Num(0)))
	meta[metadata.KeyCoordMax] = metadata.ArrayValue(metadata.List(metadata.Num(1), metadata.Num(6)))
	meta[metadata.KeyBinCenters] = metadata.ArrayValue(metadata.List(
		metadata.List(metadata.Num(-0.5), metadata.Num(3)),
		metadata.List(metadata.Num(0.5), metadata.Num(3)),
	))
	meta[metadata.KeyNoCutData] = metadata.ArrayValue(metadata.List(metadata.Num(60), metadata.Num(35)))
	return meta
}

func TestCutEffect(t *testing.T) {
	rec := twoBinRecord(t, coordinateMetadata())

	result, err := NewAggregator(DefaultOptions(100), quietLogger()).CutEffect(rec)
	require.NoError(t, err)

	assert.Equal(t, 10.0, result.ScaleFactor)
	assert.Equal(t, 0.9925, result.CutValue)
	assert.Equal(t, []float64{600, 350}, result.NoCut)
	assert.Equal(t, []float64{500, 300}, result.Cut)
	assert.Equal(t, []float64{490, 310}, result.Par)

	require.Len(t, result.Dimensions, 2)
	costh := result.Dimensions[0]
	assert.Equal(t, "costh", costh.Name)
	assert.Equal(t, []float64{-1, 0, 1}, costh.Edges)
	assert.Equal(t, []float64{-0.5, 0.5}, costh.Centers)

	phi := result.Dimensions[1]
	assert.Equal(t, []float64{0, 6}, phi.Edges)
	assert.Equal(t, []float64{3, 3}, phi.Centers)
}

func TestCutEffectRequiresCoordinates(t *testing.T) {
	meta := coordinateMetadata()
	delete(meta, metadata.KeyCoordMax)
	rec := twoBinRecord(t, meta)

	_, err := NewAggregator(DefaultOptions(100), quietLogger()).CutEffect(rec)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestCutEffectRejectsShortNoCutData(t *testing.T) {
	meta := coordinateMetadata()
	meta[metadata.KeyNoCutData] = metadata.ArrayValue(metadata.List(metadata.Num(60)))
	rec := twoBinRecord(t, meta)

	_, err := NewAggregator(DefaultOptions(100), quietLogger()).CutEffect(rec)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}
