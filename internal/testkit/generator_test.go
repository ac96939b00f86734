package testkit

import (
	"bytes"
	"strings"
	"testing"

	"cutvalid/adapters/csvmeta"
	"cutvalid/domain/delta"
	"cutvalid/internal"
	"cutvalid/internal/analysis"
	"cutvalid/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError, true)
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a, err := NewGenerator(DefaultGeneratorConfig()).Content()
	require.NoError(t, err)
	b, err := NewGenerator(DefaultGeneratorConfig()).Content()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	cfg := DefaultGeneratorConfig()
	cfg.Seed = 7
	c, err := NewGenerator(cfg).Content()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGeneratedFileParsesAndScores(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	path, err := NewGenerator(cfg).WriteFile(t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "2f_mu_81to101_250_eLpR_valdata.csv"))

	rec, err := csvmeta.NewReader(quietLogger()).ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, 25, rec.Data().Len())
	bins, err := rec.BinCount()
	require.NoError(t, err)
	assert.Equal(t, 4, bins)

	agg := analysis.NewAggregator(analysis.DefaultOptions(2000), quietLogger())
	result, err := agg.ChiSquared(rec)
	require.NoError(t, err)

	center, ok := result.Direction(delta.Center)
	require.True(t, ok)
	assert.Len(t, center.Points, 5)
	for _, p := range center.Points {
		if !p.Delta.IsReference() {
			assert.Greater(t, p.CutVsRef, 0.0, "delta %+v", p.Delta)
		}
	}

	effect, err := agg.CutEffect(rec)
	require.NoError(t, err)
	assert.Len(t, effect.NoCut, 4)
	assert.InDeltaSlice(t, []float64{-1, -0.5, 0, 0.5, 1}, effect.Dimensions[0].Edges, 1e-12)
}

func TestGeneratorWithoutCoordinates(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Coordinates = false
	content, err := NewGenerator(cfg).Content()
	require.NoError(t, err)
	assert.NotContains(t, content, "CoordName")
}

func TestGeneratorRejectsGridWithoutReference(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Steps = []int{1, 2}
	_, err := NewGenerator(cfg).Content()
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
