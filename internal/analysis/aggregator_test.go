package analysis

import (
	"bytes"
	"math"
	"testing"

	"cutvalid/domain/delta"
	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
	"cutvalid/internal"
	"cutvalid/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError, true)
}

func baseMetadata() metadata.Block {
	return metadata.Block{
		metadata.KeyDelta:        metadata.FloatValue(1.0),
		metadata.KeyCrossSection: metadata.FloatValue(10.0),
		metadata.KeyNTotalMC:     metadata.IntValue(100),
	}
}

func buildRecord(t *testing.T, meta metadata.Block, columns []string, rows [][]float64) *record.ValidationRecord {
	t.Helper()
	table, err := record.NewTable(columns, rows)
	require.NoError(t, err)
	rec, err := record.New("test_valdata.csv", 5, meta, table)
	require.NoError(t, err)
	return rec
}

func oneBinColumns() []string {
	return []string{record.ColDeltaC, record.ColDeltaW, "C0", "P0"}
}

func TestChiSquaredEndToEndScenario(t *testing.T) {
	rec := buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{1.0, 0, 60, 55},
	})

	agg := NewAggregator(DefaultOptions(100), quietLogger())
	result, err := agg.ChiSquared(rec)
	require.NoError(t, err)

	assert.Equal(t, 10.0, result.ScaleFactor)
	assert.Equal(t, 2.0, result.MaxRadius)
	assert.Equal(t, 1, result.NBins)

	center, ok := result.Direction(delta.Center)
	require.True(t, ok)
	require.Len(t, center.Points, 2)

	ref := center.Points[0]
	assert.Equal(t, delta.Pair{}, ref.Delta)
	assert.Equal(t, 0.0, ref.CutVsRef)
	assert.Equal(t, 0.0, ref.ParVsCut)

	dev := center.Points[1]
	assert.Equal(t, delta.Pair{C: 1}, dev.Delta)
	assert.InDelta(t, 20.0, dev.CutVsRef, 1e-9)
	assert.InDelta(t, 2500.0/600.0, dev.ParVsCut, 1e-9)
	assert.InDelta(t, 4.1667, dev.ParVsCut, 1e-4)
	assert.Equal(t, 1, dev.Bins)
	assert.Greater(t, dev.PValue, 0.0)
	assert.Less(t, dev.PValue, 1.0)
	assert.Empty(t, result.Warnings)
}

func TestChiSquaredRequiresReferenceRow(t *testing.T) {
	rec := buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{
		{1, 0, 60, 55},
		{0, 1, 40, 42},
	})
	_, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestChiSquaredRejectsDuplicateReferenceRow(t *testing.T) {
	rec := buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{0, 0, 51, 50},
	})
	_, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestChiSquaredSkipsUnaffectedBins(t *testing.T) {
	columns := []string{record.ColDeltaC, record.ColDeltaW, "C0", "C1", "P0", "P1"}
	rec := buildRecord(t, baseMetadata(), columns, [][]float64{
		{0, 0, 50, 30, 50, 99},
		{1, 0, 60, 30, 55, 1},
		{2, 0, 70, 30, 65, 500},
	})

	result, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	require.NoError(t, err)
	center, ok := result.Direction(delta.Center)
	require.True(t, ok)
	require.Len(t, center.Points, 3)

	// Bin 1 never moves away from the reference, so only bin 0 contributes.
	dev := center.Points[1]
	assert.Equal(t, 1, dev.Bins)
	assert.InDelta(t, 20.0, dev.CutVsRef, 1e-9)
	assert.InDelta(t, 2500.0/600.0, dev.ParVsCut, 1e-9)

	far := center.Points[2]
	assert.InDelta(t, 200.0*200.0/500.0, far.CutVsRef, 1e-9)
	assert.InDelta(t, 50.0*50.0/700.0, far.ParVsCut, 1e-9)
}

func TestChiSquaredCutoffExcludesOuterPoints(t *testing.T) {
	rec := buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{2, 0, 60, 55},
		{3, 0, 70, 60},
		{0, 3, 70, 60},
		{2.5, 5, 70, 60},
		{1, 1, 55, 55},
	})

	result, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	require.NoError(t, err)

	for _, dr := range result.Directions {
		for _, p := range dr.Points {
			assert.LessOrEqual(t, p.Magnitude, 2.0, "direction %s", dr.Direction)
		}
	}
	center, _ := result.Direction(delta.Center)
	assert.Len(t, center.Points, 2)
	width, _ := result.Direction(delta.Width)
	assert.Len(t, width.Points, 1)
	upper, _ := result.Direction(delta.UpperEdge)
	assert.Len(t, upper.Points, 1)
	all, _ := result.Direction(delta.AllPoints)
	assert.Len(t, all.Points, 3)
}

func TestChiSquaredZeroDeltaKeepsOnlyReference(t *testing.T) {
	meta := baseMetadata()
	meta[metadata.KeyDelta] = metadata.FloatValue(0)
	rec := buildRecord(t, meta, oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{5, 0, 60, 55},
	})

	result, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.MaxRadius)

	center, ok := result.Direction(delta.Center)
	require.True(t, ok)
	require.Len(t, center.Points, 1)
	assert.True(t, center.Points[0].Delta.IsReference())
}

func TestChiSquaredRejectsNegativeDelta(t *testing.T) {
	meta := baseMetadata()
	meta[metadata.KeyDelta] = metadata.FloatValue(-1)
	rec := buildRecord(t, meta, oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{1, 0, 60, 55},
	})

	_, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestChiSquaredDisabledCutoffScoresEveryPoint(t *testing.T) {
	rec := buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{5, 0, 60, 55},
	})

	opts := DefaultOptions(100)
	opts.CutoffFactor = 0
	result, err := NewAggregator(opts, quietLogger()).ChiSquared(rec)
	require.NoError(t, err)
	assert.True(t, math.IsInf(result.MaxRadius, 1))

	center, _ := result.Direction(delta.Center)
	assert.Len(t, center.Points, 2)
}

func TestChiSquaredWarnsOnZeroCutWithNonZeroParametrisation(t *testing.T) {
	columns := []string{record.ColDeltaC, record.ColDeltaW, "C0", "C1", "P0", "P1"}
	rec := buildRecord(t, baseMetadata(), columns, [][]float64{
		{0, 0, 50, 10, 50, 10},
		{1, 0, 60, 0, 55, 2},
	})

	var logs bytes.Buffer
	logger := internal.NewLoggerTo(&logs, internal.LogLevelWarn, true)
	result, err := NewAggregator(DefaultOptions(100), logger).ChiSquared(rec)
	require.NoError(t, err)

	require.NotEmpty(t, result.Warnings)
	w := result.Warnings[0]
	assert.Equal(t, 1, w.Bin)
	assert.Equal(t, delta.Pair{C: 1}, w.Delta)
	assert.Contains(t, logs.String(), "cut count is 0")

	center, _ := result.Direction(delta.Center)
	dev := center.Points[1]
	assert.Equal(t, 1, dev.Bins)
	assert.InDelta(t, 20.0, dev.CutVsRef, 1e-9)
}

func TestChiSquaredEmptyDirection(t *testing.T) {
	rec := buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{
		{0, 0, 50, 50},
		{1, 0, 60, 55},
	})
	opts := DefaultOptions(100)
	opts.Directions = []delta.Direction{delta.Combination, delta.Center}

	result, err := NewAggregator(opts, quietLogger()).ChiSquared(rec)
	require.NoError(t, err)
	require.Len(t, result.Directions, 2)
	assert.Empty(t, result.Directions[0].Points)
	assert.Equal(t, 0, result.Directions[0].ParVsCut.N)
	assert.Len(t, result.Directions[1].Points, 2)
}

func TestChiSquaredMissingMetadata(t *testing.T) {
	meta := baseMetadata()
	delete(meta, metadata.KeyCrossSection)
	rec := buildRecord(t, meta, oneBinColumns(), [][]float64{{0, 0, 50, 50}})

	_, err := NewAggregator(DefaultOptions(100), quietLogger()).ChiSquared(rec)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
	assert.True(t, errors.HasCode(err, errors.CodeUnknownField))

	rec = buildRecord(t, baseMetadata(), oneBinColumns(), [][]float64{{0, 0, 50, 50}})
	_, err = NewAggregator(DefaultOptions(0), quietLogger()).ChiSquared(rec)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, s.N)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 2.5, s.Median)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, Summary{}, Summarize(nil))
}
