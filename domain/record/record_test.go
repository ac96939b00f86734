package record

import (
	"testing"

	"cutvalid/domain/delta"
	"cutvalid/domain/metadata"
	"cutvalid/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		[]string{ColDeltaC, ColDeltaW, "C0", "P0"},
		[][]float64{
			{0, 0, 100, 101},
			{0.001, 0, 90, 92},
		},
	)
	require.NoError(t, err)
	return table
}

func TestRecordNamespace(t *testing.T) {
	meta := metadata.Block{
		metadata.KeyEnergy: metadata.IntValue(250),
		metadata.KeyDelta:  metadata.FloatValue(0.001),
		"Process":          metadata.StringValue("2f_mu"),
	}
	table := sampleTable(t)
	rec, err := New("/data/mu_valdata.csv", 9, meta, table)
	require.NoError(t, err)

	// later changes to the caller's block do not leak into the record
	meta[metadata.KeyEnergy] = metadata.IntValue(500)

	assert.Equal(t, []string{metadata.DataKey, metadata.KeyDelta, metadata.KeyEnergy, "Process"}, rec.Keys())

	data, err := rec.Get(metadata.DataKey)
	require.NoError(t, err)
	assert.Same(t, table, data)

	energy, err := rec.Int(metadata.KeyEnergy)
	require.NoError(t, err)
	assert.Equal(t, 250, energy)

	_, err = rec.Get("Luminosity")
	assert.True(t, errors.HasCode(err, errors.CodeUnknownField))

	_, err = rec.Float(metadata.KeyEnergy)
	assert.True(t, errors.HasCode(err, errors.CodeUnknownField))

	assert.Equal(t, "mu_valdata", rec.Name())
	assert.Equal(t, 9, rec.HeaderLine())
}

func TestRecordRejectsReservedKeyAndMissingDeltas(t *testing.T) {
	_, err := New("f.csv", 2, metadata.Block{metadata.DataKey: metadata.StringValue("x")}, sampleTable(t))
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))

	noDeltas, err := NewTable([]string{"C0", "P0"}, [][]float64{{1, 1}})
	require.NoError(t, err)
	_, err = New("f.csv", 2, metadata.Block{}, noDeltas)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))

	_, err = New("f.csv", 2, metadata.Block{}, nil)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable([]string{"A", "A"}, nil)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))

	_, err = NewTable([]string{"A", ""}, nil)
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))

	_, err = NewTable([]string{"A", "B"}, [][]float64{{1}})
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestTableAccessors(t *testing.T) {
	table := sampleTable(t)

	col, err := table.Column("C0")
	require.NoError(t, err)
	col[0] = -1
	v, err := table.Value(0, "C0")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = table.Value(2, "C0")
	assert.Error(t, err)
	_, err = table.Column("C1")
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))

	pairs, err := table.Pairs()
	require.NoError(t, err)
	assert.Equal(t, []delta.Pair{{C: 0, W: 0}, {C: 0.001, W: 0}}, pairs)
}

func TestBinCountFromColumnsAndCenters(t *testing.T) {
	rec, err := New("f.csv", 2, metadata.Block{}, sampleTable(t))
	require.NoError(t, err)
	n, err := rec.BinCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	withCenters := metadata.Block{
		metadata.KeyBinCenters: metadata.ArrayValue(metadata.List(metadata.List(metadata.Num(0)), metadata.List(metadata.Num(0.5)))),
	}
	rec, err = New("f.csv", 2, withCenters, sampleTable(t))
	require.NoError(t, err)
	_, err = rec.BinCount()
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}
