package csvmeta

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
	"cutvalid/internal"
	"cutvalid/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError, true)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRecordFromFile(t *testing.T) {
	path := writeFile(t, "2f_mu_valdata.csv", sampleMetadata+
		"0,0,50,60,50,61\n"+
		"0.001,0,55,58,54,58\n")

	rec, err := NewReader(quietLogger).ReadRecord(path)
	require.NoError(t, err)

	assert.Equal(t, path, rec.Path())
	assert.Equal(t, 17, rec.HeaderLine())
	assert.Equal(t, 2, rec.Data().Len())
	assert.Equal(t, []string{"Delta-c", "Delta-w", "C0", "C1", "P0", "P1"}, rec.Data().Columns())

	c1, err := rec.Data().Column("C1")
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 58}, c1)

	n, err := rec.BinCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := rec.Get(metadata.DataKey)
	require.NoError(t, err)
	assert.Same(t, rec.Data(), data)

	delta, err := rec.Float(metadata.KeyDelta)
	require.NoError(t, err)
	assert.Equal(t, 0.001, delta)

	_, err = rec.Get("Luminosity")
	assert.True(t, errors.HasCode(err, errors.CodeUnknownField))
	assert.Contains(t, rec.Keys(), metadata.DataKey)
}

func TestReadRecordRejectsReservedKey(t *testing.T) {
	src := "#BEGIN-METADATA\nData:whatever\n#END-METADATA\nDelta-c,Delta-w,C0,P0\n0,0,1,1\n"
	_, err := NewReader(quietLogger).ReadRecordFrom("reserved.csv", strings.NewReader(src))
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestReadRecordTableErrors(t *testing.T) {
	cases := map[string]string{
		"missing delta column": "Delta-c,C0,P0\n0,1,1\n",
		"ragged row":           "Delta-c,Delta-w,C0,P0\n0,0,1\n",
		"non numeric cell":     "Delta-c,Delta-w,C0,P0\n0,0,one,1\n",
		"duplicate column":     "Delta-c,Delta-w,C0,C0\n0,0,1,1\n",
		"no header":            "",
	}
	for name, table := range cases {
		t.Run(name, func(t *testing.T) {
			src := "#BEGIN-METADATA\nDelta:1.0\n#END-METADATA\n" + table
			_, err := NewReader(quietLogger).ReadRecordFrom(name, strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeMalformedInput), err.Error())
		})
	}
}

func TestReadRecordMissingFile(t *testing.T) {
	_, err := NewReader(quietLogger).ReadRecord(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestBinCountMismatch(t *testing.T) {
	src := "#BEGIN-METADATA\nBinCenters:[[0.5], [1.5]]\n#END-METADATA\nDelta-c,Delta-w,C0,P0\n0,0,1,1\n"
	rec, err := NewReader(quietLogger).ReadRecordFrom("mismatch.csv", strings.NewReader(src))
	require.NoError(t, err)
	_, err = rec.BinCount()
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))

	src = "#BEGIN-METADATA\nBinCenters:[[0.5]]\n#END-METADATA\nDelta-c,Delta-w,C0,P0,C1,P1\n0,0,1,1,2,2\n"
	rec, err = NewReader(quietLogger).ReadRecordFrom("extra.csv", strings.NewReader(src))
	require.NoError(t, err)
	_, err = rec.BinCount()
	assert.True(t, errors.HasCode(err, errors.CodeMalformedInput))
}

func TestWriteRecordRoundTrip(t *testing.T) {
	block := metadata.Block{
		metadata.KeyDelta:        metadata.FloatValue(1),
		metadata.KeyCrossSection: metadata.FloatValue(10),
		metadata.KeyNTotalMC:     metadata.IntValue(100),
	}
	table, err := record.NewTable(
		[]string{record.ColDeltaC, record.ColDeltaW, "C0", "P0"},
		[][]float64{{0, 0, 50, 50}, {1, 0, 60, 55}},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, block, table))

	rec, err := NewReader(quietLogger).ReadRecordFrom("roundtrip.csv", &buf)
	require.NoError(t, err)
	assert.Equal(t, table.Columns(), rec.Data().Columns())
	for _, key := range block.Keys() {
		v, err := rec.Lookup(key)
		require.NoError(t, err)
		assert.Equal(t, block[key], v)
	}
	p0, err := rec.Data().Column("P0")
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 55}, p0)
}
