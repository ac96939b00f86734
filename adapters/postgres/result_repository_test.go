package postgres

import (
	"bytes"
	"context"
	"math"
	"testing"

	"cutvalid/adapters/db/postgres/migrations"
	"cutvalid/domain/core"
	"cutvalid/domain/delta"
	"cutvalid/domain/run"
	"cutvalid/internal"
	"cutvalid/internal/analysis"
	"cutvalid/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepository(t *testing.T) *ResultRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError, true)
	_, err = migrations.NewMigrator(db, logger).Up(ctx)
	require.NoError(t, err)
	return NewResultRepository(db)
}

func sampleRun() *run.Result {
	manifest := run.NewManifest(run.SettingsFrom(analysis.DefaultOptions(2000)), nil)
	file := &run.FileResult{
		ID:       core.NewFileID(),
		Path:     "/in/ww_valdata.csv",
		BaseName: "ww",
		Name:     "WW",
		Checksum: "abc",
		ChiSquared: &analysis.ChiSquaredResult{
			NBins: 3,
			Directions: []analysis.DirectionResult{
				{Direction: delta.Center, Points: []analysis.ChiSquaredPoint{
					{Delta: delta.Pair{}, PValue: 1},
					{Delta: delta.Pair{C: 1}, Magnitude: 1, CutVsRef: 20, ParVsCut: 4.5, Bins: 1, PValue: 0.03},
				}},
				{Direction: delta.Width, Points: []analysis.ChiSquaredPoint{
					{Delta: delta.Pair{W: 1}, Magnitude: 1, CutVsRef: 3, ParVsCut: math.NaN(), Bins: 2, PValue: math.NaN()},
				}},
			},
			Warnings: []analysis.DomainWarning{{Bin: 2}},
		},
	}
	manifest.SetInputs([]run.Input{{Path: file.Path, Checksum: file.Checksum}})
	result := &run.Result{
		Manifest: manifest,
		Files:    []*run.FileResult{file},
		Failures: []run.FileFailure{{Path: "/in/bad_valdata.csv", Code: "MALFORMED_INPUT", Error: "missing #END-METADATA"}},
	}
	result.Finish()
	return result
}

func TestSaveAndReadRun(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	result := sampleRun()

	require.NoError(t, repo.Write(ctx, result))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID(), runs[0].ID)
	assert.Equal(t, run.StatusPartial, runs[0].Status)
	assert.Equal(t, 1, runs[0].FileCount)
	assert.Equal(t, 1, runs[0].FailedCount)
	assert.Equal(t, result.Manifest.Fingerprint, runs[0].Fingerprint)
	require.NotNil(t, runs[0].FinishedAt)

	got, err := repo.GetRun(ctx, result.RunID())
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got.TestLumi)

	files, err := repo.ListFiles(ctx, result.RunID())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bad", files[0].BaseName)
	assert.Contains(t, files[0].Error, "MALFORMED_INPUT")
	assert.Equal(t, 3, files[1].NBins)
	assert.Equal(t, 1, files[1].Warnings)

	points, err := repo.ListPoints(ctx, result.RunID(), ports.PointFilters{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "center", points[0].Direction)
	assert.Equal(t, 4.5, points[1].ParVsCut)
	assert.True(t, math.IsNaN(points[2].ParVsCut))
	assert.Equal(t, 3.0, points[2].CutVsRef)

	width, err := repo.ListPoints(ctx, result.RunID(), ports.PointFilters{File: "ww", Direction: "width"})
	require.NoError(t, err)
	assert.Len(t, width, 1)

	none, err := repo.ListPoints(ctx, result.RunID(), ports.PointFilters{File: "other"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetRunNotFound(t *testing.T) {
	repo := newRepository(t)
	_, err := repo.GetRun(context.Background(), core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestSaveRunIsAtomic(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	result := sampleRun()

	require.NoError(t, repo.SaveRun(ctx, result))
	// Same run ID again violates the primary key; nothing new may be stored.
	require.Error(t, repo.SaveRun(ctx, result))

	files, err := repo.ListFiles(ctx, result.RunID())
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
