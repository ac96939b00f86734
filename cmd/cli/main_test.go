package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wwFile = `#BEGIN-METADATA
Name:WW_muminus
e-Chirality:-1
e+Chirality:1
NTotalMC:100
CrossSection:10.0
Delta:1.0
#END-METADATA
Delta-c,Delta-w,C0,P0
0,0,50,50
1,0,60,55
0,1,40,
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CUTVALID_CONFIG", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("DATABASE_URL", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "WW_muminus_valdata.csv")
	require.NoError(t, os.WriteFile(path, []byte(wwFile), 0o644))
	return dir, path
}

func TestInspect(t *testing.T) {
	_, path := writeInput(t)
	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "WW_muminus")
	assert.Contains(t, out, "header at line 9, 3 rows, 1 bins")
	assert.Contains(t, out, "columns: Delta-c, Delta-w, C0, P0")
}

func TestChi2JSONEncodesNaNAsNull(t *testing.T) {
	_, path := writeInput(t)
	out, err := execute(t, "chi2", path, "--lumi", "100", "--json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 10.0, result["scale_factor"])
	assert.NotEmpty(t, result["directions"])
}

func TestChi2Table(t *testing.T) {
	_, path := writeInput(t)
	out, err := execute(t, "chi2", path, "--lumi", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "WW_muminus: scale 10")
	assert.Contains(t, out, "center only")
}

func TestDeviationJSON(t *testing.T) {
	_, path := writeInput(t)
	out, err := execute(t, "deviation", path, "--lumi", "100", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "null")
	assert.NotContains(t, out, "NaN")
}

func TestCutEffectNeedsCoordinates(t *testing.T) {
	_, path := writeInput(t)
	_, err := execute(t, "cuteffect", path)
	assert.Error(t, err)
}

func TestBatchWritesOutputs(t *testing.T) {
	dir, _ := writeInput(t)
	out := filepath.Join(t.TempDir(), "results")

	stdout, err := execute(t, "batch", dir, "--output", out, "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "completed, 1 ok, 0 failed")
	assert.FileExists(t, filepath.Join(out, "xlsx", "Summary", "WW_muminus_Summary.xlsx"))
}

func TestBatchWithoutInputsFails(t *testing.T) {
	_, err := execute(t, "batch", t.TempDir())
	assert.Error(t, err)
}

func TestFramesToStdout(t *testing.T) {
	dir, _ := writeInput(t)
	out, err := execute(t, "frames", "WW="+dir, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `\WWPath/DevParCut/WW_muminus_DevParCut_width_only.pdf`)
}

func TestScrubReplacesNonFinite(t *testing.T) {
	type inner struct {
		V    float64 `json:"v"`
		Skip string  `json:"-"`
		Opt  []int   `json:"opt,omitempty"`
	}
	got := sanitize(map[string]interface{}{"a": inner{V: math.Inf(1), Skip: "x"}, "b": []float64{1, math.NaN()}})
	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"v":null},"b":[1,null]}`, string(data))
}

func TestGenerateThenBatch(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "generate", dir, "--count", "2", "--name", "ww")
	require.NoError(t, err)
	assert.Contains(t, out, "ww_01_valdata.csv")
	assert.Contains(t, out, "ww_02_valdata.csv")

	stdout, err := execute(t, "batch", dir, "--output", filepath.Join(dir, "out"), "--json")
	require.NoError(t, err)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "completed", summary["status"])
	assert.Equal(t, 2.0, summary["file_count"])
}

func TestFramesUseCoordinateNames(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "generate", dir, "--name", "2f_mu_81to101_250_eLpR")
	require.NoError(t, err)

	out, err := execute(t, "frames", "Difermion="+dir, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `\DifermionPath/CutEffect/2f_mu_81to101_250_eLpR_costh_CutEffect.pdf`)
	assert.Contains(t, out, `\DifermionPath/DevCutCut0/2f_mu_81to101_250_eLpR_costh_DevCutCut0_center_only.pdf`)
}
