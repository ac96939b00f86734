package config

import (
	"os"
	"path/filepath"
	"testing"

	"cutvalid/domain/delta"
	"cutvalid/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2000.0, cfg.Analysis.TestLumi)
	assert.Equal(t, 2.0, cfg.Analysis.CutoffFactor)
	assert.Equal(t, "**/*_valdata.csv", cfg.Input.Pattern)
	assert.Equal(t, 4, cfg.Input.Workers)
	assert.True(t, cfg.HasFormat(FormatXLSX))
	assert.True(t, cfg.HasFormat(FormatHTML))
	assert.Empty(t, cfg.Database.URL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutvalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  test_lumi: 900
  directions: [center, "width only"]
input:
  dirs: [a, b]
  workers: 2
output:
  formats: [html]
database:
  driver: sqlite3
  url: "file:results.db"
`), 0o644))

	t.Setenv("WORKERS", "8")
	t.Setenv("INPUT_DIRS", "x, y ,")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 900.0, cfg.Analysis.TestLumi)
	assert.Equal(t, 8, cfg.Input.Workers)
	assert.Equal(t, []string{"x", "y"}, cfg.Input.Dirs)
	assert.False(t, cfg.HasFormat(FormatXLSX))
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)

	opts, err := cfg.Analysis.Options()
	require.NoError(t, err)
	assert.Equal(t, []delta.Direction{delta.Center, delta.Width}, opts.Directions)
	assert.Equal(t, 900.0, opts.TestLumi)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"lumi":      func(c *Config) { c.Analysis.TestLumi = 0 },
		"workers":   func(c *Config) { c.Input.Workers = 0 },
		"pattern":   func(c *Config) { c.Input.Pattern = "[" },
		"format":    func(c *Config) { c.Output.Formats = []string{"pdf"} },
		"driver":    func(c *Config) { c.Database.URL = "x"; c.Database.Driver = "mysql" },
		"direction": func(c *Config) { c.Analysis.Directions = []string{"diagonal"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
		})
	}
}

func TestLoadWithBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis: [unterminated"), 0o644))

	_, err := LoadWithFile(path)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
