package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"cutvalid/domain/delta"
	"cutvalid/internal/analysis"
	"cutvalid/internal/errors"
)

// Output formats written by the batch runner
const (
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ConfigFileEnv names the environment variable pointing at a YAML config file
const ConfigFileEnv = "CUTVALID_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
}

// AnalysisConfig holds the chi-squared and deviation settings
type AnalysisConfig struct {
	// TestLumi is the integrated luminosity in fb^-1 counts are scaled to
	TestLumi float64 `yaml:"test_lumi"`
	// CutoffFactor bounds chi-squared points to CutoffFactor*Delta; <= 0 disables it
	CutoffFactor float64 `yaml:"cutoff_factor"`
	// DiffCutoffFactor bounds the difference arrays the same way
	DiffCutoffFactor float64  `yaml:"diff_cutoff_factor"`
	Directions       []string `yaml:"directions"`
}

// InputConfig holds file discovery settings
type InputConfig struct {
	Dirs    []string `yaml:"dirs"`
	Pattern string   `yaml:"pattern"`
	Workers int      `yaml:"workers"`
}

// OutputConfig holds result export settings
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// DatabaseConfig holds database connection settings; an empty URL disables persistence
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `yaml:"port"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			TestLumi:     2000,
			CutoffFactor: analysis.DefaultCutoffFactor,
		},
		Input: InputConfig{
			Dirs:    []string{"."},
			Pattern: "**/*_valdata.csv",
			Workers: 4,
		},
		Output: OutputConfig{
			Dir:     "results",
			Formats: []string{FormatXLSX, FormatHTML},
		},
		Database: DatabaseConfig{
			Driver: DriverPostgres,
		},
		Server: ServerConfig{
			Port: "8080",
		},
		LogLevel: "info",
	}
}

// Load reads the optional YAML file named by CUTVALID_CONFIG, then environment variables
func Load() (*Config, error) {
	return LoadWithFile(os.Getenv(ConfigFileEnv))
}

// LoadWithFile overlays defaults with the YAML file at path (if any) and then the environment
func LoadWithFile(path string) (*Config, error) {
	config := Default()
	if path != "" {
		if err := config.overlayFile(path); err != nil {
			return nil, err
		}
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &errors.AppError{Code: errors.CodeConfigInvalid, Message: "failed to parse config file " + path, Cause: err}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Analysis.TestLumi = getEnvFloatOrDefault("TEST_LUMI", c.Analysis.TestLumi)
	c.Analysis.CutoffFactor = getEnvFloatOrDefault("CUTOFF_FACTOR", c.Analysis.CutoffFactor)
	c.Analysis.DiffCutoffFactor = getEnvFloatOrDefault("DIFF_CUTOFF_FACTOR", c.Analysis.DiffCutoffFactor)
	c.Analysis.Directions = getEnvListOrDefault("DIRECTIONS", c.Analysis.Directions)

	c.Input.Dirs = getEnvListOrDefault("INPUT_DIRS", c.Input.Dirs)
	c.Input.Pattern = getEnvOrDefault("FILE_PATTERN", c.Input.Pattern)
	c.Input.Workers = getEnvIntOrDefault("WORKERS", c.Input.Workers)

	c.Output.Dir = getEnvOrDefault("OUTPUT_DIR", c.Output.Dir)
	c.Output.Formats = getEnvListOrDefault("OUTPUT_FORMATS", c.Output.Formats)

	c.Database.Driver = getEnvOrDefault("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getEnvOrDefault("DATABASE_URL", c.Database.URL)

	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Analysis.TestLumi <= 0 {
		return errors.ConfigInvalid("analysis.test_lumi must be positive")
	}
	if _, err := c.Analysis.parseDirections(); err != nil {
		return &errors.AppError{Code: errors.CodeConfigInvalid, Message: "analysis.directions is invalid", Cause: err}
	}
	if c.Input.Workers < 1 {
		return errors.ConfigInvalid("input.workers must be at least 1")
	}
	if !doublestar.ValidatePattern(c.Input.Pattern) {
		return errors.ConfigInvalid("input.pattern is not a valid glob: " + c.Input.Pattern)
	}
	for _, f := range c.Output.Formats {
		if f != FormatXLSX && f != FormatHTML {
			return errors.ConfigInvalid("unknown output format: " + f)
		}
	}
	if c.Database.URL != "" && c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		return errors.ConfigInvalid("unsupported database driver: " + c.Database.Driver)
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("server.port is required")
	}
	return nil
}

// HasFormat reports whether format is among the configured output formats
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Options converts the analysis settings into aggregator options
func (a AnalysisConfig) Options() (analysis.Options, error) {
	opts := analysis.DefaultOptions(a.TestLumi)
	opts.CutoffFactor = a.CutoffFactor
	opts.DiffCutoffFactor = a.DiffCutoffFactor

	dirs, err := a.parseDirections()
	if err != nil {
		return analysis.Options{}, err
	}
	if len(dirs) > 0 {
		opts.Directions = dirs
	}
	return opts, nil
}

func (a AnalysisConfig) parseDirections() ([]delta.Direction, error) {
	dirs := make([]delta.Direction, 0, len(a.Directions))
	for _, name := range a.Directions {
		d, err := delta.ParseDirection(name)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
