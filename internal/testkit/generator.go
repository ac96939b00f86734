// Package testkit generates synthetic validation files for tests and demos.
package testkit

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"cutvalid/adapters/csvmeta"
	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
	"cutvalid/internal/errors"
	"cutvalid/internal/naming"
)

// GeneratorConfig configures the validation file generator
type GeneratorConfig struct {
	Name         string  `json:"name"`
	Energy       int     `json:"energy"`
	EMinus       int     `json:"e_minus_chirality"`
	EPlus        int     `json:"e_plus_chirality"`
	Bins         int     `json:"bins"`
	Steps        []int   `json:"steps"` // grid positions in units of Delta
	Delta        float64 `json:"delta"`
	CrossSection float64 `json:"cross_section"`
	NTotalMC     int     `json:"n_total_mc"`
	BaseCount    float64 `json:"base_count"`
	// Sensitivity scales how fast cut counts move away from the reference.
	Sensitivity float64 `json:"sensitivity"`
	// ParBias is the relative gaussian spread of the parametrised counts.
	ParBias     float64 `json:"par_bias"`
	Coordinates bool    `json:"coordinates"`
	Seed        int64   `json:"seed"`
}

// DefaultGeneratorConfig returns a 5x5 grid over 4 bins
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Name:         "2f_mu_81to101_250_eLpR",
		Energy:       250,
		EMinus:       -1,
		EPlus:        1,
		Bins:         4,
		Steps:        []int{-2, -1, 0, 1, 2},
		Delta:        0.001,
		CrossSection: 1200,
		NTotalMC:     100000,
		BaseCount:    5000,
		Sensitivity:  1,
		ParBias:      0.01,
		Coordinates:  true,
		Seed:         42,
	}
}

// Generator produces deterministic validation files from a seed
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

func (g *Generator) validate() error {
	c := g.config
	switch {
	case c.Name == "":
		return errors.ConfigInvalid("generator name is required")
	case c.Bins < 1:
		return errors.ConfigInvalid("generator needs at least one bin")
	case c.Delta <= 0:
		return errors.ConfigInvalid("generator delta must be positive")
	case c.NTotalMC < 1:
		return errors.ConfigInvalid("generator NTotalMC must be positive")
	}
	for _, s := range c.Steps {
		if s == 0 {
			return nil
		}
	}
	return errors.ConfigInvalid("generator steps must include 0 for the reference row")
}

// reference returns the no-deviation count of bin b
func (g *Generator) reference(b int) float64 {
	return g.config.BaseCount * (1 + 0.1*float64(b))
}

// cutCount moves the reference linearly with the deviation, with slopes that
// differ per bin so that each direction affects the bins differently.
func (g *Generator) cutCount(b, i, j int) float64 {
	slopeC := 0.05 * float64(b+1)
	slopeW := 0.03 * float64(g.config.Bins-b)
	n := g.reference(b) * (1 + g.config.Sensitivity*(float64(i)*slopeC+float64(j)*slopeW))
	return round1(math.Max(n, 0))
}

func (g *Generator) parCount(cut float64) float64 {
	return round1(math.Max(cut*(1+g.config.ParBias*g.rng.NormFloat64()), 0))
}

// Block returns the metadata block of the generated file
func (g *Generator) Block() metadata.Block {
	c := g.config
	block := metadata.Block{
		metadata.KeyName:         metadata.StringValue(c.Name),
		metadata.KeyEnergy:       metadata.IntValue(c.Energy),
		metadata.KeyEMinusChiral: metadata.IntValue(c.EMinus),
		metadata.KeyEPlusChiral:  metadata.IntValue(c.EPlus),
		metadata.KeyNTotalMC:     metadata.IntValue(c.NTotalMC),
		metadata.KeyCrossSection: metadata.FloatValue(c.CrossSection),
		metadata.KeyDelta:        metadata.FloatValue(c.Delta),
	}
	if !c.Coordinates {
		return block
	}

	centers := make([]metadata.Node, c.Bins)
	noCut := make([]metadata.Node, c.Bins)
	width := 2.0 / float64(c.Bins)
	for b := 0; b < c.Bins; b++ {
		centers[b] = metadata.List(metadata.Num(-1 + (float64(b)+0.5)*width))
		noCut[b] = metadata.Num(round1(g.reference(b) * 1.2))
	}
	block[metadata.KeyCutValue] = metadata.FloatValue(0.9925)
	block[metadata.KeyCoordName] = metadata.ArrayValue(metadata.List(metadata.Str("costh")))
	block[metadata.KeyCoordNBins] = metadata.ArrayValue(metadata.List(metadata.Num(float64(c.Bins))))
	block[metadata.KeyCoordMin] = metadata.ArrayValue(metadata.List(metadata.Num(-1)))
	block[metadata.KeyCoordMax] = metadata.ArrayValue(metadata.List(metadata.Num(1)))
	block[metadata.KeyBinCenters] = metadata.ArrayValue(metadata.List(centers...))
	block[metadata.KeyNoCutData] = metadata.ArrayValue(metadata.List(noCut...))
	return block
}

// Table generates the deviation grid: one row per (Δc, Δw) step pair with the
// cut counts followed by the parametrised counts.
func (g *Generator) Table() (*record.Table, error) {
	c := g.config
	columns := []string{record.ColDeltaC, record.ColDeltaW}
	for b := 0; b < c.Bins; b++ {
		columns = append(columns, record.CutColumn(b))
	}
	for b := 0; b < c.Bins; b++ {
		columns = append(columns, record.ParColumn(b))
	}

	var rows [][]float64
	for _, i := range c.Steps {
		for _, j := range c.Steps {
			row := make([]float64, 2+2*c.Bins)
			row[0], row[1] = float64(i)*c.Delta, float64(j)*c.Delta
			for b := 0; b < c.Bins; b++ {
				cut := g.cutCount(b, i, j)
				row[2+b] = cut
				row[2+c.Bins+b] = g.parCount(cut)
			}
			rows = append(rows, row)
		}
	}
	return record.NewTable(columns, rows)
}

// Content renders the complete file: metadata block then CSV table
func (g *Generator) Content() (string, error) {
	if err := g.validate(); err != nil {
		return "", err
	}
	table, err := g.Table()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := csvmeta.WriteRecord(&sb, g.Block(), table); err != nil {
		return "", errors.Wrap(err, "failed to render validation file")
	}
	return sb.String(), nil
}

// FileName is the input file name for the configured name
func (g *Generator) FileName() string {
	return g.config.Name + naming.InputSuffix
}

// WriteFile writes the generated file into dir and returns its path
func (g *Generator) WriteFile(dir string) (string, error) {
	content, err := g.Content()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dir)
	}
	path := filepath.Join(dir, g.FileName())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

