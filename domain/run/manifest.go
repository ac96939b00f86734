package run

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"cutvalid/domain/core"
	"cutvalid/internal/analysis"
)

// Settings are the analysis parameters that determine a run's numbers
type Settings struct {
	TestLumi         float64  `json:"test_lumi"`
	CutoffFactor     float64  `json:"cutoff_factor"`
	DiffCutoffFactor float64  `json:"diff_cutoff_factor"`
	Directions       []string `json:"directions"`
}

// SettingsFrom captures the fields of opts that affect results
func SettingsFrom(opts analysis.Options) Settings {
	dirs := make([]string, 0, len(opts.Directions))
	for _, d := range opts.Directions {
		dirs = append(dirs, d.String())
	}
	return Settings{
		TestLumi:         opts.TestLumi,
		CutoffFactor:     opts.CutoffFactor,
		DiffCutoffFactor: opts.DiffCutoffFactor,
		Directions:       dirs,
	}
}

// Input is one file handed to a run
type Input struct {
	Path     string    `json:"path"`
	Checksum core.Hash `json:"checksum"`
}

// Manifest describes what a run was asked to do. Two runs with equal
// fingerprints processed identical inputs with identical settings.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Settings    Settings       `json:"settings"`
	Inputs      []Input        `json:"inputs"`
	Fingerprint core.Hash      `json:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// NewManifest creates a manifest with a fresh run ID
func NewManifest(settings Settings, inputs []Input) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Settings:    settings,
		Inputs:      inputs,
		Fingerprint: Fingerprint(settings, inputs),
		CreatedAt:   core.Now(),
	}
}

// SetInputs records the processed inputs, ordered by path, and refreshes the fingerprint
func (m *Manifest) SetInputs(inputs []Input) {
	sorted := append([]Input(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	m.Inputs = sorted
	m.Fingerprint = Fingerprint(m.Settings, sorted)
}

// Fingerprint hashes the settings and the input checksums. Input order and
// paths do not matter, only content.
func Fingerprint(settings Settings, inputs []Input) core.Hash {
	sums := make([]string, 0, len(inputs))
	for _, in := range inputs {
		sums = append(sums, in.Checksum.String())
	}
	sort.Strings(sums)

	data := fmt.Sprintf("lumi:%g|cutoff:%g|diff_cutoff:%g|directions:%s|inputs:%s",
		settings.TestLumi, settings.CutoffFactor, settings.DiffCutoffFactor,
		strings.Join(settings.Directions, ","), strings.Join(sums, ","))

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if m.Settings.TestLumi <= 0 {
		return fmt.Errorf("run manifest: test_lumi must be positive")
	}
	for _, in := range m.Inputs {
		if in.Checksum == "" {
			return fmt.Errorf("run manifest: input %s has no checksum", in.Path)
		}
	}
	return nil
}
