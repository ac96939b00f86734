package app

import (
	"context"
	"time"

	"cutvalid/domain/core"
	"cutvalid/domain/metadata"
	"cutvalid/domain/run"
	"cutvalid/internal"
	"cutvalid/internal/analysis"
	"cutvalid/internal/errors"
	"cutvalid/internal/metrics"
	"cutvalid/internal/naming"
	"cutvalid/ports"
)

// ValidationService reads one validation file and runs every analysis on it
type ValidationService struct {
	reader     ports.RecordReader
	aggregator *analysis.Aggregator
	metrics    *metrics.Metrics
	logger     *internal.Logger
}

// NewValidationService creates a validation service; nil metrics get a private registry
func NewValidationService(reader ports.RecordReader, aggregator *analysis.Aggregator, m *metrics.Metrics, logger *internal.Logger) *ValidationService {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ValidationService{reader: reader, aggregator: aggregator, metrics: m, logger: logger}
}

// Aggregator returns the aggregator the service scores with
func (s *ValidationService) Aggregator() *analysis.Aggregator {
	return s.aggregator
}

// ProcessFile computes the chi-squared scan, the deviation differences and, when the
// file carries coordinate metadata, the cut-effect histograms.
func (s *ValidationService) ProcessFile(ctx context.Context, path string) (*run.FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	checksum, err := core.HashFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	rec, err := s.reader.ReadRecord(path)
	if err != nil {
		return nil, err
	}

	chi2, err := s.aggregator.ChiSquared(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "chi-squared test of %s", path)
	}
	devs, err := s.aggregator.Deviations(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "deviation test of %s", path)
	}

	var cutEffect *analysis.CutEffectResult
	if rec.Has(metadata.KeyCoordName) {
		cutEffect, err = s.aggregator.CutEffect(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "cut effect of %s", path)
		}
	}

	title, err := naming.Title(rec, s.aggregator.Options().TestLumi)
	if err != nil {
		s.logger.Warn("[validation] %s: %v; using plain name as title", path, err)
		title = rec.Name()
	}

	result := &run.FileResult{
		ID:         core.NewFileID(),
		Path:       path,
		BaseName:   naming.BaseName(path),
		Name:       rec.Name(),
		Title:      title,
		Checksum:   checksum,
		HeaderLine: rec.HeaderLine(),
		Metadata:   renderMetadata(rec.Keys(), rec.Lookup),
		ChiSquared: chi2,
		Deviations: devs,
		CutEffect:  cutEffect,
		Duration:   time.Since(start),
	}

	for _, dr := range chi2.Directions {
		for _, p := range dr.Points {
			s.metrics.ObserveChiSquared(dr.Direction, p.ParVsCut)
		}
	}
	s.metrics.Warnings(len(chi2.Warnings))

	s.logger.Debug("[validation] %s: %d bins, %d warnings in %v", result.BaseName, chi2.NBins, len(chi2.Warnings), result.Duration)
	return result, nil
}

func renderMetadata(keys []string, lookup func(string) (metadata.Value, error)) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if key == metadata.DataKey {
			continue
		}
		if v, err := lookup(key); err == nil {
			out[key] = v.String()
		}
	}
	return out
}
