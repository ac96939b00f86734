package app

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"cutvalid/domain/run"
	"cutvalid/internal"
	"cutvalid/internal/errors"
	"cutvalid/internal/metrics"
	"cutvalid/ports"
)

// BatchRunner processes many files concurrently and hands the run to each sink.
// A file that fails is recorded in the run and never aborts it.
type BatchRunner struct {
	service *ValidationService
	sinks   []ports.ResultSink
	workers int64
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// NewBatchRunner creates a batch runner with at most workers files in flight
func NewBatchRunner(service *ValidationService, workers int, sinks []ports.ResultSink, m *metrics.Metrics, logger *internal.Logger) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BatchRunner{
		service: service,
		sinks:   sinks,
		workers: int64(workers),
		metrics: m,
		logger:  logger,
	}
}

// Run processes paths and writes the finished run to every sink. The returned
// result is complete even when a sink fails; sink errors are joined into err.
func (b *BatchRunner) Run(ctx context.Context, paths []string) (*run.Result, error) {
	done := b.metrics.RunStarted()
	defer done()

	manifest := run.NewManifest(run.SettingsFrom(b.service.Aggregator().Options()), nil)
	result := &run.Result{Manifest: manifest, Status: run.StatusRunning}
	b.logger.Info("[batch] run %s: %d files, %d workers", manifest.RunID, len(paths), b.workers)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(b.workers)
	)

	for _, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Failures = append(result.Failures, failure(path, err))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			fr, err := b.service.ProcessFile(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Error("[batch] %s: %v", path, err)
				b.metrics.FileProcessed(metrics.StatusFailed, time.Since(start))
				result.Failures = append(result.Failures, failure(path, err))
				return
			}
			b.metrics.FileProcessed(metrics.StatusOK, time.Since(start))
			result.Files = append(result.Files, fr)
		}(path)
	}
	wg.Wait()

	inputs := make([]run.Input, 0, len(result.Files))
	for _, fr := range result.Files {
		inputs = append(inputs, run.Input{Path: fr.Path, Checksum: fr.Checksum})
	}
	manifest.SetInputs(inputs)
	result.Finish()

	b.logger.Info("[batch] run %s %s: %d ok, %d failed", manifest.RunID, result.Status, len(result.Files), len(result.Failures))
	return result, b.writeSinks(ctx, result)
}

func (b *BatchRunner) writeSinks(ctx context.Context, result *run.Result) error {
	var errs []error
	for _, sink := range b.sinks {
		if err := sink.Write(ctx, result); err != nil {
			b.logger.Error("[batch] sink %s: %v", sink.Name(), err)
			errs = append(errs, errors.Wrapf(err, "sink %s", sink.Name()))
		}
	}
	return stderrors.Join(errs...)
}

func failure(path string, err error) run.FileFailure {
	return run.FileFailure{Path: path, Code: errors.GetCode(err), Error: err.Error()}
}
