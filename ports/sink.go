package ports

import (
	"context"

	"cutvalid/domain/run"
)

// ResultSink receives a finished run. Sinks export, render or store results.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, result *run.Result) error
}
