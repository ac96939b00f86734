package middleware

import (
	"context"
	"net/http"

	"cutvalid/domain/core"
	"cutvalid/domain/run"
	"cutvalid/internal"
	"cutvalid/ports"

	"github.com/go-chi/chi/v5"
)

type runKey struct{}

// LoadRun resolves the {runID} URL parameter to a stored run and puts it on the
// request context. Malformed IDs get 400, unknown runs 404.
func LoadRun(repo ports.ResultRepository, logger *internal.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := core.ParseRunID(chi.URLParam(r, "runID"))
			if err != nil {
				WriteError(w, http.StatusBadRequest, "INVALID_RUN_ID", err.Error())
				return
			}

			summary, err := repo.GetRun(r.Context(), id)
			if err != nil {
				status := StatusFor(err)
				if status == http.StatusInternalServerError {
					logger.Error("[LoadRun] failed to load run %s: %v", id, err)
				}
				WriteErr(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), runKey{}, summary)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RunFrom returns the run loaded by LoadRun
func RunFrom(ctx context.Context) (*run.Summary, bool) {
	summary, ok := ctx.Value(runKey{}).(*run.Summary)
	return summary, ok
}
