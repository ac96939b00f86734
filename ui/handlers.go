package ui

import (
	"math"
	"net/http"
	"strconv"

	"cutvalid/adapters/report"
	"cutvalid/domain/core"
	"cutvalid/domain/delta"
	"cutvalid/domain/run"
	"cutvalid/ports"
	"cutvalid/ui/middleware"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := a.repo.ListRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error("[handleListRuns] %v", err)
		middleware.WriteErr(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, runs)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	summary, _ := middleware.RunFrom(r.Context())
	middleware.WriteJSON(w, http.StatusOK, summary)
}

func (a *App) handleListFiles(w http.ResponseWriter, r *http.Request) {
	summary, _ := middleware.RunFrom(r.Context())
	files, err := a.repo.ListFiles(r.Context(), summary.ID)
	if err != nil {
		a.logger.Error("[handleListFiles] run %s: %v", summary.ID, err)
		middleware.WriteErr(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, files)
}

// pointView is a PointRow with NaN values encoded as null
type pointView struct {
	FileID    core.FileID `json:"file_id"`
	Direction string      `json:"direction"`
	DeltaC    *float64    `json:"delta_c"`
	DeltaW    *float64    `json:"delta_w"`
	Magnitude *float64    `json:"magnitude"`
	CutVsRef  *float64    `json:"cut_vs_ref"`
	ParVsCut  *float64    `json:"par_vs_cut"`
	Bins      int         `json:"bins"`
	PValue    *float64    `json:"p_value"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func viewPoint(p run.PointRow) pointView {
	return pointView{
		FileID:    p.FileID,
		Direction: p.Direction,
		DeltaC:    finite(p.DeltaC),
		DeltaW:    finite(p.DeltaW),
		Magnitude: finite(p.Magnitude),
		CutVsRef:  finite(p.CutVsRef),
		ParVsCut:  finite(p.ParVsCut),
		Bins:      p.Bins,
		PValue:    finite(p.PValue),
	}
}

func (a *App) handleListPoints(w http.ResponseWriter, r *http.Request) {
	summary, _ := middleware.RunFrom(r.Context())

	filters := ports.PointFilters{File: r.URL.Query().Get("file")}
	if raw := r.URL.Query().Get("direction"); raw != "" {
		d, err := delta.ParseDirection(raw)
		if err != nil {
			middleware.WriteErr(w, err)
			return
		}
		filters.Direction = d.String()
	}

	points, err := a.repo.ListPoints(r.Context(), summary.ID, filters)
	if err != nil {
		a.logger.Error("[handleListPoints] run %s: %v", summary.ID, err)
		middleware.WriteErr(w, err)
		return
	}
	views := make([]pointView, len(points))
	for i, p := range points {
		views[i] = viewPoint(p)
	}
	middleware.WriteJSON(w, http.StatusOK, views)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	summary, _ := middleware.RunFrom(r.Context())

	files, err := a.repo.ListFiles(r.Context(), summary.ID)
	if err != nil {
		a.logger.Error("[handleReport] run %s: %v", summary.ID, err)
		middleware.WriteErr(w, err)
		return
	}
	points, err := a.repo.ListPoints(r.Context(), summary.ID, ports.PointFilters{})
	if err != nil {
		a.logger.Error("[handleReport] run %s: %v", summary.ID, err)
		middleware.WriteErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.HTML(report.FromStored(*summary, files, points)))
}
