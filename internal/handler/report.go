package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/report"
)

type ReportHandler struct {
	engine *report.Engine
	logger *slog.Logger
}

func NewReportHandler(e *report.Engine, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{engine: e, logger: logger}
}

// MemberAbsence reports one member's missed services. The range defaults to
// the last 90 days.
func (h *ReportHandler) MemberAbsence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memberID := strings.TrimSpace(q.Get("memberId"))
	if memberID == "" {
		writeError(w, r, h.logger, model.Invalid("memberId", "is required"))
		return
	}

	today := h.engine.Today()
	from, to, err := report.Range(q.Get("fromDate"), q.Get("toDate"), h.engine.DaysAgo(90), today)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rep, err := h.engine.MemberAbsences(r.Context(), memberID, from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Dashboard groups self-reported absences by reason, defaulting to the
// current Sunday to Saturday week.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weekFrom, weekTo := h.engine.CurrentWeek()
	from, to, err := report.Range(q.Get("fromDate"), q.Get("toDate"), weekFrom, weekTo)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.engine.AbsenteeDashboard(r.Context(), from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
