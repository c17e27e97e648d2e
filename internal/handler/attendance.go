package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/metrics"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/report"
	"github.com/dukerupert/flock/internal/store"
)

type AttendanceHandler struct {
	attendance *store.AttendanceStore
	members    *store.MemberStore
	engine     *report.Engine
	logger     *slog.Logger
}

func NewAttendanceHandler(a *store.AttendanceStore, m *store.MemberStore, e *report.Engine, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: a, members: m, engine: e, logger: logger}
}

// Record replaces attendance for one service occurrence with the submitted
// present list.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string   `json:"date"`
		ServiceType string   `json:"serviceType"`
		AttendeeIDs []string `json:"attendeeIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	date, err := model.NormalizeDate(req.Date)
	if err != nil {
		writeError(w, r, h.logger, model.Invalid("date", "must be YYYY-MM-DD"))
		return
	}
	serviceType := strings.TrimSpace(req.ServiceType)
	if serviceType == "" {
		writeError(w, r, h.logger, model.Invalid("serviceType", "is required"))
		return
	}

	ids := store.UniqueIDs(req.AttendeeIDs)
	if len(ids) > 0 {
		known, err := h.members.ListByIDs(r.Context(), ids)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		found := make(map[string]bool, len(known))
		for _, m := range known {
			found[m.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				writeError(w, r, h.logger, model.Invalid("attendeeIds", "unknown member id "+id))
				return
			}
		}
	}

	res, err := h.attendance.Record(r.Context(), date, serviceType, ids)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	metrics.AttendanceRowsWritten.Add(float64(res.InsertedCount))
	h.logger.Info("attendance recorded",
		"date", res.Date, "service_type", res.ServiceType,
		"inserted", res.InsertedCount, "deleted_previous", res.DeletedPrevious)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"date":            res.Date,
		"serviceType":     res.ServiceType,
		"insertedCount":   res.InsertedCount,
		"deletedPrevious": res.DeletedPrevious,
	})
}

// List returns the present/absent breakdown per occurrence. Both dates
// default to today.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := h.engine.Today()
	from, to, err := report.Range(q.Get("fromDate"), q.Get("toDate"), today, today)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	services, err := h.engine.AttendanceBreakdown(r.Context(), from, to, strings.TrimSpace(q.Get("serviceType")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fromDate": from,
		"toDate":   to,
		"services": services,
	})
}

// Summary returns the trigger-maintained counts, defaulting to this week.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weekFrom, weekTo := h.engine.CurrentWeek()
	from, to, err := report.Range(q.Get("fromDate"), q.Get("toDate"), weekFrom, weekTo)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.engine.AttendanceSummary(r.Context(), from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
