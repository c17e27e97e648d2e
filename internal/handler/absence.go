package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/livestream"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/notify"
	"github.com/dukerupert/flock/internal/phone"
	"github.com/dukerupert/flock/internal/report"
	"github.com/dukerupert/flock/internal/store"
)

type AbsenceHandler struct {
	members  *store.MemberStore
	checkins *store.CheckinStore
	live     *livestream.Service
	notifier *notify.Notifier
	engine   *report.Engine
	logger   *slog.Logger
}

func NewAbsenceHandler(m *store.MemberStore, c *store.CheckinStore, live *livestream.Service, n *notify.Notifier, e *report.Engine, logger *slog.Logger) *AbsenceHandler {
	return &AbsenceHandler{members: m, checkins: c, live: live, notifier: n, engine: e, logger: logger}
}

type absenceResponse struct {
	Success        bool   `json:"success"`
	CheckinID      int64  `json:"checkinId"`
	AccessCode     string `json:"accessCode,omitempty"`
	LivestreamSent bool   `json:"livestreamSent"`
	Warning        string `json:"warning,omitempty"`
}

// Submit records a member's self-reported absence. When a livestream is
// active it also issues an access code and texts the stream link. The
// check-in is the durable result; code and SMS failures become a warning.
func (h *AbsenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		Phone         string `json:"phone"`
		Reason        string `json:"reason"`
		PrayerRequest string `json:"prayerRequest"`
		ServiceDate   string `json:"serviceDate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Reason = strings.ToLower(strings.TrimSpace(req.Reason))
	req.PrayerRequest = strings.TrimSpace(req.PrayerRequest)
	switch {
	case req.Name == "":
		writeError(w, r, h.logger, model.Invalid("name", "is required"))
		return
	case !phone.Valid(req.Phone):
		writeError(w, r, h.logger, model.Invalid("phone", "must have at least 10 digits"))
		return
	case !model.ValidAbsenceReason(req.Reason):
		writeError(w, r, h.logger, model.Invalid("reason", "must be one of sick, vacation, business, other"))
		return
	}

	serviceDate := h.engine.Today()
	if req.ServiceDate != "" {
		d, err := model.NormalizeDate(req.ServiceDate)
		if err != nil {
			writeError(w, r, h.logger, model.Invalid("serviceDate", "must be YYYY-MM-DD"))
			return
		}
		serviceDate = d
	}

	member, err := h.members.FindActiveByPhone(r.Context(), req.Phone)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if member == nil {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":     "this phone number is not registered to an active member",
			"notMember": true,
		})
		return
	}

	checkin, err := h.checkins.Create(r.Context(), req.Name, req.Phone, req.Reason, req.PrayerRequest, serviceDate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("absence reported", "checkin_id", checkin.ID, "member_id", member.ID, "reason", checkin.Reason)

	resp := absenceResponse{Success: true, CheckinID: checkin.ID}

	code, err := h.live.IssueCode(r.Context(), member.FullName(), req.Phone, &checkin.ID)
	switch {
	case errors.Is(err, model.ErrNoActiveStream):
		writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		h.logger.Warn("issue access code failed", "checkin_id", checkin.ID, "error", err)
		resp.Warning = "check-in saved, but a livestream code could not be issued"
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.AccessCode = code.Code

	if !h.notifier.SMSConfigured() {
		resp.Warning = "check-in saved; SMS is not configured so the livestream link was not sent"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	msg := notify.StreamLinkMessage(h.notifier.SiteURL(), code.Code)
	if err := h.notifier.SendSMS(r.Context(), req.Phone, msg); err != nil {
		h.logger.Warn("livestream sms failed", "checkin_id", checkin.ID, "error", err)
		resp.Warning = "check-in saved, but the livestream link could not be texted"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := h.checkins.MarkLivestreamSent(r.Context(), checkin.ID); err != nil {
		h.logger.Warn("mark livestream sent", "checkin_id", checkin.ID, "error", err)
	}
	resp.LivestreamSent = true
	writeJSON(w, http.StatusOK, resp)
}
