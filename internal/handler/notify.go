package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/notify"
	"github.com/dukerupert/flock/internal/report"
	"github.com/dukerupert/flock/internal/store"
)

const defaultBroadcastSubject = "A message from your church"

type NotifyHandler struct {
	members     *store.MemberStore
	engine      *report.Engine
	notifier    *notify.Notifier
	pastorEmail string
	logger      *slog.Logger
}

func NewNotifyHandler(m *store.MemberStore, e *report.Engine, n *notify.Notifier, pastorEmail string, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{members: m, engine: e, notifier: n, pastorEmail: pastorEmail, logger: logger}
}

type notifyResponse struct {
	Success    bool `json:"success"`
	Recipients int  `json:"recipients"`
	notify.Tally
}

// Broadcast sends a message to the listed members, or every active member.
func (h *NotifyHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject   string   `json:"subject"`
		Message   string   `json:"message"`
		Channel   string   `json:"channel"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Subject == "" {
		req.Subject = defaultBroadcastSubject
	}

	var members []model.Member
	var err error
	if len(req.MemberIDs) > 0 {
		members, err = h.members.ListByIDs(r.Context(), req.MemberIDs)
	} else {
		members, err = h.members.List(r.Context(), true)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.send(w, r, members, notify.Message{Subject: req.Subject, Body: req.Message, Channel: req.Channel})
}

// NotifyAbsentees messages the active members who were not marked present at
// one recorded service occurrence.
func (h *NotifyHandler) NotifyAbsentees(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string `json:"date"`
		ServiceType string `json:"serviceType"`
		Subject     string `json:"subject"`
		Message     string `json:"message"`
		Channel     string `json:"channel"`
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
	if req.Message == "" {
		req.Message = notify.DefaultAbsenteeMessage
	}
	if req.Subject == "" {
		req.Subject = "We missed you"
	}

	services, err := h.engine.AttendanceBreakdown(r.Context(), date, date, serviceType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(services) == 0 {
		writeError(w, r, h.logger, model.Invalid("serviceType", "no attendance has been recorded for that service"))
		return
	}

	ids := make([]string, 0, len(services[0].Absent))
	for _, ref := range services[0].Absent {
		ids = append(ids, ref.ID)
	}
	members, err := h.members.ListByIDs(r.Context(), ids)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.send(w, r, members, notify.Message{
		Subject:     req.Subject,
		Body:        req.Message,
		Channel:     req.Channel,
		Date:        date,
		ServiceType: serviceType,
	})
}

func (h *NotifyHandler) send(w http.ResponseWriter, r *http.Request, members []model.Member, msg notify.Message) {
	recipients := make([]notify.Recipient, len(members))
	for i, m := range members {
		recipients[i] = notify.RecipientFromMember(m)
	}

	tally, err := h.notifier.Send(r.Context(), recipients, msg)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("notification sent",
		"channel", msg.Channel, "recipients", len(recipients),
		"email_sent", tally.EmailSent, "email_failed", tally.EmailFailed,
		"sms_sent", tally.SMSSent, "sms_failed", tally.SMSFailed, "skipped", tally.Skipped)
	writeJSON(w, http.StatusOK, notifyResponse{Success: true, Recipients: len(recipients), Tally: *tally})
}

type reportRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	To       string `json:"to"`
}

func (h *NotifyHandler) reportParams(r *http.Request) (from, to string, recipients []string, err error) {
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", "", nil, err
	}
	weekFrom, weekTo := h.engine.CurrentWeek()
	from, to, err = report.Range(req.FromDate, req.ToDate, weekFrom, weekTo)
	if err != nil {
		return "", "", nil, err
	}

	dest := strings.TrimSpace(req.To)
	if dest == "" {
		dest = h.pastorEmail
	}
	for _, addr := range strings.Split(dest, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return "", "", nil, model.Invalid("to", "no recipient given and PASTOR_EMAIL is not set")
	}
	return from, to, recipients, nil
}

// SendReport emails the attendance summary for a date range.
func (h *NotifyHandler) SendReport(w http.ResponseWriter, r *http.Request) {
	from, to, recipients, err := h.reportParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	summary, err := h.engine.AttendanceSummary(r.Context(), from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	body, err := notify.RenderAttendanceSummary(summary)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tally := h.notifier.SendEmail(r.Context(), recipients, "Attendance report "+from+" to "+to, body)
	writeJSON(w, http.StatusOK, notifyResponse{Success: true, Recipients: len(recipients), Tally: *tally})
}

// AbsenteeReport emails the self-reported absence digest for a date range.
func (h *NotifyHandler) AbsenteeReport(w http.ResponseWriter, r *http.Request) {
	from, to, recipients, err := h.reportParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.engine.AbsenteeDashboard(r.Context(), from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	body, err := notify.RenderAbsenteeDigest(d)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tally := h.notifier.SendEmail(r.Context(), recipients, "Absentee report "+from+" to "+to, body)
	writeJSON(w, http.StatusOK, notifyResponse{Success: true, Recipients: len(recipients), Tally: *tally})
}
