package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dukerupert/flock/internal/model"
)

func TestBroadcastSMS(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Phoebe", "Cenchreae", "5550000001")
	env.member(t, "Tabitha", "Joppa", "5550000002")
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "", env.logger)

	rec := serve(t, h.Broadcast, http.MethodPost, "/broadcast", map[string]any{
		"message": "Hi {{.FirstName}}, potluck is Sunday.",
		"channel": "sms",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var resp notifyResponse
	decodeBody(t, rec, &resp)
	if resp.Recipients != 2 || resp.SMSSent != 2 || resp.EmailSent != 0 {
		t.Errorf("resp = %+v, want 2 sms", resp)
	}
	if !resp.SMSConfigured || !resp.EmailConfigured {
		t.Errorf("configured flags = %v/%v, want true", resp.SMSConfigured, resp.EmailConfigured)
	}

	// Only the listed member.
	env.sms.bodies = nil
	rec = serve(t, h.Broadcast, http.MethodPost, "/broadcast", map[string]any{
		"message":   "Hi {{.FirstName}}",
		"channel":   "both",
		"memberIds": []string{m1.ID},
	})
	decodeBody(t, rec, &resp)
	if resp.Recipients != 1 || resp.SMSSent != 1 || resp.EmailSent != 1 {
		t.Errorf("resp = %+v, want one sms and one email", resp)
	}
	if len(env.sms.bodies) != 1 || env.sms.bodies[0] != "Hi Phoebe" {
		t.Errorf("sms bodies = %q", env.sms.bodies)
	}
	if len(env.email.sent) != 1 || env.email.sent[0].Subject != defaultBroadcastSubject {
		t.Errorf("emails = %+v", env.email.sent)
	}
}

func TestBroadcastValidation(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "", env.logger)

	rec := serve(t, h.Broadcast, http.MethodPost, "/broadcast", map[string]any{"message": "hi", "channel": "pigeon"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad channel status = %d, want 400", rec.Code)
	}
	rec = serve(t, h.Broadcast, http.MethodPost, "/broadcast", map[string]any{"channel": "sms"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}
}

func TestNotifyAbsentees(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	env.member(t, "Thomas", "Didymus", "5550000002")
	if _, err := env.attendance.Record(context.Background(), "2024-05-05", "Sunday Morning", []string{m1.ID}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "", env.logger)

	rec := serve(t, h.NotifyAbsentees, http.MethodPost, "/notify-absentees", map[string]any{
		"date": "2024-05-05", "serviceType": "Sunday Morning", "channel": "sms",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var resp notifyResponse
	decodeBody(t, rec, &resp)
	if resp.Recipients != 1 || resp.SMSSent != 1 {
		t.Fatalf("resp = %+v, want one absentee texted", resp)
	}
	want := "Hi Thomas, we missed you at Sunday Morning on 2024-05-05."
	if !strings.HasPrefix(env.sms.bodies[0], want) {
		t.Errorf("sms body = %q, want prefix %q", env.sms.bodies[0], want)
	}
}

func TestNotifyAbsenteesUnrecordedService(t *testing.T) {
	env := setupHandlerTest(t)
	env.member(t, "Thomas", "Didymus", "5550000002")
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "", env.logger)

	rec := serve(t, h.NotifyAbsentees, http.MethodPost, "/notify-absentees", map[string]any{
		"date": "2024-05-05", "serviceType": "Sunday Morning", "channel": "sms",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(env.sms.bodies) != 0 {
		t.Errorf("sms sent = %d, want 0", len(env.sms.bodies))
	}
}

func TestSendReportDefaultsToPastor(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	if _, err := env.attendance.Record(context.Background(), "2024-05-05", "Sunday Morning", []string{m1.ID}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "pastor@example.org", env.logger)

	rec := serve(t, h.SendReport, http.MethodPost, "/send-report", map[string]string{
		"fromDate": "2024-05-05", "toDate": "2024-05-11",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	if len(env.email.sent) != 1 {
		t.Fatalf("emails = %d, want 1", len(env.email.sent))
	}
	msg := env.email.sent[0]
	if msg.To != "pastor@example.org" {
		t.Errorf("To = %q, want pastor@example.org", msg.To)
	}
	if !strings.Contains(msg.TextBody, "2024-05-05 Sunday Morning: 1 present") {
		t.Errorf("body = %q", msg.TextBody)
	}
}

func TestAbsenteeReportRecipients(t *testing.T) {
	env := setupHandlerTest(t)
	if _, err := env.checkins.Create(context.Background(), "Lydia", "5551234567", model.ReasonSick, "healing", "2024-05-05"); err != nil {
		t.Fatalf("create checkin: %v", err)
	}
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "", env.logger)

	rec := serve(t, h.AbsenteeReport, http.MethodPost, "/absentee-report", map[string]string{
		"fromDate": "2024-05-05", "toDate": "2024-05-11", "to": "a@example.org, b@example.org",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var resp notifyResponse
	decodeBody(t, rec, &resp)
	if resp.Recipients != 2 || resp.EmailSent != 2 {
		t.Errorf("resp = %+v, want 2 emails", resp)
	}
	if !strings.Contains(env.email.sent[0].TextBody, "Lydia: healing") {
		t.Errorf("body = %q", env.email.sent[0].TextBody)
	}
}

func TestSendReportWithoutRecipient(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewNotifyHandler(env.members, env.engine, env.notifier, "", env.logger)

	rec := serve(t, h.SendReport, http.MethodPost, "/send-report", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
