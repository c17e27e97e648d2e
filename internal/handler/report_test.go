package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/report"
)

func TestMemberAbsenceReport(t *testing.T) {
	env := setupHandlerTest(t)
	ctx := context.Background()
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	m2 := env.member(t, "Thomas", "Didymus", "5550000002")
	for _, rec := range []struct {
		date string
		ids  []string
	}{
		{"2024-05-05", []string{m1.ID, m2.ID}},
		{"2024-05-12", []string{m1.ID}},
		{"2024-05-19", []string{m1.ID}},
	} {
		if _, err := env.attendance.Record(ctx, rec.date, "Sunday Morning", rec.ids); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	h := NewReportHandler(env.engine, env.logger)

	rec := serve(t, h.MemberAbsence, http.MethodGet, "/member-absence-report?memberId="+m2.ID+"&fromDate=2024-05-01&toDate=2024-05-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var rep report.MemberAbsenceReport
	decodeBody(t, rec, &rep)
	if rep.Summary.ServicesOccurred != 3 || rep.Summary.ServicesAttended != 1 || rep.Summary.Absences != 2 {
		t.Errorf("summary = %+v, want 3 occurred, 1 attended, 2 absences", rep.Summary)
	}
	if rep.Summary.AttendanceRate != 33 {
		t.Errorf("AttendanceRate = %d, want 33", rep.Summary.AttendanceRate)
	}
}

func TestMemberAbsenceReportErrors(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewReportHandler(env.engine, env.logger)

	rec := serve(t, h.MemberAbsence, http.MethodGet, "/member-absence-report", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing memberId status = %d, want 400", rec.Code)
	}
	rec = serve(t, h.MemberAbsence, http.MethodGet, "/member-absence-report?memberId=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown member status = %d, want 404", rec.Code)
	}
}

func TestAbsenteeDashboard(t *testing.T) {
	env := setupHandlerTest(t)
	ctx := context.Background()
	for _, reason := range []string{model.ReasonSick, model.ReasonSick, model.ReasonVacation} {
		if _, err := env.checkins.Create(ctx, "Someone", "5551234567", reason, "", "2024-05-05"); err != nil {
			t.Fatalf("create checkin: %v", err)
		}
	}
	h := NewReportHandler(env.engine, env.logger)

	rec := serve(t, h.Dashboard, http.MethodGet, "/absentee-dashboard?fromDate=2024-05-05&toDate=2024-05-11", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var d report.Dashboard
	decodeBody(t, rec, &d)
	if d.Total != 3 {
		t.Errorf("Total = %d, want 3", d.Total)
	}
	if len(d.ByReason) != len(model.AbsenceReasons) || d.ByReason[0].Count != 2 {
		t.Errorf("ByReason = %+v", d.ByReason)
	}
}
