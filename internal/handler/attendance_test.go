package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/flock/internal/report"
)

func TestRecordAttendanceReplacesPresentList(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	m2 := env.member(t, "Andrew", "Simon", "5550000002")
	h := NewAttendanceHandler(env.attendance, env.members, env.engine, env.logger)

	rec := serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date":        "2024-05-05",
		"serviceType": "Sunday Morning",
		"attendeeIds": []string{m1.ID, m2.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first record status = %d; body %s", rec.Code, rec.Body)
	}

	rec = serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date":        "2024-05-05T10:30:00Z",
		"serviceType": "Sunday Morning",
		"attendeeIds": []string{m1.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second record status = %d; body %s", rec.Code, rec.Body)
	}
	var res struct {
		Success         bool   `json:"success"`
		Date            string `json:"date"`
		InsertedCount   int    `json:"insertedCount"`
		DeletedPrevious int    `json:"deletedPrevious"`
	}
	decodeBody(t, rec, &res)
	if !res.Success || res.Date != "2024-05-05" {
		t.Errorf("res = %+v, want success on 2024-05-05", res)
	}
	if res.InsertedCount != 1 || res.DeletedPrevious != 2 {
		t.Errorf("inserted %d deleted %d, want 1 and 2", res.InsertedCount, res.DeletedPrevious)
	}

	rec = serve(t, h.List, http.MethodGet, "/attendance?fromDate=2024-05-05&toDate=2024-05-05", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Services []report.ServiceAttendance `json:"services"`
	}
	decodeBody(t, rec, &list)
	if len(list.Services) != 1 {
		t.Fatalf("services = %d, want 1", len(list.Services))
	}
	svc := list.Services[0]
	if svc.PresentCount != 1 || svc.Present[0].ID != m1.ID {
		t.Errorf("present = %+v, want only %s", svc.Present, m1.ID)
	}
	if svc.AbsentCount != 1 || svc.Absent[0].ID != m2.ID {
		t.Errorf("absent = %+v, want only %s", svc.Absent, m2.ID)
	}
}

func TestRecordAttendanceTrimsAttendeeIDs(t *testing.T) {
	env := setupHandlerTest(t)
	m := env.member(t, "Peter", "Simon", "5550000001")
	h := NewAttendanceHandler(env.attendance, env.members, env.engine, env.logger)

	rec := serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date":        "2024-05-05",
		"serviceType": "Sunday Morning",
		"attendeeIds": []string{" " + m.ID, m.ID + "\t", ""},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var res struct {
		InsertedCount int `json:"insertedCount"`
	}
	decodeBody(t, rec, &res)
	if res.InsertedCount != 1 {
		t.Errorf("insertedCount = %d, want 1", res.InsertedCount)
	}
}

func TestRecordAttendanceEmptyListClearsOccurrence(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	h := NewAttendanceHandler(env.attendance, env.members, env.engine, env.logger)

	serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date": "2024-05-05", "serviceType": "Sunday Morning", "attendeeIds": []string{m1.ID},
	})
	rec := serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date": "2024-05-05", "serviceType": "Sunday Morning", "attendeeIds": []string{},
	})
	var res struct {
		InsertedCount   int `json:"insertedCount"`
		DeletedPrevious int `json:"deletedPrevious"`
	}
	decodeBody(t, rec, &res)
	if res.InsertedCount != 0 || res.DeletedPrevious != 1 {
		t.Errorf("inserted %d deleted %d, want 0 and 1", res.InsertedCount, res.DeletedPrevious)
	}
}

func TestRecordAttendanceValidation(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	h := NewAttendanceHandler(env.attendance, env.members, env.engine, env.logger)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"bad date", map[string]any{"date": "05/05/2024", "serviceType": "Sunday", "attendeeIds": []string{m1.ID}}, "date"},
		{"no service", map[string]any{"date": "2024-05-05", "attendeeIds": []string{m1.ID}}, "serviceType"},
		{"unknown member", map[string]any{"date": "2024-05-05", "serviceType": "Sunday", "attendeeIds": []string{m1.ID, "nope"}}, "attendeeIds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h.Record, http.MethodPost, "/attendance", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["field"] != tt.field {
				t.Errorf("field = %q, want %q", body["field"], tt.field)
			}
		})
	}
}

func TestAttendanceListRejectsInvertedRange(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewAttendanceHandler(env.attendance, env.members, env.engine, env.logger)

	rec := serve(t, h.List, http.MethodGet, "/attendance?fromDate=2024-06-01&toDate=2024-05-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAttendanceSummary(t *testing.T) {
	env := setupHandlerTest(t)
	m1 := env.member(t, "Peter", "Simon", "5550000001")
	m2 := env.member(t, "Andrew", "Simon", "5550000002")
	h := NewAttendanceHandler(env.attendance, env.members, env.engine, env.logger)

	serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date": "2024-05-05", "serviceType": "Sunday Morning", "attendeeIds": []string{m1.ID, m2.ID},
	})
	serve(t, h.Record, http.MethodPost, "/attendance", map[string]any{
		"date": "2024-05-08", "serviceType": "Wednesday", "attendeeIds": []string{m1.ID},
	})

	rec := serve(t, h.Summary, http.MethodGet, "/attendance/summary?fromDate=2024-05-05&toDate=2024-05-11", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var s report.Summary
	decodeBody(t, rec, &s)
	if s.ActiveMembers != 2 {
		t.Errorf("ActiveMembers = %d, want 2", s.ActiveMembers)
	}
	if len(s.Services) != 2 {
		t.Errorf("Services = %d, want 2", len(s.Services))
	}
}
