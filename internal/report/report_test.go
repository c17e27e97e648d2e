package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/flock/internal/database"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/store"
)

type fixture struct {
	engine     *Engine
	members    *store.MemberStore
	attendance *store.AttendanceStore
	checkins   *store.CheckinStore
}

func setupReportTest(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		members:    store.NewMemberStore(db),
		attendance: store.NewAttendanceStore(db),
		checkins:   store.NewCheckinStore(db),
	}
	f.engine = NewEngine(f.members, f.attendance, f.checkins, time.UTC)
	return f
}

func (f *fixture) member(t *testing.T, first, last, phoneNumber, status string) *model.Member {
	t.Helper()
	m, err := f.members.Create(context.Background(), model.MemberInput{
		FirstName: first, LastName: last, Phone: phoneNumber, Status: status,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func (f *fixture) record(t *testing.T, date, service string, ids ...string) {
	t.Helper()
	if _, err := f.attendance.Record(context.Background(), date, service, ids); err != nil {
		t.Fatalf("record attendance: %v", err)
	}
}

func TestMemberAbsencesPartition(t *testing.T) {
	ctx := context.Background()
	f := setupReportTest(t)
	alice := f.member(t, "Alice", "Adams", "555-123-4567", "")
	bob := f.member(t, "Bob", "Brown", "5559876543", "")
	carol := f.member(t, "Carol", "Clark", "", "")

	f.record(t, "2024-05-05", "Sunday Morning", alice.ID, bob.ID)
	f.record(t, "2024-05-05", "Sunday Evening", bob.ID)
	f.record(t, "2024-05-08", "Wednesday", alice.ID)
	f.record(t, "2024-05-12", "Sunday Morning", bob.ID, carol.ID)

	for _, m := range []*model.Member{alice, bob, carol} {
		r, err := f.engine.MemberAbsences(ctx, m.ID, "2024-05-01", "2024-05-31")
		if err != nil {
			t.Fatalf("member absences for %s: %v", m.FirstName, err)
		}
		s := r.Summary
		if s.ServicesOccurred != 4 {
			t.Errorf("%s: occurred = %d, want 4", m.FirstName, s.ServicesOccurred)
		}
		if s.ServicesAttended+s.Absences != s.ServicesOccurred {
			t.Errorf("%s: attended %d + absent %d != occurred %d", m.FirstName, s.ServicesAttended, s.Absences, s.ServicesOccurred)
		}
		if len(r.Absences) != s.Absences {
			t.Errorf("%s: len(absences) = %d, want %d", m.FirstName, len(r.Absences), s.Absences)
		}
	}

	r, err := f.engine.MemberAbsences(ctx, alice.ID, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("member absences: %v", err)
	}
	if r.Summary.ServicesAttended != 2 || r.Summary.AttendanceRate != 50 {
		t.Errorf("alice summary = %+v, want 2 attended, 50%%", r.Summary)
	}
	want := []model.ServiceKey{{Date: "2024-05-05", ServiceType: "Sunday Evening"}, {Date: "2024-05-12", ServiceType: "Sunday Morning"}}
	for i, a := range r.Absences {
		if a.Date != want[i].Date || a.ServiceType != want[i].ServiceType {
			t.Errorf("absence[%d] = %s %s, want %s %s", i, a.Date, a.ServiceType, want[i].Date, want[i].ServiceType)
		}
	}
}

func TestMemberAbsencesAttachesCheckins(t *testing.T) {
	ctx := context.Background()
	f := setupReportTest(t)
	alice := f.member(t, "Alice", "Adams", "(555) 123-4567", "")
	bob := f.member(t, "Bob", "Brown", "5559876543", "")

	f.record(t, "2024-05-05", "Sunday Morning", bob.ID)
	f.record(t, "2024-05-12", "Sunday Morning", bob.ID)

	// Country code prefix still matches on the last 10 digits.
	if _, err := f.checkins.Create(ctx, "Alice Adams", "+1 555 123 4567", model.ReasonSick, "pray for recovery", "2024-05-05"); err != nil {
		t.Fatalf("create checkin: %v", err)
	}

	r, err := f.engine.MemberAbsences(ctx, alice.ID, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("member absences: %v", err)
	}
	if r.Summary.Absences != 2 || r.Summary.ReportedAbsences != 1 {
		t.Fatalf("summary = %+v, want 2 absences, 1 reported", r.Summary)
	}
	first := r.Absences[0]
	if !first.Reported || first.Reason != model.ReasonSick || first.PrayerRequest != "pray for recovery" {
		t.Errorf("first absence = %+v, want reported sick with prayer request", first)
	}
	if r.Absences[1].Reported {
		t.Error("second absence should not be reported")
	}
	if len(r.ByServiceType) != 1 || r.ByServiceType[0].Absences != 2 || r.ByServiceType[0].Reported != 1 {
		t.Errorf("byServiceType = %+v", r.ByServiceType)
	}
	if r.Summary.AttendanceRate != 0 {
		t.Errorf("AttendanceRate = %d, want 0", r.Summary.AttendanceRate)
	}
}

func TestMemberAbsencesNoServices(t *testing.T) {
	f := setupReportTest(t)
	alice := f.member(t, "Alice", "Adams", "", "")

	r, err := f.engine.MemberAbsences(context.Background(), alice.ID, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("member absences: %v", err)
	}
	if r.Summary.ServicesOccurred != 0 || r.Summary.AttendanceRate != 0 || len(r.Absences) != 0 {
		t.Errorf("report = %+v, want empty", r)
	}
}

func TestMemberAbsencesUnknownMember(t *testing.T) {
	f := setupReportTest(t)
	_, err := f.engine.MemberAbsences(context.Background(), "missing", "2024-05-01", "2024-05-31")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAbsenteeDashboard(t *testing.T) {
	ctx := context.Background()
	f := setupReportTest(t)

	mustCheckin := func(name, reason, prayer, date string) {
		t.Helper()
		if _, err := f.checkins.Create(ctx, name, "5551234567", reason, prayer, date); err != nil {
			t.Fatalf("create checkin: %v", err)
		}
	}
	mustCheckin("Alice", model.ReasonSick, "healing", "2024-05-05")
	mustCheckin("Bob", model.ReasonSick, "", "2024-05-05")
	mustCheckin("Carol", model.ReasonVacation, "", "2024-05-06")
	mustCheckin("Dan", model.ReasonOther, "", "2024-05-20")

	d, err := f.engine.AbsenteeDashboard(ctx, "2024-05-05", "2024-05-11")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Total != 3 {
		t.Errorf("Total = %d, want 3", d.Total)
	}
	if len(d.ByReason) != len(model.AbsenceReasons) {
		t.Fatalf("len(ByReason) = %d, want %d", len(d.ByReason), len(model.AbsenceReasons))
	}
	counts := map[string]int{}
	for _, b := range d.ByReason {
		counts[b.Reason] = b.Count
	}
	if counts[model.ReasonSick] != 2 || counts[model.ReasonVacation] != 1 || counts[model.ReasonOther] != 0 {
		t.Errorf("counts = %v", counts)
	}
	if len(d.PrayerRequests) != 1 || d.PrayerRequests[0].Name != "Alice" {
		t.Errorf("PrayerRequests = %+v", d.PrayerRequests)
	}
}

func TestAttendanceBreakdown(t *testing.T) {
	ctx := context.Background()
	f := setupReportTest(t)
	alice := f.member(t, "Alice", "Adams", "", "")
	bob := f.member(t, "Bob", "Brown", "", "")
	f.member(t, "Carol", "Clark", "", model.MemberStatusInactive)

	f.record(t, "2024-05-05", "Sunday Morning", alice.ID, bob.ID)
	f.record(t, "2024-05-05", "Sunday Morning", alice.ID)

	out, err := f.engine.AttendanceBreakdown(ctx, "2024-05-05", "2024-05-05", "")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(services) = %d, want 1", len(out))
	}
	svc := out[0]
	if svc.PresentCount != 1 || svc.Present[0].ID != alice.ID {
		t.Errorf("present = %+v, want only alice", svc.Present)
	}
	if svc.AbsentCount != 1 || svc.Absent[0].ID != bob.ID {
		t.Errorf("absent = %+v, want only bob (carol is inactive)", svc.Absent)
	}
}

func TestAttendanceSummary(t *testing.T) {
	ctx := context.Background()
	f := setupReportTest(t)
	alice := f.member(t, "Alice", "Adams", "", "")
	bob := f.member(t, "Bob", "Brown", "", "")

	f.record(t, "2024-05-05", "Sunday Morning", alice.ID, bob.ID)
	f.record(t, "2024-05-12", "Sunday Morning", alice.ID)

	s, err := f.engine.AttendanceSummary(ctx, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.ActiveMembers != 2 || len(s.Services) != 2 {
		t.Fatalf("summary = %+v", s)
	}
	if len(s.ByServiceType) != 1 {
		t.Fatalf("ByServiceType = %+v", s.ByServiceType)
	}
	tot := s.ByServiceType[0]
	if tot.Services != 2 || tot.TotalPresent != 3 || tot.AveragePresent != 2 {
		t.Errorf("totals = %+v, want 2 services, 3 present, avg 2", tot)
	}
}

func TestRange(t *testing.T) {
	from, to, err := Range("", "2024-05-11T00:00:00Z", "2024-05-05", "2024-05-31")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if from != "2024-05-05" || to != "2024-05-11" {
		t.Errorf("range = %s..%s", from, to)
	}

	if _, _, err := Range("2024-06-01", "2024-05-01", "", ""); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, _, err := Range("May 1", "2024-05-01", "", ""); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestWeekOf(t *testing.T) {
	// Wednesday.
	from, to := weekOf(time.Date(2024, 5, 8, 15, 0, 0, 0, time.UTC))
	if from != "2024-05-05" || to != "2024-05-11" {
		t.Errorf("weekOf = %s..%s, want 2024-05-05..2024-05-11", from, to)
	}
	// Sunday is its own week start.
	from, _ = weekOf(time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC))
	if from != "2024-05-05" {
		t.Errorf("weekOf(sunday) from = %s", from)
	}
}

func TestRate(t *testing.T) {
	tests := []struct{ a, o, want int }{
		{0, 0, 0}, {1, 3, 33}, {2, 3, 67}, {3, 3, 100},
	}
	for _, tt := range tests {
		if got := Rate(tt.a, tt.o); got != tt.want {
			t.Errorf("Rate(%d, %d) = %d, want %d", tt.a, tt.o, got, tt.want)
		}
	}
}
