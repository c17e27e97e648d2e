// Package report computes read-side views over attendance and self-reported
// absences. Nothing here writes to the store.
package report

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/store"
)

type Engine struct {
	members    *store.MemberStore
	attendance *store.AttendanceStore
	checkins   *store.CheckinStore
	loc        *time.Location
	now        func() time.Time
}

func NewEngine(members *store.MemberStore, attendance *store.AttendanceStore, checkins *store.CheckinStore, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		members:    members,
		attendance: attendance,
		checkins:   checkins,
		loc:        loc,
		now:        time.Now,
	}
}

// Today returns the current calendar date in the engine's zone.
func (e *Engine) Today() string {
	return e.now().In(e.loc).Format(model.DateLayout)
}

// DaysAgo returns the calendar date n days before today.
func (e *Engine) DaysAgo(n int) string {
	return e.now().In(e.loc).AddDate(0, 0, -n).Format(model.DateLayout)
}

// CurrentWeek returns the Sunday and Saturday bracketing today.
func (e *Engine) CurrentWeek() (string, string) {
	return weekOf(e.now().In(e.loc))
}

func weekOf(t time.Time) (string, string) {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	sunday := day.AddDate(0, 0, -int(day.Weekday()))
	return sunday.Format(model.DateLayout), sunday.AddDate(0, 0, 6).Format(model.DateLayout)
}

// Range normalizes a from/to pair. Empty values take the defaults; from must
// not be after to.
func Range(from, to, defaultFrom, defaultTo string) (string, string, error) {
	if from == "" {
		from = defaultFrom
	}
	if to == "" {
		to = defaultTo
	}
	f, err := model.NormalizeDate(from)
	if err != nil {
		return "", "", model.Invalid("fromDate", "must be YYYY-MM-DD")
	}
	t, err := model.NormalizeDate(to)
	if err != nil {
		return "", "", model.Invalid("toDate", "must be YYYY-MM-DD")
	}
	if f > t {
		return "", "", model.Invalid("fromDate", "must not be after toDate")
	}
	return f, t, nil
}

// Rate returns round(100 * attended / occurred), or 0 when nothing occurred.
func Rate(attended, occurred int) int {
	if occurred == 0 {
		return 0
	}
	return int(math.Round(100 * float64(attended) / float64(occurred)))
}

type MemberRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func refOf(m model.Member) MemberRef {
	return MemberRef{ID: m.ID, Name: m.FullName(), Email: m.Email, Phone: m.Phone}
}

type AbsenceSummary struct {
	ServicesOccurred int `json:"servicesOccurred"`
	ServicesAttended int `json:"servicesAttended"`
	Absences         int `json:"absences"`
	ReportedAbsences int `json:"reportedAbsences"`
	AttendanceRate   int `json:"attendanceRate"`
}

type ServiceTypeTally struct {
	ServiceType string `json:"serviceType"`
	Absences    int    `json:"absences"`
	Reported    int    `json:"reported"`
}

// Absence is one missed service occurrence, with the member's own report if
// they sent one for that date.
type Absence struct {
	Date           string `json:"date"`
	ServiceType    string `json:"serviceType"`
	Reported       bool   `json:"reported"`
	Reason         string `json:"reason,omitempty"`
	PrayerRequest  string `json:"prayerRequest,omitempty"`
	LivestreamSent bool   `json:"livestreamSent"`
}

type MemberAbsenceReport struct {
	Member        MemberRef          `json:"member"`
	FromDate      string             `json:"fromDate"`
	ToDate        string             `json:"toDate"`
	Summary       AbsenceSummary     `json:"summary"`
	ByServiceType []ServiceTypeTally `json:"byServiceType"`
	Absences      []Absence          `json:"absences"`
}

// MemberAbsences computes which occurred services a member missed in
// [from, to]. An occurrence exists only if some attendance row was recorded
// for it.
func (e *Engine) MemberAbsences(ctx context.Context, memberID, from, to string) (*MemberAbsenceReport, error) {
	if memberID == "" {
		return nil, model.Invalid("memberId", "is required")
	}
	m, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, model.ErrNotFound
	}

	occurred, err := e.attendance.OccurredServices(ctx, from, to)
	if err != nil {
		return nil, err
	}
	attended, err := e.attendance.AttendedServices(ctx, memberID, from, to)
	if err != nil {
		return nil, err
	}

	var checkins []model.AbsenteeCheckin
	if m.Phone != "" {
		checkins, err = e.checkins.ListByPhone(ctx, m.Phone, from, to)
		if err != nil {
			return nil, err
		}
	}
	byDate := make(map[string]model.AbsenteeCheckin, len(checkins))
	for _, c := range checkins {
		// Newest first from the store; keep the latest report per date.
		if _, ok := byDate[c.ServiceDate]; !ok {
			byDate[c.ServiceDate] = c
		}
	}

	present := make(map[model.ServiceKey]bool, len(attended))
	for _, k := range attended {
		present[k] = true
	}

	r := &MemberAbsenceReport{
		Member:   refOf(*m),
		FromDate: from,
		ToDate:   to,
		Absences: []Absence{},
	}
	tallies := make(map[string]*ServiceTypeTally)
	var order []string

	for _, k := range occurred {
		if present[k] {
			r.Summary.ServicesAttended++
			continue
		}
		a := Absence{Date: k.Date, ServiceType: k.ServiceType}
		if c, ok := byDate[k.Date]; ok {
			a.Reported = true
			a.Reason = c.Reason
			a.PrayerRequest = c.PrayerRequest
			a.LivestreamSent = c.LivestreamSent
		}
		r.Absences = append(r.Absences, a)

		tl, ok := tallies[k.ServiceType]
		if !ok {
			tl = &ServiceTypeTally{ServiceType: k.ServiceType}
			tallies[k.ServiceType] = tl
			order = append(order, k.ServiceType)
		}
		tl.Absences++
		if a.Reported {
			tl.Reported++
			r.Summary.ReportedAbsences++
		}
	}

	r.Summary.ServicesOccurred = len(occurred)
	r.Summary.Absences = len(r.Absences)
	r.Summary.AttendanceRate = Rate(r.Summary.ServicesAttended, r.Summary.ServicesOccurred)

	sort.Strings(order)
	r.ByServiceType = make([]ServiceTypeTally, 0, len(order))
	for _, st := range order {
		r.ByServiceType = append(r.ByServiceType, *tallies[st])
	}
	return r, nil
}
