package report

import (
	"context"
	"math"

	"github.com/dukerupert/flock/internal/model"
)

type ServiceAttendance struct {
	Date         string      `json:"date"`
	ServiceType  string      `json:"serviceType"`
	PresentCount int         `json:"presentCount"`
	AbsentCount  int         `json:"absentCount"`
	Present      []MemberRef `json:"present"`
	Absent       []MemberRef `json:"absent"`
}

// AttendanceBreakdown lists every recorded occurrence in [from, to] with the
// present members and the active members who were not present.
func (e *Engine) AttendanceBreakdown(ctx context.Context, from, to, serviceType string) ([]ServiceAttendance, error) {
	records, err := e.attendance.List(ctx, from, to, serviceType)
	if err != nil {
		return nil, err
	}
	all, err := e.members.List(ctx, false)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Member, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	out := []ServiceAttendance{}
	presentSets := []map[string]bool{}
	index := make(map[model.ServiceKey]int)

	for _, rec := range records {
		k := model.ServiceKey{Date: rec.Date, ServiceType: rec.ServiceType}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, ServiceAttendance{
				Date:        rec.Date,
				ServiceType: rec.ServiceType,
				Present:     []MemberRef{},
				Absent:      []MemberRef{},
			})
			presentSets = append(presentSets, make(map[string]bool))
		}
		if !rec.Present {
			continue
		}
		presentSets[i][rec.MemberID] = true
		if m, ok := byID[rec.MemberID]; ok {
			out[i].Present = append(out[i].Present, refOf(m))
		}
	}

	// all is sorted by name, so absent lists come out sorted too.
	for i := range out {
		for _, m := range all {
			if m.Status == model.MemberStatusActive && !presentSets[i][m.ID] {
				out[i].Absent = append(out[i].Absent, refOf(m))
			}
		}
		out[i].PresentCount = len(out[i].Present)
		out[i].AbsentCount = len(out[i].Absent)
	}
	return out, nil
}

type ServiceTypeTotals struct {
	ServiceType    string `json:"serviceType"`
	Services       int    `json:"services"`
	TotalPresent   int    `json:"totalPresent"`
	AveragePresent int    `json:"averagePresent"`
}

// Summary is the attendance digest emailed to the pastor.
type Summary struct {
	FromDate      string                 `json:"fromDate"`
	ToDate        string                 `json:"toDate"`
	ActiveMembers int                    `json:"activeMembers"`
	Services      []model.ServiceSummary `json:"services"`
	ByServiceType []ServiceTypeTotals    `json:"byServiceType"`
	Checkins      int                    `json:"checkins"`
}

// AttendanceSummary builds the digest from the trigger-maintained counts.
func (e *Engine) AttendanceSummary(ctx context.Context, from, to string) (*Summary, error) {
	services, err := e.attendance.Summaries(ctx, from, to)
	if err != nil {
		return nil, err
	}
	active, err := e.members.List(ctx, true)
	if err != nil {
		return nil, err
	}
	checkins, err := e.checkins.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		FromDate:      from,
		ToDate:        to,
		ActiveMembers: len(active),
		Services:      services,
		Checkins:      len(checkins),
	}
	if s.Services == nil {
		s.Services = []model.ServiceSummary{}
	}

	totals := make(map[string]*ServiceTypeTotals)
	var order []string
	for _, svc := range services {
		t, ok := totals[svc.ServiceType]
		if !ok {
			t = &ServiceTypeTotals{ServiceType: svc.ServiceType}
			totals[svc.ServiceType] = t
			order = append(order, svc.ServiceType)
		}
		t.Services++
		t.TotalPresent += svc.PresentCount
	}
	s.ByServiceType = make([]ServiceTypeTotals, 0, len(order))
	for _, st := range order {
		t := totals[st]
		t.AveragePresent = int(math.Round(float64(t.TotalPresent) / float64(t.Services)))
		s.ByServiceType = append(s.ByServiceType, *t)
	}
	return s, nil
}
