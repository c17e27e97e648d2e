package report

import (
	"context"

	"github.com/dukerupert/flock/internal/model"
)

type ReasonBucket struct {
	Reason   string                  `json:"reason"`
	Count    int                     `json:"count"`
	Checkins []model.AbsenteeCheckin `json:"checkins"`
}

type PrayerRequest struct {
	Name        string `json:"name"`
	Request     string `json:"request"`
	ServiceDate string `json:"serviceDate"`
}

type Dashboard struct {
	FromDate       string          `json:"fromDate"`
	ToDate         string          `json:"toDate"`
	Total          int             `json:"total"`
	LivestreamSent int             `json:"livestreamSent"`
	ByReason       []ReasonBucket  `json:"byReason"`
	PrayerRequests []PrayerRequest `json:"prayerRequests"`
}

// AbsenteeDashboard groups self-reported absences in [from, to] by reason.
// Every known reason gets a bucket, even when empty.
func (e *Engine) AbsenteeDashboard(ctx context.Context, from, to string) (*Dashboard, error) {
	checkins, err := e.checkins.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		FromDate:       from,
		ToDate:         to,
		Total:          len(checkins),
		PrayerRequests: []PrayerRequest{},
	}

	buckets := make(map[string]*ReasonBucket, len(model.AbsenceReasons))
	d.ByReason = make([]ReasonBucket, len(model.AbsenceReasons))
	for i, r := range model.AbsenceReasons {
		d.ByReason[i] = ReasonBucket{Reason: r, Checkins: []model.AbsenteeCheckin{}}
		buckets[r] = &d.ByReason[i]
	}

	for _, c := range checkins {
		if b, ok := buckets[c.Reason]; ok {
			b.Count++
			b.Checkins = append(b.Checkins, c)
		}
		if c.LivestreamSent {
			d.LivestreamSent++
		}
		if c.PrayerRequest != "" {
			d.PrayerRequests = append(d.PrayerRequests, PrayerRequest{
				Name:        c.Name,
				Request:     c.PrayerRequest,
				ServiceDate: c.ServiceDate,
			})
		}
	}
	return d, nil
}
