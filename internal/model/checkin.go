package model

import "time"

const (
	ReasonSick     = "sick"
	ReasonVacation = "vacation"
	ReasonBusiness = "business"
	ReasonOther    = "other"
)

// AbsenceReasons lists the accepted self-reported reasons in display order.
var AbsenceReasons = []string{ReasonSick, ReasonVacation, ReasonBusiness, ReasonOther}

func ValidAbsenceReason(reason string) bool {
	for _, r := range AbsenceReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// AbsenteeCheckin is a self-reported absence from a service occurrence.
type AbsenteeCheckin struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Reason           string     `json:"reason"`
	PrayerRequest    string     `json:"prayerRequest,omitempty"`
	ServiceDate      string     `json:"serviceDate"`
	LivestreamSent   bool       `json:"livestreamSent"`
	LivestreamSentAt *time.Time `json:"livestreamSentAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}
