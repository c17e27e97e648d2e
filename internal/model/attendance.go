package model

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type AttendanceRecord struct {
	Date        string    `json:"date"`
	ServiceType string    `json:"serviceType"`
	MemberID    string    `json:"memberId"`
	Present     bool      `json:"present"`
	CheckedInAt time.Time `json:"checkedInAt"`
}

// ServiceKey identifies a single service occurrence.
type ServiceKey struct {
	Date        string `json:"date"`
	ServiceType string `json:"serviceType"`
}

// RecordResult reports what a wholesale attendance replacement changed.
type RecordResult struct {
	Date            string `json:"date"`
	ServiceType     string `json:"serviceType"`
	InsertedCount   int64  `json:"insertedCount"`
	DeletedPrevious int64  `json:"deletedPrevious"`
}

// ServiceSummary is the trigger-maintained count row for one service occurrence.
type ServiceSummary struct {
	Date         string `json:"date"`
	ServiceType  string `json:"serviceType"`
	PresentCount int    `json:"presentCount"`
	TotalRows    int    `json:"totalRows"`
}

// NormalizeDate accepts a calendar date with or without a time component and
// returns it as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format(DateLayout), nil
		}
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
