package model

import "time"

const (
	RotationManual    = "manual"
	RotationScheduled = "scheduled"
)

type LivestreamPassword struct {
	ID           int64     `json:"id"`
	VideoID      string    `json:"videoId"`
	Password     string    `json:"password"`
	VideoURL     string    `json:"videoUrl"`
	Active       bool      `json:"active"`
	RotationType string    `json:"rotationType"`
	VimeoSynced  bool      `json:"vimeoSynced"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// RotationSchedule is the singleton weekly auto-rotation configuration.
type RotationSchedule struct {
	DayOfWeek int        `json:"dayOfWeek"`
	TimeOfDay string     `json:"timeOfDay"`
	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type StreamAccessCode struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	MemberName  string     `json:"memberName"`
	Phone       string     `json:"phone"`
	CheckinID   *int64     `json:"checkinId,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	FirstUsedAt *time.Time `json:"firstUsedAt,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	UseCount    int        `json:"useCount"`
	Revoked     bool       `json:"revoked"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// StreamAccess is what a valid access code unlocks.
type StreamAccess struct {
	VideoID    string `json:"videoId"`
	VideoURL   string `json:"videoUrl"`
	Password   string `json:"password"`
	MemberName string `json:"memberName"`
}
