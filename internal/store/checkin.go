package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/phone"
)

type CheckinStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewCheckinStore(db *sql.DB) *CheckinStore {
	return &CheckinStore{db: db, now: time.Now}
}

func scanCheckin(scanner interface{ Scan(...any) error }) (*model.AbsenteeCheckin, error) {
	var c model.AbsenteeCheckin
	var sent int
	var sentAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Reason, &c.PrayerRequest,
		&c.ServiceDate, &sent, &sentAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LivestreamSent = sent != 0
	if sentAt.Valid {
		c.LivestreamSentAt = &sentAt.Time
	}
	return &c, nil
}

const checkinCols = `id, name, phone, reason, prayer_request, service_date, livestream_sent, livestream_sent_at, created_at`

func (s *CheckinStore) Create(ctx context.Context, name, phoneNumber, reason, prayerRequest, serviceDate string) (*model.AbsenteeCheckin, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO absentee_checkins (name, phone, reason, prayer_request, service_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, phoneNumber, reason, prayerRequest, serviceDate, s.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert checkin: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *CheckinStore) GetByID(ctx context.Context, id int64) (*model.AbsenteeCheckin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+checkinCols+` FROM absentee_checkins WHERE id = ?`, id)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkin: %w", err)
	}
	return c, nil
}

// MarkLivestreamSent flags that the livestream link reached the member.
func (s *CheckinStore) MarkLivestreamSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE absentee_checkins SET livestream_sent = 1, livestream_sent_at = ? WHERE id = ?`,
		s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark livestream sent: %w", err)
	}
	return nil
}

// ListRange returns check-ins whose service date falls in [from, to], newest first.
func (s *CheckinStore) ListRange(ctx context.Context, from, to string) ([]model.AbsenteeCheckin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkinCols+` FROM absentee_checkins
		 WHERE service_date >= ? AND service_date <= ? ORDER BY service_date DESC, created_at DESC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var checkins []model.AbsenteeCheckin
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		checkins = append(checkins, *c)
	}
	return checkins, rows.Err()
}

// ListByPhone returns check-ins in [from, to] whose phone matches p on the last 10 digits.
func (s *CheckinStore) ListByPhone(ctx context.Context, p, from, to string) ([]model.AbsenteeCheckin, error) {
	key := phone.MatchKey(p)
	if key == "" {
		return nil, nil
	}
	all, err := s.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var out []model.AbsenteeCheckin
	for _, c := range all {
		if phone.MatchKey(c.Phone) == key {
			out = append(out, c)
		}
	}
	return out, nil
}
