package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/flock/internal/model"
)

type LivestreamStore struct {
	db *sql.DB
}

func NewLivestreamStore(db *sql.DB) *LivestreamStore {
	return &LivestreamStore{db: db}
}

// --- Password methods ---

func scanPassword(scanner interface{ Scan(...any) error }) (*model.LivestreamPassword, error) {
	var p model.LivestreamPassword
	var active, synced int

	err := scanner.Scan(
		&p.ID, &p.VideoID, &p.Password, &p.VideoURL, &active,
		&p.RotationType, &synced, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	p.Active = active != 0
	p.VimeoSynced = synced != 0
	return &p, nil
}

const passwordCols = `id, video_id, password, video_url, active, rotation_type, vimeo_synced, created_at, expires_at`

// Rotate deactivates the current password and inserts p as the sole active
// row, in one transaction.
func (s *LivestreamStore) Rotate(ctx context.Context, p model.LivestreamPassword) (*model.LivestreamPassword, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE vimeo_passwords SET active = 0 WHERE active = 1`); err != nil {
		return nil, fmt.Errorf("deactivate passwords: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO vimeo_passwords (video_id, password, video_url, active, rotation_type, vimeo_synced, created_at, expires_at)
		 VALUES (?, ?, ?, 1, ?, ?, ?, ?)`,
		p.VideoID, p.Password, p.VideoURL, p.RotationType, boolToInt(p.VimeoSynced), p.CreatedAt.UTC(), p.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert password: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rotation: %w", err)
	}
	return s.GetPassword(ctx, id)
}

func (s *LivestreamStore) GetPassword(ctx context.Context, id int64) (*model.LivestreamPassword, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passwordCols+` FROM vimeo_passwords WHERE id = ?`, id)
	p, err := scanPassword(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get password: %w", err)
	}
	return p, nil
}

// ActivePassword returns the current livestream password, or nil if none is active.
func (s *LivestreamStore) ActivePassword(ctx context.Context) (*model.LivestreamPassword, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+passwordCols+` FROM vimeo_passwords WHERE active = 1 ORDER BY created_at DESC LIMIT 1`,
	)
	p, err := scanPassword(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active password: %w", err)
	}
	return p, nil
}

// ListPasswords returns the most recent passwords, newest first.
func (s *LivestreamStore) ListPasswords(ctx context.Context, limit int) ([]model.LivestreamPassword, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+passwordCols+` FROM vimeo_passwords ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list passwords: %w", err)
	}
	defer rows.Close()

	var out []model.LivestreamPassword
	for rows.Next() {
		p, err := scanPassword(rows)
		if err != nil {
			return nil, fmt.Errorf("scan password: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// --- Rotation schedule methods ---

func (s *LivestreamStore) GetSchedule(ctx context.Context) (*model.RotationSchedule, error) {
	var sch model.RotationSchedule
	var enabled int
	var lastRun sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT day_of_week, time_of_day, enabled, last_run, updated_at FROM password_rotation_schedule WHERE id = 1`,
	).Scan(&sch.DayOfWeek, &sch.TimeOfDay, &enabled, &lastRun, &sch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get rotation schedule: %w", err)
	}
	sch.Enabled = enabled != 0
	if lastRun.Valid {
		sch.LastRun = &lastRun.Time
	}
	return &sch, nil
}

// UpdateSchedule stores the weekly slot. Turning a disabled schedule on
// stamps last_run with at, so the first rotation waits for the next slot.
func (s *LivestreamStore) UpdateSchedule(ctx context.Context, dayOfWeek int, timeOfDay string, enabled bool, at time.Time) (*model.RotationSchedule, error) {
	var enabledAt sql.NullTime
	if enabled {
		enabledAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO password_rotation_schedule (id, day_of_week, time_of_day, enabled, last_run, updated_at) VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET day_of_week = excluded.day_of_week, time_of_day = excluded.time_of_day,
		 enabled = excluded.enabled, updated_at = excluded.updated_at,
		 last_run = CASE WHEN password_rotation_schedule.enabled = 0 AND excluded.enabled = 1
		                 THEN excluded.last_run ELSE password_rotation_schedule.last_run END`,
		dayOfWeek, timeOfDay, boolToInt(enabled), enabledAt, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("update rotation schedule: %w", err)
	}
	return s.GetSchedule(ctx)
}

func (s *LivestreamStore) MarkScheduleRun(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_rotation_schedule SET last_run = ? WHERE id = 1`, at.UTC())
	if err != nil {
		return fmt.Errorf("mark schedule run: %w", err)
	}
	return nil
}

// --- Access code methods ---

func scanAccessCode(scanner interface{ Scan(...any) error }) (*model.StreamAccessCode, error) {
	var c model.StreamAccessCode
	var checkinID sql.NullInt64
	var firstUsed, lastUsed sql.NullTime
	var revoked int

	err := scanner.Scan(
		&c.ID, &c.Code, &c.MemberName, &c.Phone, &checkinID, &c.ExpiresAt,
		&firstUsed, &lastUsed, &c.UseCount, &revoked, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if checkinID.Valid {
		c.CheckinID = &checkinID.Int64
	}
	if firstUsed.Valid {
		c.FirstUsedAt = &firstUsed.Time
	}
	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}
	c.Revoked = revoked != 0
	return &c, nil
}

const accessCodeCols = `id, code, member_name, phone, checkin_id, expires_at, first_used_at, last_used_at, use_count, revoked, created_at`

// InsertCode stores a freshly issued code. A collision with an existing code
// returns model.ErrDuplicateCode so the caller can retry with a new one.
func (s *LivestreamStore) InsertCode(ctx context.Context, code, memberName, phoneNumber string, checkinID *int64, createdAt, expiresAt time.Time) (*model.StreamAccessCode, error) {
	var cID sql.NullInt64
	if checkinID != nil {
		cID = sql.NullInt64{Int64: *checkinID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO stream_access_codes (code, member_name, phone, checkin_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		code, memberName, phoneNumber, cID, expiresAt.UTC(), createdAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrDuplicateCode
		}
		return nil, fmt.Errorf("insert access code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+accessCodeCols+` FROM stream_access_codes WHERE id = ?`, id)
	return scanAccessCode(row)
}

// GetCode looks up an access code exactly as given; callers normalize case.
func (s *LivestreamStore) GetCode(ctx context.Context, code string) (*model.StreamAccessCode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accessCodeCols+` FROM stream_access_codes WHERE code = ?`, code)
	c, err := scanAccessCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get access code: %w", err)
	}
	return c, nil
}

// RecordCodeUse bumps the use counter and timestamps. first_used_at is only
// ever set once.
func (s *LivestreamStore) RecordCodeUse(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE stream_access_codes
		 SET use_count = use_count + 1, last_used_at = ?, first_used_at = COALESCE(first_used_at, ?)
		 WHERE id = ?`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("record code use: %w", err)
	}
	return nil
}

// RevokeCode flags a code as revoked. It reports false if the code does not exist.
func (s *LivestreamStore) RevokeCode(ctx context.Context, code string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE stream_access_codes SET revoked = 1 WHERE code = ?`, code)
	if err != nil {
		return false, fmt.Errorf("revoke access code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *LivestreamStore) ListCodes(ctx context.Context, limit int) ([]model.StreamAccessCode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accessCodeCols+` FROM stream_access_codes ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	defer rows.Close()

	var out []model.StreamAccessCode
	for rows.Next() {
		c, err := scanAccessCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access code: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
