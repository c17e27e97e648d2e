package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/flock/internal/model"
)

type AttendanceStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAttendanceStore(db *sql.DB) *AttendanceStore {
	return &AttendanceStore{db: db, now: time.Now}
}

// Record replaces every attendance row for the (date, serviceType) occurrence
// with one present row per member in presentIDs. The delete and inserts share a
// transaction, so readers see either the old set or the new set.
func (s *AttendanceStore) Record(ctx context.Context, date, serviceType string, presentIDs []string) (*model.RecordResult, error) {
	ids := UniqueIDs(presentIDs)
	checkedInAt := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM attendance WHERE date = ? AND service_type = ?`,
		date, serviceType,
	)
	if err != nil {
		return nil, fmt.Errorf("delete attendance: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	var inserted int64
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		batch := ids[start:end]

		values := make([]string, len(batch))
		args := make([]any, 0, len(batch)*4)
		for i, id := range batch {
			values[i] = "(?, ?, ?, 1, ?)"
			args = append(args, date, serviceType, id, checkedInAt)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO attendance (date, service_type, member_id, present, checked_in_at) VALUES `+
				strings.Join(values, ", ")+
				` ON CONFLICT (date, service_type, member_id) DO UPDATE SET present = 1, checked_in_at = excluded.checked_in_at`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("insert attendance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance: %w", err)
	}

	return &model.RecordResult{
		Date:            date,
		ServiceType:     serviceType,
		InsertedCount:   inserted,
		DeletedPrevious: deleted,
	}, nil
}

func scanAttendance(scanner interface{ Scan(...any) error }) (*model.AttendanceRecord, error) {
	var a model.AttendanceRecord
	var present int
	if err := scanner.Scan(&a.Date, &a.ServiceType, &a.MemberID, &present, &a.CheckedInAt); err != nil {
		return nil, err
	}
	a.Present = present != 0
	return &a, nil
}

const attendanceCols = `date, service_type, member_id, present, checked_in_at`

// List returns attendance rows with date in [from, to], optionally filtered by
// service type, ordered by occurrence.
func (s *AttendanceStore) List(ctx context.Context, from, to, serviceType string) ([]model.AttendanceRecord, error) {
	query := `SELECT ` + attendanceCols + ` FROM attendance WHERE date >= ? AND date <= ?`
	args := []any{from, to}
	if serviceType != "" {
		query += ` AND service_type = ?`
		args = append(args, serviceType)
	}
	query += ` ORDER BY date, service_type, member_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *a)
	}
	return records, rows.Err()
}

// OccurredServices returns every service occurrence in [from, to] that has at
// least one attendance row. A service with no rows is invisible here.
func (s *AttendanceStore) OccurredServices(ctx context.Context, from, to string) ([]model.ServiceKey, error) {
	return s.serviceKeys(ctx,
		`SELECT DISTINCT date, service_type FROM attendance WHERE date >= ? AND date <= ? ORDER BY date, service_type`,
		from, to,
	)
}

// AttendedServices returns the occurrences in [from, to] where memberID was present.
func (s *AttendanceStore) AttendedServices(ctx context.Context, memberID, from, to string) ([]model.ServiceKey, error) {
	return s.serviceKeys(ctx,
		`SELECT DISTINCT date, service_type FROM attendance
		 WHERE member_id = ? AND present = 1 AND date >= ? AND date <= ? ORDER BY date, service_type`,
		memberID, from, to,
	)
}

func (s *AttendanceStore) serviceKeys(ctx context.Context, query string, args ...any) ([]model.ServiceKey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var keys []model.ServiceKey
	for rows.Next() {
		var k model.ServiceKey
		if err := rows.Scan(&k.Date, &k.ServiceType); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PresentMemberIDs returns the members marked present for one occurrence.
func (s *AttendanceStore) PresentMemberIDs(ctx context.Context, date, serviceType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id FROM attendance WHERE date = ? AND service_type = ? AND present = 1 ORDER BY member_id`,
		date, serviceType,
	)
	if err != nil {
		return nil, fmt.Errorf("query present members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Summaries returns the trigger-maintained counts for occurrences in [from, to].
func (s *AttendanceStore) Summaries(ctx context.Context, from, to string) ([]model.ServiceSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, service_type, present_count, total_rows FROM service_summaries
		 WHERE date >= ? AND date <= ? ORDER BY date, service_type`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []model.ServiceSummary
	for rows.Next() {
		var sum model.ServiceSummary
		if err := rows.Scan(&sum.Date, &sum.ServiceType, &sum.PresentCount, &sum.TotalRows); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
