package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/phone"
	"github.com/google/uuid"
)

type MemberStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db, now: time.Now}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.Address,
		&m.DateOfBirth, &m.Gender, &m.Notes, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const memberCols = `id, first_name, last_name, email, phone, address, date_of_birth, gender, notes, status, created_at, updated_at`

func (s *MemberStore) Create(ctx context.Context, in model.MemberInput) (*model.Member, error) {
	if in.Status == "" {
		in.Status = model.MemberStatusActive
	}
	id := uuid.NewString()
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, first_name, last_name, email, phone, address, date_of_birth, gender, notes, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.FirstName, in.LastName, in.Email, in.Phone, in.Address,
		in.DateOfBirth, in.Gender, in.Notes, in.Status, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *MemberStore) GetByID(ctx context.Context, id string) (*model.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// List returns members ordered by name. activeOnly filters out retired members.
func (s *MemberStore) List(ctx context.Context, activeOnly bool) ([]model.Member, error) {
	query := `SELECT ` + memberCols + ` FROM members`
	var args []any
	if activeOnly {
		query += ` WHERE status = ?`
		args = append(args, model.MemberStatusActive)
	}
	query += ` ORDER BY last_name COLLATE NOCASE, first_name COLLATE NOCASE`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListByIDs returns the members whose ids appear in ids, ordered by name.
// Unknown ids are ignored.
func (s *MemberStore) ListByIDs(ctx context.Context, ids []string) ([]model.Member, error) {
	var members []model.Member
	for start := 0; start < len(ids); start += batchSize {
		batch := ids[start:min(start+batchSize, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT `+memberCols+` FROM members WHERE id IN (`+placeholders(len(batch))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("list members by id: %w", err)
		}
		for rows.Next() {
			m, err := scanMember(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan member: %w", err)
			}
			members = append(members, *m)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("list members by id: %w", err)
		}
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].LastName != members[j].LastName {
			return members[i].LastName < members[j].LastName
		}
		return members[i].FirstName < members[j].FirstName
	})
	return members, nil
}

func (s *MemberStore) Update(ctx context.Context, id string, in model.MemberInput) (*model.Member, error) {
	if in.Status == "" {
		in.Status = model.MemberStatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE members SET first_name = ?, last_name = ?, email = ?, phone = ?, address = ?,
		 date_of_birth = ?, gender = ?, notes = ?, status = ?, updated_at = ? WHERE id = ?`,
		in.FirstName, in.LastName, in.Email, in.Phone, in.Address,
		in.DateOfBirth, in.Gender, in.Notes, in.Status, s.now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a member outright. Attendance rows cascade.
func (s *MemberStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// FindActiveByPhone returns the first active member whose phone shares the
// last 10 digits with p, or nil if nobody matches.
func (s *MemberStore) FindActiveByPhone(ctx context.Context, p string) (*model.Member, error) {
	key := phone.MatchKey(p)
	if key == "" {
		return nil, nil
	}

	members, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if phone.MatchKey(members[i].Phone) == key {
			return &members[i], nil
		}
	}
	return nil, nil
}

// PhoneExists reports whether any member already uses the phone number.
func (s *MemberStore) PhoneExists(ctx context.Context, p string) (bool, error) {
	key := phone.MatchKey(p)
	if key == "" {
		return false, nil
	}
	members, err := s.List(ctx, false)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if phone.MatchKey(m.Phone) == key {
			return true, nil
		}
	}
	return false, nil
}
