package livestream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/flock/internal/metrics"
	"github.com/dukerupert/flock/internal/model"
)

// IssueCode creates a 24-hour access code for an absentee. It fails with
// model.ErrNoActiveStream when there is no active password to unlock.
func (s *Service) IssueCode(ctx context.Context, memberName, phoneNumber string, checkinID *int64) (*model.StreamAccessCode, error) {
	active, err := s.store.ActivePassword(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, model.ErrNoActiveStream
	}

	now := s.now().UTC()
	var issued *model.StreamAccessCode
	_, attempts, err := s.codes.Issue(ctx, func(ctx context.Context, code string) error {
		c, err := s.store.InsertCode(ctx, code, memberName, phoneNumber, checkinID, now, now.Add(CodeLifetime))
		if err != nil {
			return err
		}
		issued = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("issue access code: %w", err)
	}
	if attempts > 1 {
		s.logger.Info("access code collided", "attempts", attempts)
	}

	metrics.AccessCodesIssued.Inc()
	return issued, nil
}

// ValidateCode checks a code and, on success, records the use. Checks run in
// order: existence, revocation, expiry, then an active stream.
func (s *Service) ValidateCode(ctx context.Context, code string) (*model.StreamAccess, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, model.Invalid("code", "is required")
	}

	access, err := s.validate(ctx, code)
	metrics.ObserveValidation(validationResult(err))
	return access, err
}

func (s *Service) validate(ctx context.Context, code string) (*model.StreamAccess, error) {
	c, err := s.store.GetCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrNotFound
	}
	if c.Revoked {
		return nil, model.ErrRevoked
	}

	now := s.now().UTC()
	if !now.Before(c.ExpiresAt) {
		return nil, model.ErrExpired
	}

	active, err := s.store.ActivePassword(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, model.ErrNoActiveStream
	}

	if err := s.store.RecordCodeUse(ctx, c.ID, now); err != nil {
		return nil, err
	}

	return &model.StreamAccess{
		VideoID:    active.VideoID,
		VideoURL:   active.VideoURL,
		Password:   active.Password,
		MemberName: c.MemberName,
	}, nil
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrRevoked):
		return "revoked"
	case errors.Is(err, model.ErrExpired):
		return "expired"
	case errors.Is(err, model.ErrNoActiveStream):
		return "no_stream"
	default:
		return "error"
	}
}

// RevokeCode flags a code so it can no longer unlock the stream.
func (s *Service) RevokeCode(ctx context.Context, code string) error {
	ok, err := s.store.RevokeCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotFound
	}
	s.logger.Info("access code revoked", "code", code)
	return nil
}

func (s *Service) RecentCodes(ctx context.Context, limit int) ([]model.StreamAccessCode, error) {
	return s.store.ListCodes(ctx, limit)
}
