// Package livestream owns the gated livestream: the rotating video password,
// the per-absentee access codes that unlock it and the weekly rotation job.
package livestream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/flock/internal/accesscode"
	"github.com/dukerupert/flock/internal/metrics"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/store"
	"github.com/dukerupert/flock/internal/vimeo"
)

const (
	PasswordLifetime = 7 * 24 * time.Hour
	CodeLifetime     = 24 * time.Hour
)

// PasswordPusher pushes a new password to the video host.
type PasswordPusher interface {
	Configured() bool
	SetPassword(ctx context.Context, videoID, password string) error
}

type Service struct {
	store     *store.LivestreamStore
	pusher    PasswordPusher
	videoID   string
	passwords func() (string, error)
	codes     accesscode.Issuer
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIssuer overrides the access-code issuer.
func WithIssuer(iss accesscode.Issuer) Option {
	return func(s *Service) {
		s.codes = iss
	}
}

func NewService(ls *store.LivestreamStore, pusher PasswordPusher, videoID string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     ls,
		pusher:    pusher,
		videoID:   videoID,
		passwords: accesscode.NewPasswordGenerator().Generate,
		codes:     accesscode.NewIssuer(),
		now:       time.Now,
		logger:    logger.With("component", "livestream"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RotateRequest describes one rotation. Empty fields fall back to the
// configured video id and a generated password.
type RotateRequest struct {
	VideoID  string
	Password string
	Type     string
}

type RotateResult struct {
	Password *model.LivestreamPassword
	Warning  string
}

// Rotate pushes a new password to the video host and then records it as the
// only active password. The local record is written even when the push fails.
func (s *Service) Rotate(ctx context.Context, req RotateRequest) (*RotateResult, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		videoID = s.videoID
	}
	if videoID == "" {
		return nil, model.Invalid("videoId", "no video id provided or configured")
	}

	rotationType := req.Type
	if rotationType == "" {
		rotationType = model.RotationManual
	}
	if rotationType != model.RotationManual && rotationType != model.RotationScheduled {
		return nil, model.Invalid("rotationType", "must be manual or scheduled")
	}

	password := strings.TrimSpace(req.Password)
	if password == "" {
		pw, err := s.passwords()
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		password = pw
	}

	var warning string
	synced := false
	switch {
	case s.pusher == nil || !s.pusher.Configured():
		warning = "vimeo not configured; password saved locally only"
	default:
		if err := s.pusher.SetPassword(ctx, videoID, password); err != nil {
			s.logger.Warn("vimeo password sync failed", "video_id", videoID, "error", err)
			warning = "vimeo sync failed; password saved locally only"
		} else {
			synced = true
		}
	}

	now := s.now().UTC()
	p, err := s.store.Rotate(ctx, model.LivestreamPassword{
		VideoID:      videoID,
		Password:     password,
		VideoURL:     vimeo.VideoURL(videoID),
		RotationType: rotationType,
		VimeoSynced:  synced,
		CreatedAt:    now,
		ExpiresAt:    now.Add(PasswordLifetime),
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveRotation(rotationType, synced)
	s.logger.Info("livestream password rotated", "id", p.ID, "type", rotationType, "synced", synced)
	return &RotateResult{Password: p, Warning: warning}, nil
}

// HasVideo reports whether a default video id is configured.
func (s *Service) HasVideo() bool {
	return s.videoID != ""
}

// Current returns the active password or model.ErrNotFound.
func (s *Service) Current(ctx context.Context) (*model.LivestreamPassword, error) {
	p, err := s.store.ActivePassword(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound
	}
	return p, nil
}

func (s *Service) Schedule(ctx context.Context) (*model.RotationSchedule, error) {
	return s.store.GetSchedule(ctx)
}

// UpdateSchedule validates and stores the weekly rotation slot. Enabling a
// disabled schedule does not rotate right away; the first scheduled rotation
// happens at the next slot.
func (s *Service) UpdateSchedule(ctx context.Context, dayOfWeek int, timeOfDay string, enabled bool) (*model.RotationSchedule, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, model.Invalid("dayOfWeek", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if _, err := time.Parse("15:04", timeOfDay); err != nil {
		return nil, model.Invalid("timeOfDay", "must be HH:MM")
	}
	return s.store.UpdateSchedule(ctx, dayOfWeek, timeOfDay, enabled, s.now())
}
