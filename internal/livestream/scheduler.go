package livestream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/store"
)

// Scheduler periodically checks whether the weekly password rotation is due.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	store    *store.LivestreamStore
	loc      *time.Location
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}

	// skipped is the last slot passed over for lack of a video id.
	skipped time.Time
}

// NewScheduler creates a rotation scheduler that evaluates the schedule in loc.
func NewScheduler(svc *Service, ls *store.LivestreamStore, loc *time.Location, interval time.Duration, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		service:  svc,
		store:    ls,
		loc:      loc,
		interval: interval,
		now:      time.Now,
		logger:   logger.With("component", "rotation_scheduler"),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick reports whether a rotation ran.
func (s *Scheduler) tick(ctx context.Context) bool {
	sch, err := s.store.GetSchedule(ctx)
	if err != nil {
		s.logger.Error("load rotation schedule", "error", err)
		return false
	}

	now := s.now()
	slot, due := isDue(now.In(s.loc), sch)
	if !due {
		return false
	}
	if !s.service.HasVideo() {
		if !slot.Equal(s.skipped) {
			s.logger.Warn("scheduled rotation skipped: no video id configured", "slot", slot)
			s.skipped = slot
		}
		return false
	}

	res, err := s.service.Rotate(ctx, RotateRequest{Type: model.RotationScheduled})
	if err != nil {
		s.logger.Error("scheduled rotation failed", "error", err)
		return false
	}
	if res.Warning != "" {
		s.logger.Warn("scheduled rotation", "warning", res.Warning)
	}

	if err := s.store.MarkScheduleRun(ctx, now); err != nil {
		s.logger.Error("mark schedule run", "error", err)
	}
	return true
}

// lastSlot returns the most recent scheduled slot at or before now, in now's
// location.
func lastSlot(now time.Time, dayOfWeek int, timeOfDay string) (time.Time, bool) {
	tod, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, false
	}

	back := (int(now.Weekday()) - dayOfWeek + 7) % 7
	y, m, d := now.AddDate(0, 0, -back).Date()
	slot := time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, now.Location())
	if slot.After(now) {
		slot = slot.AddDate(0, 0, -7)
	}
	return slot, true
}

// isDue reports whether the schedule is enabled and has not run since its
// most recent slot, and returns that slot.
func isDue(now time.Time, sch *model.RotationSchedule) (time.Time, bool) {
	if sch == nil || !sch.Enabled {
		return time.Time{}, false
	}
	slot, ok := lastSlot(now, sch.DayOfWeek, sch.TimeOfDay)
	if !ok {
		return time.Time{}, false
	}
	return slot, sch.LastRun == nil || sch.LastRun.Before(slot)
}
