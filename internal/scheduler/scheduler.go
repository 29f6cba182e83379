package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/messaging"
	"github.com/hray3182/planbot/internal/metrics"
	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/repository"
	"github.com/hray3182/planbot/internal/timezone"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = time.Minute

// DefaultDigestTime is the local time of the morning digest.
var DefaultDigestTime = format.Clock{Hour: 8, Minute: 0}

type Options struct {
	Interval   time.Duration
	DigestTime *format.Clock
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Scheduler runs the digest loop and the due-notification loop.
type Scheduler struct {
	plans    *repository.PlanRepository
	zones    *timezone.Resolver
	sender   messaging.Sender
	metrics  *metrics.Metrics
	interval time.Duration
	digestAt format.Clock
	now      func() time.Time
	notifyCh chan struct{}
	log      *slog.Logger

	mu         sync.Mutex
	lastDigest map[int64]time.Time
}

func New(plans *repository.PlanRepository, zones *timezone.Resolver, sender messaging.Sender, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	digestAt := DefaultDigestTime
	if opts.DigestTime != nil {
		digestAt = *opts.DigestTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		plans:      plans,
		zones:      zones,
		sender:     sender,
		metrics:    opts.Metrics,
		interval:   opts.Interval,
		digestAt:   digestAt,
		now:        opts.Now,
		notifyCh:   make(chan struct{}, 1),
		log:        slog.Default().With("component", "scheduler"),
		lastDigest: make(map[int64]time.Time),
	}
}

// Notify triggers an immediate due check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs both loops until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("scheduler started", "interval", s.interval, "digest_time", s.digestAt.String())
	defer s.log.Info("scheduler stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.dueLoop(ctx)
		return nil
	})
	g.Go(func() error {
		s.digestLoop(ctx)
		return nil
	})
	return g.Wait()
}

func (s *Scheduler) dueLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.safely("due", func() { s.checkDue(ctx) })
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safely("due", func() { s.checkDue(ctx) })
		case <-s.notifyCh:
			s.log.Debug("due check triggered by notification")
			s.safely("due", func() { s.checkDue(ctx) })
		}
	}
}

func (s *Scheduler) digestLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.safely("digest", func() { s.checkDigests(ctx) })
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safely("digest", func() { s.checkDigests(ctx) })
		}
	}
}

// safely runs one poll cycle, turning a panic into a log line so the loop
// carries on with the next tick.
func (s *Scheduler) safely(loop string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("poll cycle panicked", "loop", loop, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// checkDue sends a reminder for every due plan and returns how many were delivered.
func (s *Scheduler) checkDue(ctx context.Context) int {
	now := s.now()
	localNow := func(userID int64) time.Time { return s.zones.LocalNow(userID, now) }

	sent := 0
	for _, p := range s.plans.Due(localNow) {
		if ctx.Err() != nil {
			return sent
		}
		local := localNow(p.UserID)

		// Flag first. A crash before the send drops this reminder, never repeats it.
		if !s.plans.MarkNotified(ctx, p.UserID, p.ID) {
			continue
		}
		s.log.Info("plan marked notified", "user_id", p.UserID, "plan_id", p.ID)

		s.log.Info("sending reminder", "user_id", p.UserID, "plan_id", p.ID, "occurs_at", p.OccursAt.Format("2006-01-02 15:04"))
		err := s.sender.SendMessage(ctx, p.UserID, format.Reminder(p, local), nil)
		s.recordSend(p.UserID, err)
		if err == nil {
			sent++
		}
	}
	return sent
}

func (s *Scheduler) recordSend(userID int64, err error) {
	switch {
	case err == nil:
		s.metrics.NotificationSent()
	case errors.Is(err, messaging.ErrUnreachable):
		s.metrics.NotificationFailed(true)
		s.log.Warn("user unreachable", "user_id", userID, "error", err)
	default:
		s.metrics.NotificationFailed(false)
		s.log.Error("failed to send reminder", "user_id", userID, "error", err)
	}
}

// checkDigests sends the morning digest to every user whose local time has
// just reached the digest time. Each user gets at most one digest per local date.
func (s *Scheduler) checkDigests(ctx context.Context) int {
	now := s.now()
	sent := 0
	for _, userID := range s.plans.UserIDs() {
		if ctx.Err() != nil {
			return sent
		}
		local := s.zones.LocalNow(userID, now)
		if !s.digestDue(userID, local) {
			continue
		}

		today := models.DateOf(local)
		text := format.Digest(s.plans.ForDate(userID, today), today)
		if err := s.sender.SendMessage(ctx, userID, text, nil); err != nil {
			if errors.Is(err, messaging.ErrUnreachable) {
				s.log.Warn("user unreachable for digest", "user_id", userID, "error", err)
			} else {
				s.log.Error("failed to send digest", "user_id", userID, "error", err)
			}
			continue
		}
		s.metrics.DigestSent()
		s.log.Info("digest sent", "user_id", userID, "date", today.Format("2006-01-02"))
		sent++
	}
	return sent
}

// digestDue reports whether local falls in the poll window starting at the
// digest time and records the date so the same day never fires twice.
func (s *Scheduler) digestDue(userID int64, local time.Time) bool {
	at := s.digestAt.On(local)
	if local.Before(at) || !local.Before(at.Add(s.interval)) {
		return false
	}

	today := models.DateOf(local)
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastDigest[userID]; ok && last.Equal(today) {
		return false
	}
	s.lastDigest[userID] = today
	return true
}
