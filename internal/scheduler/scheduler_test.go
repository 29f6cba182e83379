package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hray3182/planbot/internal/messaging"
	"github.com/hray3182/planbot/internal/metrics"
	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/repository"
	"github.com/hray3182/planbot/internal/storage"
	"github.com/hray3182/planbot/internal/timezone"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	moscowUser int64 = 1
	tokyoUser  int64 = 2
)

type fixture struct {
	sched  *Scheduler
	plans  *repository.PlanRepository
	zones  *timezone.Resolver
	sender *messaging.Recorder
	reg    *prometheus.Registry
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	zones, err := timezone.NewResolver(repository.NewTimezoneRepository(ctx, store, nil), timezone.DefaultZone)
	require.NoError(t, err)
	_, err = zones.SetZone(ctx, tokyoUser, "Asia/Tokyo")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	f := &fixture{
		plans:  repository.NewPlanRepository(ctx, store, m),
		zones:  zones,
		sender: messaging.NewRecorder(),
		reg:    reg,
	}
	f.sched = New(f.plans, f.zones, f.sender, Options{
		Metrics: m,
		Now:     func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) add(t *testing.T, userID int64, at time.Time, lead int, desc string) *models.Plan {
	t.Helper()
	p := &models.Plan{UserID: userID, OccursAt: at, Description: desc, NotifyLeadMinutes: lead}
	_, err := f.plans.Add(context.Background(), p)
	require.NoError(t, err)
	return p
}

// counter reads a counter from the registry, matching label value when given.
func (f *fixture) counter(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func wall(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, time.UTC)
}

func TestCheckDue_OwnerTimezone(t *testing.T) {
	f := newFixture(t)
	// Both plans read 15:00 on their owner's clock.
	moscow := f.add(t, moscowUser, wall(17, 15, 0), 10, "moscow call")
	tokyo := f.add(t, tokyoUser, wall(17, 15, 0), 10, "tokyo call")

	// 05:52 UTC is 14:52 in Tokyo and 08:52 in Moscow.
	f.now = time.Date(2026, time.October, 17, 5, 52, 0, 0, time.UTC)
	assert.Equal(t, 1, f.sched.checkDue(context.Background()))

	msgs := f.sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, tokyoUser, msgs[0].UserID)
	assert.Contains(t, msgs[0].Text, "tokyo call")
	assert.Contains(t, msgs[0].Text, "Starts in 8 min")

	stored, _ := f.plans.Get(tokyoUser, tokyo.ID)
	assert.True(t, stored.Notified)
	stored, _ = f.plans.Get(moscowUser, moscow.ID)
	assert.False(t, stored.Notified)

	// Never re-notified.
	assert.Equal(t, 0, f.sched.checkDue(context.Background()))

	// 11:55 UTC is 14:55 in Moscow.
	f.now = time.Date(2026, time.October, 17, 11, 55, 0, 0, time.UTC)
	assert.Equal(t, 1, f.sched.checkDue(context.Background()))
	last, ok := f.sender.Last(moscowUser)
	require.True(t, ok)
	assert.Contains(t, last.Text, "moscow call")
	assert.Equal(t, 2.0, f.counter(t, "planbot_scheduler_notifications_total", "sent"))
}

func TestCheckDue_Window(t *testing.T) {
	f := newFixture(t)
	f.add(t, moscowUser, wall(17, 15, 20), 10, "too early")
	f.add(t, moscowUser, wall(17, 14, 57), 0, "just missed")
	f.add(t, moscowUser, wall(17, 14, 59), 0, "starting now")

	// 14:59 and 30 seconds in Moscow.
	f.now = time.Date(2026, time.October, 17, 11, 59, 30, 0, time.UTC)
	assert.Equal(t, 1, f.sched.checkDue(context.Background()))
	last, _ := f.sender.Last(moscowUser)
	assert.Contains(t, last.Text, "starting now")
	assert.Contains(t, last.Text, "Starting now")
}

func TestCheckDue_FailureIsolated(t *testing.T) {
	f := newFixture(t)
	gone := f.add(t, moscowUser, wall(17, 15, 0), 10, "blocked")
	fine := f.add(t, tokyoUser, wall(17, 21, 0), 10, "fine")
	f.sender.FailFor(moscowUser, messaging.ErrUnreachable)

	// 11:55 UTC is 14:55 in Moscow and 20:55 in Tokyo.
	f.now = time.Date(2026, time.October, 17, 11, 55, 0, 0, time.UTC)
	assert.Equal(t, 1, f.sched.checkDue(context.Background()))

	msgs := f.sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, tokyoUser, msgs[0].UserID)

	for _, p := range []*models.Plan{gone, fine} {
		stored, _ := f.plans.Get(p.UserID, p.ID)
		assert.True(t, stored.Notified, p.Description)
	}
	assert.Equal(t, 1.0, f.counter(t, "planbot_scheduler_notifications_total", "unreachable"))
}

func TestCheckDue_OtherSendError(t *testing.T) {
	f := newFixture(t)
	f.add(t, moscowUser, wall(17, 15, 0), 10, "x")
	f.sender.FailFor(moscowUser, errors.New("network"))

	f.now = time.Date(2026, time.October, 17, 11, 55, 0, 0, time.UTC)
	assert.Equal(t, 0, f.sched.checkDue(context.Background()))
	assert.Equal(t, 1.0, f.counter(t, "planbot_scheduler_notifications_total", "failed"))
}

func TestCheckDigests(t *testing.T) {
	f := newFixture(t)
	f.add(t, moscowUser, wall(17, 15, 0), 10, "meeting")
	f.add(t, moscowUser, wall(17, 9, 30), 10, "standup")
	f.add(t, moscowUser, wall(18, 9, 30), 10, "tomorrow")
	f.add(t, tokyoUser, wall(20, 9, 0), 10, "later")

	// 05:00 UTC is 08:00 in Moscow and 14:00 in Tokyo.
	f.now = time.Date(2026, time.October, 17, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, f.sched.checkDigests(context.Background()))

	msg, ok := f.sender.Last(moscowUser)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Good morning")
	assert.Contains(t, msg.Text, "Plans for today (2)")
	assert.Contains(t, msg.Text, "standup")
	assert.NotContains(t, msg.Text, "tomorrow")

	// Same window again: no duplicate.
	f.now = f.now.Add(30 * time.Second)
	assert.Equal(t, 0, f.sched.checkDigests(context.Background()))

	// 23:00 UTC is 08:00 next day in Tokyo; no plans that day.
	f.now = time.Date(2026, time.October, 17, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, f.sched.checkDigests(context.Background()))
	msg, _ = f.sender.Last(tokyoUser)
	assert.Contains(t, msg.Text, "No plans for today")
	assert.Equal(t, 2.0, f.counter(t, "planbot_scheduler_digests_sent_total", ""))
}

func TestStart_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, time.October, 17, 11, 55, 0, 0, time.UTC)
	f.add(t, moscowUser, wall(17, 15, 0), 10, "x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Start(ctx) }()

	require.Eventually(t, func() bool { return len(f.sender.Messages()) == 1 }, time.Second, 10*time.Millisecond)

	f.add(t, moscowUser, wall(17, 15, 1), 10, "y")
	f.sched.Notify()
	require.Eventually(t, func() bool { return len(f.sender.Messages()) == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNotify_NonBlocking(t *testing.T) {
	f := newFixture(t)
	f.sched.Notify()
	f.sched.Notify()
	assert.Len(t, f.sched.notifyCh, 1)
}
