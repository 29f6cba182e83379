package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/planbot/internal/metrics"
	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/rrule"
)

// MaxUpcomingDates caps UpcomingDates.
const MaxUpcomingDates = 10

// DueTolerance is how long after its start a plan may still be reported as due.
// It absorbs the one-minute polling granularity.
const DueTolerance = time.Minute

// ErrSeriesMember is returned when a series is started from a plan that
// already belongs to one.
var ErrSeriesMember = errors.New("repository: plan already belongs to a series")

// PlanSnapshotter loads and saves the whole plan collection.
type PlanSnapshotter interface {
	LoadPlans(ctx context.Context) ([]*models.Plan, error)
	SavePlans(ctx context.Context, plans []*models.Plan) error
}

// PlanRepository holds every plan in memory and writes the full collection
// through to its snapshotter after each mutation. All access is serialized by
// a single mutex. Returned plans are copies.
type PlanRepository struct {
	mu      sync.Mutex
	plans   []*models.Plan
	snap    PlanSnapshotter
	metrics *metrics.Metrics
	newID   func() string
	log     *slog.Logger
}

// NewPlanRepository loads the collection from snap. A load failure is logged
// and the repository starts empty.
func NewPlanRepository(ctx context.Context, snap PlanSnapshotter, m *metrics.Metrics) *PlanRepository {
	r := &PlanRepository{
		snap:    snap,
		metrics: m,
		newID:   uuid.NewString,
		log:     slog.Default().With("component", "plan_repository"),
	}

	plans, err := snap.LoadPlans(ctx)
	if err != nil {
		r.log.Error("failed to load plans, starting empty", "error", err)
		return r
	}
	for _, p := range plans {
		if p == nil || p.ID == "" {
			continue
		}
		if p.Recurrence == "" {
			p.Recurrence = models.RecurrenceNone
		}
		p.OccursAt = models.Floating(p.OccursAt)
		r.plans = append(r.plans, p)
	}
	r.log.Info("plans loaded", "count", len(r.plans))
	return r
}

// Add stores plan and, for a recurring plan, every generated occurrence. The
// batch is persisted once. plan.ID and plan.RecurrenceEndAt are filled in on
// the caller's value. It returns the number of records stored.
func (r *PlanRepository) Add(ctx context.Context, plan *models.Plan) (int, error) {
	p := plan.Clone()
	if p.ID == "" {
		p.ID = r.newID()
	}
	if p.Recurrence == "" {
		p.Recurrence = models.RecurrenceNone
	}
	p.OccursAt = models.Floating(p.OccursAt)
	p.ParentRecurrenceID = ""

	occurrences, err := rrule.Expand(p, r.newID)
	if err != nil {
		return 0, fmt.Errorf("failed to expand series: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans = append(r.plans, p)
	r.plans = append(r.plans, occurrences...)
	r.persistLocked(ctx)

	plan.ID = p.ID
	plan.OccursAt = p.OccursAt
	if p.RecurrenceEndAt != nil {
		end := *p.RecurrenceEndAt
		plan.RecurrenceEndAt = &end
	}
	return 1 + len(occurrences), nil
}

// Update replaces the stored plan with the same ID and UserID. It returns
// false when no such plan exists, e.g. it was deleted after being shown.
func (r *PlanRepository) Update(ctx context.Context, plan *models.Plan) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(plan.UserID, plan.ID)
	if i < 0 {
		return false
	}
	p := plan.Clone()
	p.OccursAt = models.Floating(p.OccursAt)
	r.plans[i] = p
	r.persistLocked(ctx)
	return true
}

// StartSeries turns a standalone plan into the original of a new series of
// kind and stores the generated occurrences. It returns the number of
// occurrences added and false if the plan does not exist.
func (r *PlanRepository) StartSeries(ctx context.Context, userID int64, id string, kind models.Recurrence) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(userID, id)
	if i < 0 {
		return 0, false, nil
	}
	original := r.plans[i]
	if original.IsOccurrence() || r.hasChildrenLocked(original.ID) {
		return 0, true, ErrSeriesMember
	}

	p := original.Clone()
	p.Recurrence = kind
	p.RecurrenceEndAt = nil
	occurrences, err := rrule.Expand(p, r.newID)
	if err != nil {
		return 0, true, fmt.Errorf("failed to expand series: %w", err)
	}

	r.plans[i] = p
	r.plans = append(r.plans, occurrences...)
	r.persistLocked(ctx)
	return len(occurrences), true, nil
}

// Get returns a copy of the user's plan with id.
func (r *PlanRepository) Get(userID int64, id string) (*models.Plan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(userID, id)
	if i < 0 {
		return nil, false
	}
	return r.plans[i].Clone(), true
}

// IsStandalone reports whether the plan neither belongs to nor originates a series.
func (r *PlanRepository) IsStandalone(userID int64, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(userID, id)
	if i < 0 {
		return false
	}
	return !r.plans[i].IsOccurrence() && !r.hasChildrenLocked(id)
}

// Delete removes a single plan and returns the number removed (0 or 1).
func (r *PlanRepository) Delete(ctx context.Context, userID int64, id string) int {
	return r.deleteWhere(ctx, func(p *models.Plan) bool {
		return p.UserID == userID && p.ID == id
	})
}

// DeleteByDate removes every plan of the user on the calendar date of date.
func (r *PlanRepository) DeleteByDate(ctx context.Context, userID int64, date time.Time) int {
	return r.deleteWhere(ctx, func(p *models.Plan) bool {
		return p.UserID == userID && models.SameDate(p.OccursAt, date)
	})
}

// DeleteSeries removes the original plan originalID and every occurrence
// generated from it.
func (r *PlanRepository) DeleteSeries(ctx context.Context, userID int64, originalID string) int {
	return r.deleteWhere(ctx, func(p *models.Plan) bool {
		return p.UserID == userID && (p.ID == originalID || p.ParentRecurrenceID == originalID)
	})
}

// DeleteMany removes the user's plans whose ids are listed.
func (r *PlanRepository) DeleteMany(ctx context.Context, userID int64, ids []string) int {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return r.deleteWhere(ctx, func(p *models.Plan) bool {
		_, ok := set[p.ID]
		return ok && p.UserID == userID
	})
}

func (r *PlanRepository) deleteWhere(ctx context.Context, match func(*models.Plan) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.plans)
	r.plans = slices.DeleteFunc(r.plans, match)
	removed := before - len(r.plans)
	if removed > 0 {
		r.persistLocked(ctx)
	}
	return removed
}

// ForDate returns the user's plans on the calendar date of date, ordered by time.
func (r *PlanRepository) ForDate(userID int64, date time.Time) []*models.Plan {
	return r.selectSorted(func(p *models.Plan) bool {
		return p.UserID == userID && models.SameDate(p.OccursAt, date)
	})
}

// Upcoming returns the user's plans at or after from, ordered by time.
func (r *PlanRepository) Upcoming(userID int64, from time.Time) []*models.Plan {
	return r.selectSorted(func(p *models.Plan) bool {
		return p.UserID == userID && !p.OccursAt.Before(from)
	})
}

// CountUpcoming returns len(Upcoming(userID, from)) without copying.
func (r *PlanRepository) CountUpcoming(userID int64, from time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.plans {
		if p.UserID == userID && !p.OccursAt.Before(from) {
			n++
		}
	}
	return n
}

// Search returns the user's plans whose description contains query,
// ignoring case, ordered by time.
func (r *PlanRepository) Search(userID int64, query string) []*models.Plan {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return r.selectSorted(func(p *models.Plan) bool {
		return p.UserID == userID && strings.Contains(strings.ToLower(p.Description), q)
	})
}

// UpcomingDates returns the first MaxUpcomingDates distinct dates, ascending,
// on which the user has a plan at or after from.
func (r *PlanRepository) UpcomingDates(userID int64, from time.Time) []time.Time {
	r.mu.Lock()
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, p := range r.plans {
		if p.UserID != userID || p.OccursAt.Before(from) {
			continue
		}
		d := models.DateOf(p.OccursAt)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	r.mu.Unlock()

	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	if len(dates) > MaxUpcomingDates {
		dates = dates[:MaxUpcomingDates]
	}
	return dates
}

// Due returns every plan not yet notified whose reminder window contains its
// owner's local time: 0 <= occursAt-localNow+DueTolerance and
// occursAt-localNow <= lead. localNow is called at most once per user.
func (r *PlanRepository) Due(localNow func(userID int64) time.Time) []*models.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()

	nows := make(map[int64]time.Time)
	var due []*models.Plan
	for _, p := range r.plans {
		if p.Notified {
			continue
		}
		now, ok := nows[p.UserID]
		if !ok {
			now = localNow(p.UserID)
			nows[p.UserID] = now
		}
		diff := p.OccursAt.Sub(now)
		if diff <= time.Duration(p.NotifyLeadMinutes)*time.Minute && diff >= -DueTolerance {
			due = append(due, p.Clone())
		}
	}
	slices.SortStableFunc(due, func(a, b *models.Plan) int { return a.OccursAt.Compare(b.OccursAt) })
	return due
}

// MarkNotified sets the notified flag and persists. Returns false if the
// plan no longer exists.
func (r *PlanRepository) MarkNotified(ctx context.Context, userID int64, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(userID, id)
	if i < 0 {
		return false
	}
	if r.plans[i].Notified {
		return true
	}
	r.plans[i].Notified = true
	r.persistLocked(ctx)
	return true
}

// UserIDs returns every user owning at least one plan, ascending.
func (r *PlanRepository) UserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]struct{})
	var ids []int64
	for _, p := range r.plans {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	slices.Sort(ids)
	return ids
}

func (r *PlanRepository) selectSorted(match func(*models.Plan) bool) []*models.Plan {
	r.mu.Lock()
	var out []*models.Plan
	for _, p := range r.plans {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	r.mu.Unlock()

	slices.SortStableFunc(out, func(a, b *models.Plan) int { return a.OccursAt.Compare(b.OccursAt) })
	return out
}

func (r *PlanRepository) indexLocked(userID int64, id string) int {
	return slices.IndexFunc(r.plans, func(p *models.Plan) bool {
		return p.ID == id && p.UserID == userID
	})
}

func (r *PlanRepository) hasChildrenLocked(id string) bool {
	return slices.ContainsFunc(r.plans, func(p *models.Plan) bool {
		return p.ParentRecurrenceID == id
	})
}

// persistLocked writes the collection through. On failure the in-memory
// state stays authoritative until the next successful write.
func (r *PlanRepository) persistLocked(ctx context.Context) {
	snapshot := make([]*models.Plan, len(r.plans))
	for i, p := range r.plans {
		snapshot[i] = p.Clone()
	}
	if err := r.snap.SavePlans(ctx, snapshot); err != nil {
		r.metrics.StoreWriteFailed("plans")
		r.log.Error("failed to persist plans", "count", len(snapshot), "error", err)
	}
}
