package rrule

import (
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/planbot/internal/models"
	"github.com/teambition/rrule-go"
)

// ErrNotRecurring is returned when a series is requested for a one-off plan.
var ErrNotRecurring = errors.New("rrule: plan does not recur")

// Build returns the RFC 5545 rule for a recurrence kind starting at dtstart.
//
// Monthly rules keep the day-of-month of dtstart and clamp it to the last day
// of shorter months (Jan 31 -> Feb 28 -> Mar 31). The clamp is expressed as
// BYMONTHDAY=d,-1;BYSETPOS=1 so the anchor never drifts.
func Build(kind models.Recurrence, dtstart time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Interval: 1,
		Dtstart:  dtstart,
	}

	switch kind {
	case models.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case models.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		if day := dtstart.Day(); day > 28 {
			opt.Bymonthday = []int{day, -1}
			opt.Bysetpos = []int{1}
		}
	default:
		return nil, ErrNotRecurring
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule: %w", err)
	}
	return rule, nil
}

// Occurrences returns every instant of the series strictly after start and
// strictly before end, in ascending order. start itself belongs to the
// original plan and is never returned.
func Occurrences(kind models.Recurrence, start, end time.Time) ([]time.Time, error) {
	if !end.After(start) {
		return nil, nil
	}
	rule, err := Build(kind, start)
	if err != nil {
		return nil, err
	}
	return rule.Between(start, end, false), nil
}

// DefaultEnd is the series end used when a recurring plan has none.
func DefaultEnd(start time.Time) time.Time {
	return AddMonths(start, models.DefaultSeriesLength)
}

// AddMonths moves t by n calendar months, clamping the day to the last day of
// the target month (Nov 30 + 3 months is Feb 28, not Mar 2).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(day, last),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Expand generates the occurrences of an original plan. Each occurrence is a
// copy of the original with a fresh id from newID and ParentRecurrenceID set
// to the original's id. RecurrenceEndAt on the original is defaulted in place
// when unset.
func Expand(original *models.Plan, newID func() string) ([]*models.Plan, error) {
	if !original.IsRecurring() {
		return nil, nil
	}
	if original.RecurrenceEndAt == nil {
		end := DefaultEnd(original.OccursAt)
		original.RecurrenceEndAt = &end
	}

	instants, err := Occurrences(original.Recurrence, original.OccursAt, *original.RecurrenceEndAt)
	if err != nil {
		return nil, err
	}

	plans := make([]*models.Plan, 0, len(instants))
	for _, at := range instants {
		occ := original.Clone()
		occ.ID = newID()
		occ.OccursAt = models.Floating(at)
		occ.Notified = false
		occ.ParentRecurrenceID = original.ID
		plans = append(plans, occ)
	}
	return plans, nil
}
