package models

import (
	"strings"
	"time"
)

// MaxDescriptionLength bounds Plan.Description, counted in characters.
const MaxDescriptionLength = 500

// DefaultNotifyLeadMinutes is used when a plan is created without an explicit lead.
const DefaultNotifyLeadMinutes = 10

// DefaultSeriesLength is how far a recurring plan repeats when no end is given.
const DefaultSeriesLength = 3 // months

// Recurrence is the repeat kind of a plan.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ParseRecurrence maps a stored value back to a Recurrence, defaulting to none.
func ParseRecurrence(s string) Recurrence {
	switch Recurrence(strings.ToLower(strings.TrimSpace(s))) {
	case RecurrenceDaily:
		return RecurrenceDaily
	case RecurrenceWeekly:
		return RecurrenceWeekly
	case RecurrenceMonthly:
		return RecurrenceMonthly
	default:
		return RecurrenceNone
	}
}

// Plan is a single scheduled occurrence owned by a user.
//
// OccursAt is a floating wall-clock time: its fields are read in the owner's
// current timezone, the Location itself is always UTC and carries no meaning.
type Plan struct {
	ID                 string     `json:"id"`
	UserID             int64      `json:"user_id"`
	OccursAt           time.Time  `json:"occurs_at"`
	Description        string     `json:"description"`
	NotifyLeadMinutes  int        `json:"notify_lead_minutes"`
	Notified           bool       `json:"notified"`
	Recurrence         Recurrence `json:"recurrence"`
	RecurrenceEndAt    *time.Time `json:"recurrence_end_at,omitempty"`
	ParentRecurrenceID string     `json:"parent_recurrence_id,omitempty"`
}

// IsRecurring returns true if the plan belongs to a repeating series.
func (p *Plan) IsRecurring() bool {
	return p.Recurrence != "" && p.Recurrence != RecurrenceNone
}

// IsOccurrence reports whether the plan was generated from another plan.
func (p *Plan) IsOccurrence() bool {
	return p.ParentRecurrenceID != ""
}

// SeriesID returns the id of the original plan of the series this plan belongs to.
func (p *Plan) SeriesID() string {
	if p.ParentRecurrenceID != "" {
		return p.ParentRecurrenceID
	}
	return p.ID
}

// Clone returns a deep copy so callers never share a stored record.
func (p *Plan) Clone() *Plan {
	c := *p
	if p.RecurrenceEndAt != nil {
		end := *p.RecurrenceEndAt
		c.RecurrenceEndAt = &end
	}
	return &c
}

// Floating converts t into the floating wall-clock representation used by
// Plan.OccursAt: same year/month/day/hour/minute, UTC location, no seconds.
func Floating(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// DateOf truncates a floating time to midnight of its day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two floating times fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
