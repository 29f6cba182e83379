package format

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return time.Date(0, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format(clockLayout)
}

// On returns date at this clock time, as a floating time.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
}

// ParseDate accepts DD.MM.YYYY (single-digit day and month allowed) and
// rejects impossible dates such as 31.13.2026.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "📅"))
	t, err := time.Parse("2.1.2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseClock accepts HH:MM or H:MM, with an optional leading clock emoji.
func ParseClock(s string) (Clock, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "🕐"))
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return Clock{}, false
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, true
}

var leadRe = regexp.MustCompile(`^(?i)(?:⏰\s*)?(\d{1,4})\s*(min|mins|minutes|m|h|hour|hours)?$`)

// ParseLead accepts a bare number of minutes or a lead label ("10 min", "1 hour").
func ParseLead(s string) (int, bool) {
	m := leadRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "h", "hour", "hours":
		n *= 60
	}
	return n, true
}

// ParseSelection reads 1-based positions separated by spaces, commas or
// semicolons and returns the matching 0-based indices below n, deduplicated
// in input order. Out-of-range and non-numeric tokens are skipped.
func ParseSelection(s string, n int) []int {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := []int{}
	seen := map[int]bool{}
	for _, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil || idx < 1 || idx > n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx-1)
	}
	return out
}
