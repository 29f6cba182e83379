// Package parser extracts a date, time and description from free text such
// as "tomorrow at 15:00 dentist".
package parser

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ErrNoMatch means the text does not describe a plan.
var ErrNoMatch = errors.New("parser: no date/time found")

// Result is a parsed plan: a floating wall-clock time and what is left of the
// text once date and time words are removed.
type Result struct {
	At          time.Time
	Description string
}

// Parser turns free text into a Result. localNow is the user's current
// wall-clock time in floating form.
type Parser interface {
	Parse(ctx context.Context, text string, localNow time.Time) (Result, error)
}

var (
	clockRe    = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2}):(\d{2})\b`)
	hourRe     = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})\s*(am|pm|o'?clock)?\b`)
	dayWordRe  = regexp.MustCompile(`(?i)\b(day after tomorrow|tomorrow|today|tonight)\b`)
	inDaysRe   = regexp.MustCompile(`(?i)\bin\s+(\d{1,3})\s+days?\b`)
	dayMonthRe = regexp.MustCompile(`\b(?:on\s+)?(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(?:on\s+|next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

// Rules is a regular-expression Parser for English phrases. A time of day is
// required; the date defaults to today, or tomorrow if that time has passed.
type Rules struct{}

func (Rules) Parse(_ context.Context, text string, localNow time.Time) (Result, error) {
	rest := strings.TrimSpace(text)
	if rest == "" {
		return Result{}, ErrNoMatch
	}

	hour, minute, rest, ok := extractClock(rest)
	if !ok {
		return Result{}, ErrNoMatch
	}

	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, time.UTC)
	date, rest, explicit, ok := extractDate(rest, today)
	if !ok {
		return Result{}, ErrNoMatch
	}

	at := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
	if !explicit && at.Before(localNow) {
		at = at.AddDate(0, 0, 1)
	}

	desc := cleanDescription(rest)
	if desc == "" {
		return Result{}, ErrNoMatch
	}
	return Result{At: at, Description: desc}, nil
}

func extractClock(s string) (int, int, string, bool) {
	if m := clockRe.FindStringSubmatchIndex(s); m != nil {
		h, _ := strconv.Atoi(s[m[2]:m[3]])
		min, _ := strconv.Atoi(s[m[4]:m[5]])
		if h > 23 || min > 59 {
			return 0, 0, s, false
		}
		return h, min, s[:m[0]] + " " + s[m[1]:], true
	}
	if m := hourRe.FindStringSubmatchIndex(s); m != nil {
		h, _ := strconv.Atoi(s[m[2]:m[3]])
		if m[4] >= 0 {
			switch strings.ToLower(s[m[4]:m[5]]) {
			case "pm":
				if h < 12 {
					h += 12
				}
			case "am":
				if h == 12 {
					h = 0
				}
			}
		}
		if h > 23 {
			return 0, 0, s, false
		}
		return h, 0, s[:m[0]] + " " + s[m[1]:], true
	}
	return 0, 0, s, false
}

// extractDate returns the date named in s, s without it, and whether a date
// was given at all.
func extractDate(s string, today time.Time) (time.Time, string, bool, bool) {
	if m := dayWordRe.FindStringSubmatchIndex(s); m != nil {
		offset := 0
		switch strings.ToLower(s[m[2]:m[3]]) {
		case "tomorrow":
			offset = 1
		case "day after tomorrow":
			offset = 2
		}
		return today.AddDate(0, 0, offset), cut(s, m), true, true
	}

	if m := inDaysRe.FindStringSubmatchIndex(s); m != nil {
		n, _ := strconv.Atoi(s[m[2]:m[3]])
		return today.AddDate(0, 0, n), cut(s, m), true, true
	}

	if m := dayMonthRe.FindStringSubmatchIndex(s); m != nil {
		day, _ := strconv.Atoi(s[m[2]:m[3]])
		month, _ := strconv.Atoi(s[m[4]:m[5]])
		year := today.Year()
		explicitYear := m[6] >= 0
		if explicitYear {
			year, _ = strconv.Atoi(s[m[6]:m[7]])
		}
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if d.Day() != day || int(d.Month()) != month {
			return time.Time{}, s, false, false
		}
		if !explicitYear && d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
		return d, cut(s, m), true, true
	}

	if m := weekdayRe.FindStringSubmatchIndex(s); m != nil {
		want := weekdays[strings.ToLower(s[m[2]:m[3]])]
		days := (int(want) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days), cut(s, m), true, true
	}

	return today, s, false, true
}

func cut(s string, m []int) string {
	return s[:m[0]] + " " + s[m[1]:]
}

func cleanDescription(s string) string {
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	s = strings.Trim(s, " ,.-:")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
