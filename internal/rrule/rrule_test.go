package rrule

import (
	"fmt"
	"testing"
	"time"

	"github.com/hray3182/planbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestOccurrences_Counts(t *testing.T) {
	start := at(2026, time.October, 17, 9, 0)
	end := DefaultEnd(start)
	require.Equal(t, at(2027, time.January, 17, 9, 0), end)

	tests := []struct {
		kind models.Recurrence
		want int
	}{
		{models.RecurrenceDaily, 91},
		{models.RecurrenceWeekly, 13},
		{models.RecurrenceMonthly, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := Occurrences(tt.kind, start, end)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for i, occ := range got {
				assert.True(t, occ.After(start), "occurrence %d not after start", i)
				assert.True(t, occ.Before(end), "occurrence %d not before end", i)
				if i > 0 {
					assert.True(t, occ.After(got[i-1]))
				}
			}
		})
	}
}

func TestDefaultEnd_ClampsMonthEnd(t *testing.T) {
	tests := []struct {
		start time.Time
		want  time.Time
	}{
		{at(2026, time.November, 30, 9, 0), at(2027, time.February, 28, 9, 0)},
		{at(2027, time.January, 31, 9, 0), at(2027, time.April, 30, 9, 0)},
		{at(2027, time.November, 30, 9, 0), at(2028, time.February, 29, 9, 0)},
		{at(2026, time.October, 31, 18, 15), at(2027, time.January, 31, 18, 15)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultEnd(tt.start), tt.start.Format("2006-01-02"))
	}
}

func TestOccurrences_DailyFromNovember30(t *testing.T) {
	start := at(2026, time.November, 30, 9, 0)
	got, err := Occurrences(models.RecurrenceDaily, start, DefaultEnd(start))
	require.NoError(t, err)
	require.Len(t, got, 89)
	assert.Equal(t, at(2027, time.February, 27, 9, 0), got[len(got)-1])
}

func TestOccurrences_MonthlyFromJanuary31(t *testing.T) {
	start := at(2027, time.January, 31, 9, 0)
	got, err := Occurrences(models.RecurrenceMonthly, start, DefaultEnd(start))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		at(2027, time.February, 28, 9, 0),
		at(2027, time.March, 31, 9, 0),
	}, got)
}

func TestOccurrences_EndExcluded(t *testing.T) {
	start := at(2026, time.March, 1, 8, 30)
	end := at(2026, time.March, 4, 8, 30)

	got, err := Occurrences(models.RecurrenceDaily, start, end)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		at(2026, time.March, 2, 8, 30),
		at(2026, time.March, 3, 8, 30),
	}, got)
}

func TestOccurrences_MonthEndClamps(t *testing.T) {
	start := at(2026, time.January, 31, 9, 0)
	end := at(2026, time.June, 1, 0, 0)

	got, err := Occurrences(models.RecurrenceMonthly, start, end)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		at(2026, time.February, 28, 9, 0),
		at(2026, time.March, 31, 9, 0),
		at(2026, time.April, 30, 9, 0),
		at(2026, time.May, 31, 9, 0),
	}, got)
}

func TestOccurrences_LeapFebruary(t *testing.T) {
	start := at(2028, time.January, 30, 12, 0)
	end := at(2028, time.April, 1, 0, 0)

	got, err := Occurrences(models.RecurrenceMonthly, start, end)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		at(2028, time.February, 29, 12, 0),
		at(2028, time.March, 30, 12, 0),
	}, got)
}

func TestOccurrences_NotRecurring(t *testing.T) {
	_, err := Occurrences(models.RecurrenceNone, at(2026, 1, 1, 0, 0), at(2026, 2, 1, 0, 0))
	assert.ErrorIs(t, err, ErrNotRecurring)
}

func TestOccurrences_EmptyWindow(t *testing.T) {
	start := at(2026, time.May, 5, 10, 0)
	got, err := Occurrences(models.RecurrenceDaily, start, start)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpand(t *testing.T) {
	original := &models.Plan{
		ID:                "orig",
		UserID:            42,
		OccursAt:          at(2026, time.October, 17, 9, 0),
		Description:       "standup",
		NotifyLeadMinutes: 15,
		Recurrence:        models.RecurrenceWeekly,
	}

	n := 0
	plans, err := Expand(original, func() string {
		n++
		return fmt.Sprintf("occ-%d", n)
	})
	require.NoError(t, err)
	require.NotNil(t, original.RecurrenceEndAt)
	assert.Equal(t, at(2027, time.January, 17, 9, 0), *original.RecurrenceEndAt)
	require.Len(t, plans, 13)

	for i, p := range plans {
		assert.Equal(t, fmt.Sprintf("occ-%d", i+1), p.ID)
		assert.Equal(t, "orig", p.ParentRecurrenceID)
		assert.Equal(t, int64(42), p.UserID)
		assert.Equal(t, "standup", p.Description)
		assert.Equal(t, 15, p.NotifyLeadMinutes)
		assert.Equal(t, models.RecurrenceWeekly, p.Recurrence)
		assert.False(t, p.Notified)
		assert.Equal(t, original.OccursAt.AddDate(0, 0, 7*(i+1)), p.OccursAt)
	}
}

func TestExpand_OneOff(t *testing.T) {
	plans, err := Expand(&models.Plan{ID: "x", Recurrence: models.RecurrenceNone}, func() string { return "y" })
	require.NoError(t, err)
	assert.Nil(t, plans)
}
