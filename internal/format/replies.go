package format

import (
	"fmt"
	"time"

	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/timezone"
)

// Quick-reply labels. The transport sends them back verbatim as text.
const (
	LabelAdd      = "➕ Add plan"
	LabelPlans    = "📅 My plans"
	LabelEdit     = "✏️ Edit"
	LabelDelete   = "🗑 Delete"
	LabelSearch   = "🔍 Search"
	LabelSettings = "⚙️ Settings"
	LabelHelp     = "❓ Help"
	LabelMenu     = "🏠 Menu"
	LabelCancel   = "❌ Cancel"
	LabelTimezone = "🌍 Timezone"
	LabelManual   = "✍️ Enter manually"

	LabelNoRepeat = "⏭ No repeat"
	LabelDaily    = "🔄 Every day"
	LabelWeekly   = "🔄 Every week"
	LabelMonthly  = "🔄 Every month"

	LabelFieldDate        = "📅 Date"
	LabelFieldTime        = "🕐 Time"
	LabelFieldDescription = "📝 Description"
	LabelFieldLead        = "⏰ Reminder"
	LabelFieldRecurrence  = "🔄 Repeat"

	LabelDeleteByIndex = "🗑 By numbers (1 2 3)"
	LabelDeleteByDate  = "🗑 All on a date"
	LabelDeleteSeries  = "🗑 Whole series"

	zoneLabelPrefix = "🌍 "
)

// QuickClocks are the one-tap times offered when asking for a time.
var QuickClocks = []Clock{{9, 0}, {12, 0}, {15, 0}, {18, 0}, {20, 0}, {21, 0}}

// QuickLeads are the one-tap notify leads, in minutes.
var QuickLeads = []int{5, 10, 15, 30, 60}

var dayOffsetNames = []string{"Today", "Tomorrow", "Day after tomorrow"}

// MainMenu is shown whenever the session is idle.
func MainMenu() [][]string {
	return [][]string{
		{LabelAdd, LabelPlans},
		{LabelEdit, LabelDelete},
		{LabelSearch, LabelSettings},
	}
}

func CancelReplies() [][]string {
	return [][]string{{LabelMenu, LabelCancel}}
}

func SettingsReplies() [][]string {
	return [][]string{{LabelTimezone}, {LabelHelp, LabelMenu}}
}

// DayOffsetLabel is the quick-pick label for today plus days.
func DayOffsetLabel(days int, today time.Time) string {
	return fmt.Sprintf("📅 %s (%s)", dayOffsetNames[days], today.AddDate(0, 0, days).Format(shortDateLayout))
}

// DateReplies offers today, tomorrow and the day after, plus manual entry.
func DateReplies(today time.Time) [][]string {
	return [][]string{
		{DayOffsetLabel(0, today), DayOffsetLabel(1, today)},
		{DayOffsetLabel(2, today)},
		{LabelManual, LabelCancel},
	}
}

func TimeReplies() [][]string {
	rows := make([][]string, 0, 3)
	row := []string{}
	for _, c := range QuickClocks {
		row = append(row, "🕐 "+c.String())
		if len(row) == 3 {
			rows = append(rows, row)
			row = []string{}
		}
	}
	return append(rows, []string{LabelManual, LabelCancel})
}

// LeadReplyLabel is the quick-pick label for a lead in minutes.
func LeadReplyLabel(minutes int) string {
	return "⏰ " + LeadLabel(minutes)
}

func LeadReplies() [][]string {
	return [][]string{
		{LeadReplyLabel(5), LeadReplyLabel(10)},
		{LeadReplyLabel(15), LeadReplyLabel(30)},
		{LeadReplyLabel(60), LabelCancel},
	}
}

func RecurrenceReplies() [][]string {
	return [][]string{
		{LabelDaily, LabelWeekly},
		{LabelMonthly, LabelNoRepeat},
		{LabelCancel},
	}
}

func EditFieldReplies() [][]string {
	return [][]string{
		{LabelFieldDate, LabelFieldTime},
		{LabelFieldDescription, LabelFieldLead},
		{LabelFieldRecurrence, LabelCancel},
	}
}

func DeleteModeReplies() [][]string {
	return [][]string{
		{LabelDeleteByIndex},
		{LabelDeleteByDate},
		{LabelDeleteSeries},
		{LabelMenu},
	}
}

// TimezoneReplies lists the quick zones two per row.
func TimezoneReplies() [][]string {
	var rows [][]string
	for i := 0; i < len(timezone.QuickZones); i += 2 {
		row := []string{zoneLabelPrefix + timezone.QuickZones[i].Label}
		if i+1 < len(timezone.QuickZones) {
			row = append(row, zoneLabelPrefix+timezone.QuickZones[i+1].Label)
		}
		rows = append(rows, row)
	}
	return append(rows, []string{LabelMenu})
}

// DateViewReplies offers each date with plans. Today and tomorrow reuse the
// day-offset labels; later dates are listed two per row.
func DateViewReplies(dates []time.Time, today time.Time) [][]string {
	var rows [][]string
	var first, rest []string
	for _, d := range dates {
		switch {
		case models.SameDate(d, today):
			first = append(first, DayOffsetLabel(0, today))
		case models.SameDate(d, today.AddDate(0, 0, 1)):
			first = append(first, DayOffsetLabel(1, today))
		default:
			rest = append(rest, "📅 "+d.Format(dateLayout))
		}
	}
	if len(first) > 0 {
		rows = append(rows, first)
	}
	for i := 0; i < len(rest); i += 2 {
		end := min(i+2, len(rest))
		rows = append(rows, rest[i:end])
	}
	return append(rows, []string{LabelMenu})
}

// RepliesFor returns the default quick replies for a state. field selects the
// set while a value is being edited. today is the user's local date.
func RepliesFor(state models.State, field models.EditField, today time.Time) [][]string {
	switch state {
	case models.StateIdle:
		return MainMenu()
	case models.StateWaitingForTimezone:
		return TimezoneReplies()
	case models.StateWaitingForDate:
		return DateReplies(today)
	case models.StateWaitingForTime:
		return TimeReplies()
	case models.StateWaitingForNotifyLead:
		return LeadReplies()
	case models.StateWaitingForRecurrence:
		return RecurrenceReplies()
	case models.StateWaitingForEditFieldChoice:
		return EditFieldReplies()
	case models.StateWaitingForDeleteMode:
		return DeleteModeReplies()
	case models.StateWaitingForEditValue:
		switch field {
		case models.EditFieldDate:
			return DateReplies(today)
		case models.EditFieldTime:
			return TimeReplies()
		case models.EditFieldNotifyLead:
			return LeadReplies()
		case models.EditFieldRecurrence:
			return RecurrenceReplies()
		}
		return CancelReplies()
	default:
		return CancelReplies()
	}
}
