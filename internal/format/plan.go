// Package format renders plans as chat text and maps chat text back to
// structured intents. Nothing here touches the store.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/planbot/internal/models"
)

const (
	dateLayout      = "02.01.2006"
	shortDateLayout = "02.01"
	clockLayout     = "15:04"
)

// RecurrenceLabel names a recurrence kind for display.
func RecurrenceLabel(kind models.Recurrence) string {
	switch kind {
	case models.RecurrenceDaily:
		return "Every day"
	case models.RecurrenceWeekly:
		return "Every week"
	case models.RecurrenceMonthly:
		return "Every month"
	default:
		return "No repeat"
	}
}

// LeadLabel renders a notify lead.
func LeadLabel(minutes int) string {
	switch {
	case minutes == 0:
		return "at start"
	case minutes%60 == 0 && minutes >= 60:
		if minutes == 60 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", minutes/60)
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}

// Short renders a plan on one line: time and description.
func Short(p *models.Plan) string {
	line := fmt.Sprintf("🕐 %s - %s", p.OccursAt.Format(clockLayout), Escape(p.Description))
	if p.IsRecurring() {
		line += " 🔄"
	}
	return line
}

// ShortWithDate is Short prefixed by the plan's date, for lists spanning days.
func ShortWithDate(p *models.Plan) string {
	return fmt.Sprintf("%s %s", p.OccursAt.Format(shortDateLayout), Short(p))
}

// Detailed renders every user-visible field of a plan.
func Detailed(p *models.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 %s\n", Escape(p.Description))
	fmt.Fprintf(&b, "🗓 %s\n", p.OccursAt.Format(dateLayout+" "+clockLayout))
	if p.IsRecurring() {
		fmt.Fprintf(&b, "🔄 %s", RecurrenceLabel(p.Recurrence))
		if p.RecurrenceEndAt != nil {
			fmt.Fprintf(&b, " until %s", p.RecurrenceEndAt.Format(dateLayout))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "⏰ Remind %s", leadPhrase(p.NotifyLeadMinutes))
	return b.String()
}

func leadPhrase(minutes int) string {
	if minutes == 0 {
		return "at start"
	}
	return LeadLabel(minutes) + " before"
}

// Numbered renders plans as a 1-based list using line for each entry.
func Numbered(plans []*models.Plan, line func(*models.Plan) string) string {
	var b strings.Builder
	for i, p := range plans {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line(p))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Reminder is the text of a due-plan notification. localNow is the owner's
// current wall-clock time.
func Reminder(p *models.Plan, localNow time.Time) string {
	var b strings.Builder
	b.WriteString("**🔔 Reminder**\n\n")
	fmt.Fprintf(&b, "📝 %s\n", Escape(p.Description))
	fmt.Fprintf(&b, "🕐 %s\n", p.OccursAt.Format(clockLayout))

	mins := int(p.OccursAt.Sub(localNow) / time.Minute)
	if mins > 0 {
		fmt.Fprintf(&b, "⏳ Starts in %s", LeadLabel(mins))
	} else {
		b.WriteString("⏳ Starting now")
	}
	if p.IsRecurring() {
		fmt.Fprintf(&b, "\n🔄 %s", RecurrenceLabel(p.Recurrence))
	}
	return b.String()
}

// Digest is the daily summary for today's plans.
func Digest(plans []*models.Plan, today time.Time) string {
	header := fmt.Sprintf("**☀️ Good morning!**\n\n📅 %s", today.Format(dateLayout+" (Monday)"))
	if len(plans) == 0 {
		return header + "\n\nNo plans for today. Enjoy your day!"
	}
	return fmt.Sprintf("%s\nPlans for today (%d):\n\n%s", header, len(plans), Numbered(plans, Short))
}

// DayPlans lists the plans of one date.
func DayPlans(plans []*models.Plan, date, today time.Time) string {
	header := fmt.Sprintf("**%s**", DateLabel(date, today))
	if len(plans) == 0 {
		return header + "\n\nNo plans for this day."
	}
	return header + "\n\n" + Numbered(plans, Short)
}

// DateLabel renders a date relative to today, e.g. "📅 17.10.2026 (Today)".
func DateLabel(date, today time.Time) string {
	return fmt.Sprintf("📅 %s (%s)", date.Format(dateLayout), relativeDay(date, today))
}

func relativeDay(date, today time.Time) string {
	days := int(models.DateOf(date).Sub(models.DateOf(today)).Hours() / 24)
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return date.Format("Mon")
	}
}
