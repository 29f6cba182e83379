package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/models"
)

func (e *Engine) startDelete(t *turn) {
	upcoming := e.plans.Upcoming(t.s.UserID, t.local)
	if len(upcoming) == 0 {
		e.reply(t, "📭 You have no upcoming plans to delete.", format.MainMenu())
		return
	}

	snapshot := upcoming[:min(len(upcoming), deleteListSize)]
	t.s.Reset()
	t.s.TempPlans = snapshot
	t.s.State = models.StateWaitingForDeleteMode

	msg := fmt.Sprintf("🗑 Delete (%d plans)\n\n%s", len(upcoming), format.Numbered(snapshot, format.ShortWithDate))
	if extra := len(upcoming) - len(snapshot); extra > 0 {
		msg += fmt.Sprintf("\n\n...and %d more", extra)
	}
	msg += "\n\nChoose how to delete, or send the numbers right away:"
	e.reply(t, msg, format.DeleteModeReplies())
}

func (e *Engine) handleDeleteMode(t *turn) {
	switch t.s.DeleteMode {
	case models.DeleteModeByIndex:
		e.deleteByIndex(t)
	case models.DeleteModeByDate:
		e.deleteByDate(t)
	case models.DeleteModeSeries:
		e.deleteSeries(t)
	default:
		e.chooseDeleteMode(t)
	}
}

func (e *Engine) chooseDeleteMode(t *turn) {
	if t.in.Kind != format.IntentDeleteMode {
		// Numbers sent straight after the listing.
		e.deleteByIndex(t)
		return
	}

	switch t.in.DeleteMode {
	case models.DeleteModeByIndex:
		t.s.DeleteMode = models.DeleteModeByIndex
		e.reply(t, "🔢 Send the plan numbers separated by spaces, e.g. 1 2 5", format.CancelReplies())
	case models.DeleteModeByDate:
		t.s.DeleteMode = models.DeleteModeByDate
		e.reply(t, "📅 Send the date to clear as DD.MM.YYYY, e.g. 20.02.2026", format.CancelReplies())
	case models.DeleteModeSeries:
		e.listSeries(t)
	}
}

// listSeries replaces the snapshot with one representative per repeating
// series found in it.
func (e *Engine) listSeries(t *turn) {
	seen := make(map[string]bool)
	var series []*models.Plan
	for _, p := range t.s.TempPlans {
		if !p.IsRecurring() || seen[p.SeriesID()] {
			continue
		}
		seen[p.SeriesID()] = true
		series = append(series, p)
		if len(series) == seriesListSize {
			break
		}
	}

	if len(series) == 0 {
		t.s.Reset()
		e.reply(t, "❌ None of these plans repeat.", format.MainMenu())
		return
	}

	var b strings.Builder
	b.WriteString("🔁 Which series should be deleted? Send its number:\n\n")
	for i, p := range series {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, format.Escape(p.Description), format.RecurrenceLabel(p.Recurrence))
	}
	t.s.TempPlans = series
	t.s.DeleteMode = models.DeleteModeSeries
	e.reply(t, strings.TrimRight(b.String(), "\n"), format.CancelReplies())
}

func (e *Engine) deleteByIndex(t *turn) {
	indices := format.ParseSelection(t.in.Text, len(t.s.TempPlans))
	if len(indices) == 0 {
		e.reply(t, fmt.Sprintf("❌ Send plan numbers from 1 to %d separated by spaces, e.g. 1 2 5", len(t.s.TempPlans)),
			format.CancelReplies())
		return
	}

	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = t.s.TempPlans[idx].ID
	}
	deleted := e.plans.DeleteMany(t.ctx, t.s.UserID, ids)
	t.s.Reset()
	e.log.Info("plans deleted by index", "user_id", t.s.UserID, "requested", len(ids), "deleted", deleted)
	e.reply(t, fmt.Sprintf("✅ Deleted plans: %d", deleted), format.MainMenu())
}

func (e *Engine) deleteByDate(t *turn) {
	date, ok, prompted := e.readDate(t)
	if prompted {
		return
	}
	if !ok {
		e.reply(t, msgInvalidDate, format.CancelReplies())
		return
	}

	deleted := e.plans.DeleteByDate(t.ctx, t.s.UserID, date)
	t.s.Reset()
	e.log.Info("plans deleted by date", "user_id", t.s.UserID, "date", date.Format("2006-01-02"), "deleted", deleted)
	e.reply(t, fmt.Sprintf("✅ Deleted %d plans on %s", deleted, date.Format("02.01.2006")), format.MainMenu())
}

func (e *Engine) deleteSeries(t *turn) {
	n, err := strconv.Atoi(strings.TrimSpace(t.in.Text))
	if err != nil || n < 1 || n > len(t.s.TempPlans) {
		e.reply(t, fmt.Sprintf("❌ Send a number from 1 to %d.", len(t.s.TempPlans)), format.CancelReplies())
		return
	}

	plan := t.s.TempPlans[n-1]
	deleted := e.plans.DeleteSeries(t.ctx, t.s.UserID, plan.SeriesID())
	t.s.Reset()
	e.log.Info("series deleted", "user_id", t.s.UserID, "series_id", plan.SeriesID(), "deleted", deleted)
	e.reply(t, fmt.Sprintf("✅ Deleted %d plans of the series: %s", deleted, format.Escape(plan.Description)), format.MainMenu())
}
