package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/repository"
)

func (e *Engine) startEdit(t *turn) {
	upcoming := e.plans.Upcoming(t.s.UserID, t.local)
	if len(upcoming) == 0 {
		e.reply(t, "📭 You have no upcoming plans to edit.", format.MainMenu())
		return
	}
	e.promptEditSelection(t, upcoming, "✏️ Which plan do you want to edit? Send its number:")
}

func (e *Engine) promptEditSelection(t *turn, upcoming []*models.Plan, header string) {
	snapshot := upcoming[:min(len(upcoming), editListSize)]
	t.s.Reset()
	t.s.TempPlans = snapshot
	t.s.State = models.StateWaitingForEditSelection

	msg := header + "\n\n" + format.Numbered(snapshot, format.ShortWithDate)
	if extra := len(upcoming) - len(snapshot); extra > 0 {
		msg += fmt.Sprintf("\n\n...and %d more", extra)
	}
	e.reply(t, msg, format.CancelReplies())
}

// restartEditSelection handles a selection that went stale: the plan was
// removed or changed after the list was shown.
func (e *Engine) restartEditSelection(t *turn) {
	upcoming := e.plans.Upcoming(t.s.UserID, t.local)
	if len(upcoming) == 0 {
		t.s.Reset()
		e.reply(t, "⚠️ That plan no longer exists, and you have no other upcoming plans.", format.MainMenu())
		return
	}
	e.promptEditSelection(t, upcoming, "⚠️ That plan was changed or deleted meanwhile. Here is the current list:")
}

func (e *Engine) handleEditSelection(t *turn) {
	n, err := strconv.Atoi(strings.TrimSpace(t.in.Text))
	if err != nil || n < 1 || n > len(t.s.TempPlans) {
		e.reply(t, fmt.Sprintf("❌ Send a number from 1 to %d.", len(t.s.TempPlans)), format.CancelReplies())
		return
	}

	plan, ok := e.plans.Get(t.s.UserID, t.s.TempPlans[n-1].ID)
	if !ok {
		e.restartEditSelection(t)
		return
	}

	t.s.Current = plan
	t.s.State = models.StateWaitingForEditFieldChoice
	e.reply(t, "✏️ Editing:\n\n"+format.Detailed(plan)+"\n\nWhat do you want to change?", format.EditFieldReplies())
}

func (e *Engine) handleEditFieldChoice(t *turn) {
	if t.in.Kind != format.IntentEditField {
		e.reply(t, "❌ Pick what to change from the options below.", format.EditFieldReplies())
		return
	}

	field := t.in.Field
	if field == models.EditFieldRecurrence && !e.plans.IsStandalone(t.s.UserID, t.s.Current.ID) {
		e.reply(t, "🔄 This plan is part of a repeating series, so its repeat cannot be changed.\n"+
			"Delete the series and create it again instead, or pick another field.", format.EditFieldReplies())
		return
	}

	t.s.EditField = field
	t.s.State = models.StateWaitingForEditValue

	var prompt string
	switch field {
	case models.EditFieldDate:
		prompt = "📅 Choose the new date:"
	case models.EditFieldTime:
		prompt = "🕐 Choose the new time:"
	case models.EditFieldDescription:
		prompt = fmt.Sprintf("📝 Send the new description (up to %d characters):", models.MaxDescriptionLength)
	case models.EditFieldNotifyLead:
		prompt = "⏰ When should I remind you?"
	case models.EditFieldRecurrence:
		prompt = "🔄 How should it repeat?"
	}
	e.reply(t, prompt, format.RepliesFor(t.s.State, field, t.today()))
}

func (e *Engine) handleEditValue(t *turn) {
	plan := t.s.Current

	switch t.s.EditField {
	case models.EditFieldDate:
		date, ok, prompted := e.readDate(t)
		if prompted {
			return
		}
		if !ok {
			e.reply(t, msgInvalidDate, format.DateReplies(t.today()))
			return
		}
		if date.Before(t.today()) {
			e.reply(t, msgPastDate, format.DateReplies(t.today()))
			return
		}
		plan.OccursAt = format.Clock{Hour: plan.OccursAt.Hour(), Minute: plan.OccursAt.Minute()}.On(date)
		plan.Notified = false

	case models.EditFieldTime:
		clock, ok, prompted := e.readClock(t)
		if prompted {
			return
		}
		if !ok {
			e.reply(t, msgInvalidTime, format.TimeReplies())
			return
		}
		plan.OccursAt = clock.On(plan.OccursAt)
		plan.Notified = false

	case models.EditFieldDescription:
		desc, ok := e.readDescription(t)
		if !ok {
			return
		}
		plan.Description = desc

	case models.EditFieldNotifyLead:
		lead, ok := e.readLead(t)
		if !ok {
			e.reply(t, msgInvalidLead, format.LeadReplies())
			return
		}
		plan.NotifyLeadMinutes = lead
		plan.Notified = false

	case models.EditFieldRecurrence:
		e.editRecurrence(t)
		return

	default:
		t.s.Reset()
		e.reply(t, "🏠 Main menu", format.MainMenu())
		return
	}

	if !e.plans.Update(t.ctx, plan) {
		e.restartEditSelection(t)
		return
	}
	t.s.Reset()
	e.log.Info("plan updated", "user_id", plan.UserID, "plan_id", plan.ID)
	e.reply(t, "✅ Plan updated!\n\n"+format.Detailed(plan), format.MainMenu())
	e.notify()
}

func (e *Engine) editRecurrence(t *turn) {
	if t.in.Kind != format.IntentRecurrence {
		e.reply(t, "❌ Pick one of the repeat options.", format.RecurrenceReplies())
		return
	}
	plan := t.s.Current
	if t.in.Recurrence == models.RecurrenceNone {
		t.s.Reset()
		e.reply(t, "👌 The plan stays one-off.", format.MainMenu())
		return
	}

	added, found, err := e.plans.StartSeries(t.ctx, plan.UserID, plan.ID, t.in.Recurrence)
	switch {
	case errors.Is(err, repository.ErrSeriesMember):
		t.s.State = models.StateWaitingForEditFieldChoice
		t.s.EditField = models.EditFieldNone
		e.reply(t, "🔄 This plan is already part of a repeating series. Pick another field.", format.EditFieldReplies())
		return
	case err != nil:
		e.log.Error("failed to start series", "user_id", plan.UserID, "plan_id", plan.ID, "error", err)
		t.s.Reset()
		e.reply(t, "😔 Could not change the repeat. Please try again.", format.MainMenu())
		return
	case !found:
		e.restartEditSelection(t)
		return
	}

	updated, _ := e.plans.Get(plan.UserID, plan.ID)
	if updated == nil {
		updated = plan
	}
	t.s.Reset()
	e.log.Info("series started from plan", "user_id", plan.UserID, "plan_id", plan.ID, "occurrences", added)
	e.reply(t, fmt.Sprintf("✅ Plan updated!\n\n%s\n\n🔁 %d more occurrences scheduled.", format.Detailed(updated), added),
		format.MainMenu())
	e.notify()
}
