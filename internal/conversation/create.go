package conversation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/models"
)

const (
	msgInvalidDate = "❌ Invalid date. Use DD.MM.YYYY, e.g. 20.02.2026."
	msgPastDate    = "❌ That date is in the past. Pick today or a later date."
	msgPastTime    = "❌ That time has already passed. Try a later time, e.g. \"tomorrow at 9:00 gym\"."
	msgInvalidTime = "❌ Invalid time. Use HH:MM, e.g. 14:30."
	msgInvalidLead = "❌ Pick a reminder option or send the number of minutes, e.g. 20."
	msgEmptyDesc   = "❌ The description cannot be empty."
)

func (e *Engine) startCreation(t *turn) {
	if e.atCeiling(t) {
		return
	}
	t.s.Reset()
	t.s.Current = &models.Plan{
		UserID:            t.s.UserID,
		NotifyLeadMinutes: models.DefaultNotifyLeadMinutes,
		Recurrence:        models.RecurrenceNone,
	}
	t.s.State = models.StateWaitingForDate
	e.reply(t, "📅 Choose a date:", format.DateReplies(t.today()))
}

// readDate resolves the turn's input to a date. prompted is true when the
// user asked for manual entry and has been prompted for it.
func (e *Engine) readDate(t *turn) (date time.Time, ok bool, prompted bool) {
	switch t.in.Kind {
	case format.IntentDayOffset:
		return t.today().AddDate(0, 0, t.in.Days), true, false
	case format.IntentDate:
		date = t.in.Date
	case format.IntentManualEntry:
		e.reply(t, "✍️ Send the date as DD.MM.YYYY, e.g. 20.02.2026.", format.CancelReplies())
		return time.Time{}, false, true
	default:
		d, valid := format.ParseDate(t.in.Text)
		if !valid {
			return time.Time{}, false, false
		}
		date = d
	}
	return date, true, false
}

func (e *Engine) readClock(t *turn) (clock format.Clock, ok bool, prompted bool) {
	switch t.in.Kind {
	case format.IntentClock:
		return t.in.Clock, true, false
	case format.IntentManualEntry:
		e.reply(t, "✍️ Send the time as HH:MM, e.g. 14:30.", format.CancelReplies())
		return format.Clock{}, false, true
	}
	c, valid := format.ParseClock(t.in.Text)
	return c, valid, false
}

func (e *Engine) readLead(t *turn) (int, bool) {
	if t.in.Kind == format.IntentLead {
		return t.in.Minutes, true
	}
	return format.ParseLead(t.in.Text)
}

// readDescription validates free text as a plan description, replying with
// the problem when it is rejected.
func (e *Engine) readDescription(t *turn) (string, bool) {
	desc := strings.TrimSpace(t.in.Text)
	if desc == "" {
		e.reply(t, msgEmptyDesc, format.CancelReplies())
		return "", false
	}
	if n := utf8.RuneCountInString(desc); n > models.MaxDescriptionLength {
		e.reply(t, fmt.Sprintf("❌ The description is too long (%d characters, maximum %d). Please shorten it.",
			n, models.MaxDescriptionLength), format.CancelReplies())
		return "", false
	}
	return desc, true
}

func (e *Engine) handleDate(t *turn) {
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

	t.s.Current.OccursAt = date
	t.s.State = models.StateWaitingForTime
	e.reply(t, fmt.Sprintf("🗓 %s\n\n🕐 Choose a time:", date.Format("02.01.2006")), format.TimeReplies())
}

func (e *Engine) handleTime(t *turn) {
	clock, ok, prompted := e.readClock(t)
	if prompted {
		return
	}
	if !ok {
		e.reply(t, msgInvalidTime, format.TimeReplies())
		return
	}

	t.s.Current.OccursAt = clock.On(t.s.Current.OccursAt)
	t.s.State = models.StateWaitingForDescription
	e.reply(t, fmt.Sprintf("🗓 %s\n\n📝 What is the plan? (up to %d characters)",
		t.s.Current.OccursAt.Format("02.01.2006 15:04"), models.MaxDescriptionLength), format.CancelReplies())
}

func (e *Engine) handleDescription(t *turn) {
	desc, ok := e.readDescription(t)
	if !ok {
		return
	}
	t.s.Current.Description = desc
	t.s.State = models.StateWaitingForNotifyLead
	e.reply(t, "⏰ When should I remind you?", format.LeadReplies())
}

func (e *Engine) handleNotifyLead(t *turn) {
	lead, ok := e.readLead(t)
	if !ok {
		e.reply(t, msgInvalidLead, format.LeadReplies())
		return
	}
	t.s.Current.NotifyLeadMinutes = lead
	t.s.State = models.StateWaitingForRecurrence
	e.reply(t, "🔄 Should it repeat?", format.RecurrenceReplies())
}

func (e *Engine) handleRecurrence(t *turn) {
	if t.in.Kind != format.IntentRecurrence {
		e.reply(t, "❌ Pick one of the repeat options.", format.RecurrenceReplies())
		return
	}
	t.s.Current.Recurrence = t.in.Recurrence

	// The ceiling may have been reached while this flow was in progress.
	if e.atCeiling(t) {
		return
	}

	plan := t.s.Current
	stored, err := e.plans.Add(t.ctx, plan)
	t.s.Reset()
	if err != nil {
		e.log.Error("failed to add plan", "user_id", plan.UserID, "error", err)
		e.reply(t, "😔 Could not save the plan. Please try again.", format.MainMenu())
		return
	}
	e.log.Info("plan created", "user_id", plan.UserID, "plan_id", plan.ID, "records", stored)

	msg := "✅ Plan created!\n\n" + format.Detailed(plan)
	if stored > 1 {
		msg += fmt.Sprintf("\n\n🔁 %d more occurrences scheduled.", stored-1)
	}
	e.reply(t, msg, format.MainMenu())
	e.notify()
}

// quickAdd hands free text typed while idle to the date parser and, on a
// match, skips straight to choosing the reminder lead.
func (e *Engine) quickAdd(t *turn) {
	if e.parser == nil || t.in.Text == "" {
		e.reply(t, "🤔 Unknown command. Use the menu below or /help.", format.MainMenu())
		return
	}

	res, err := e.parser.Parse(t.ctx, t.in.Text, t.local)
	if err != nil {
		e.log.Debug("quick add did not match", "user_id", t.s.UserID, "error", err)
		e.reply(t, "🤔 Unknown command. Use the menu below, or write something like "+
			"\"tomorrow at 15:00 meeting\".", format.MainMenu())
		return
	}

	at := models.Floating(res.At)
	if at.Before(t.local.Truncate(time.Minute)) {
		e.reply(t, msgPastTime, format.MainMenu())
		return
	}

	if e.atCeiling(t) {
		return
	}
	t.in.Text = res.Description
	desc, ok := e.readDescription(t)
	if !ok {
		return
	}

	t.s.Current = &models.Plan{
		UserID:            t.s.UserID,
		OccursAt:          at,
		Description:       desc,
		NotifyLeadMinutes: models.DefaultNotifyLeadMinutes,
		Recurrence:        models.RecurrenceNone,
	}
	t.s.State = models.StateWaitingForNotifyLead
	e.reply(t, fmt.Sprintf("📝 %s\n🗓 %s\n\n⏰ When should I remind you?",
		format.Escape(desc), t.s.Current.OccursAt.Format("02.01.2006 15:04")), format.LeadReplies())
}
