package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/timezone"
)

const helpText = `❓ **Help**

I keep your plans and remind you before they start.

/add - add a plan step by step
/plans - view plans by date
/edit - change a plan
/delete - delete plans
/search - find plans by text
/settings - timezone and help
/menu - back to the main menu

You can also just write a plan, e.g. "tomorrow at 15:00 meeting".
Every morning at 08:00 I send the list of today's plans.`

func (e *Engine) start(t *turn) {
	if !e.zones.HasZone(t.s.UserID) {
		t.s.State = models.StateWaitingForTimezone
		e.reply(t, "👋 Hi! I am your planner.\n\n"+
			"First, choose your timezone so reminders arrive on time.\n"+
			"You can also send an IANA name (Asia/Tokyo) or an offset (UTC+3).", format.TimezoneReplies())
		return
	}
	e.reply(t, "👋 Welcome back! What shall we do?", format.MainMenu())
}

func (e *Engine) askTimezone(t *turn) {
	t.s.State = models.StateWaitingForTimezone
	e.reply(t, fmt.Sprintf("🌍 Current timezone: %s\n\n"+
		"Choose a new one, or send an IANA name (Asia/Tokyo) or an offset (UTC+3).", e.zones.Zone(t.s.UserID)),
		format.TimezoneReplies())
}

func (e *Engine) handleTimezone(t *turn) {
	zone := t.in.Text
	if t.in.Kind == format.IntentTimezone {
		zone = t.in.Zone
	}

	name, err := e.zones.SetZone(t.ctx, t.s.UserID, zone)
	if err != nil {
		if !errors.Is(err, timezone.ErrUnknownZone) {
			e.log.Error("failed to set timezone", "user_id", t.s.UserID, "error", err)
		}
		e.reply(t, "❌ Unknown timezone. Pick one below or send e.g. Europe/Moscow or UTC+5.", format.TimezoneReplies())
		return
	}

	t.s.Reset()
	local := e.zones.LocalNow(t.s.UserID, t.now)
	e.log.Info("timezone set", "user_id", t.s.UserID, "zone", name)
	e.reply(t, fmt.Sprintf("✅ Timezone set: %s\n🕐 Your local time: %s", name, local.Format("15:04")), format.MainMenu())
}

func (e *Engine) showSettings(t *turn) {
	e.reply(t, fmt.Sprintf("⚙️ **Settings**\n\n🌍 Timezone: %s\n🕐 Local time: %s",
		e.zones.Zone(t.s.UserID), t.local.Format("02.01.2006 15:04")), format.SettingsReplies())
}

func (e *Engine) showHelp(t *turn) {
	e.reply(t, helpText, format.MainMenu())
}

func (e *Engine) showDates(t *turn) {
	dates := e.plans.UpcomingDates(t.s.UserID, t.today())
	if len(dates) == 0 {
		e.reply(t, "📭 You have no upcoming plans. Tap \""+format.LabelAdd+"\" to create one.", format.MainMenu())
		return
	}
	e.reply(t, "📅 Choose a date:", format.DateViewReplies(dates, t.today()))
}

func (e *Engine) showDay(t *turn, date time.Time) {
	plans := e.plans.ForDate(t.s.UserID, date)
	e.reply(t, format.DayPlans(plans, date, t.today()), format.MainMenu())
}

func (e *Engine) startSearch(t *turn) {
	t.s.Reset()
	t.s.State = models.StateWaitingForSearchQuery
	e.reply(t, "🔍 What should I look for?", format.CancelReplies())
}

func (e *Engine) handleSearchQuery(t *turn) {
	query := strings.TrimSpace(t.in.Text)
	if query == "" {
		e.reply(t, "🔍 Send some text to search for.", format.CancelReplies())
		return
	}

	results := e.plans.Search(t.s.UserID, query)
	t.s.Reset()
	if len(results) == 0 {
		e.reply(t, fmt.Sprintf("🔍 Nothing found for \"%s\".", format.Escape(query)), format.MainMenu())
		return
	}

	shown := results[:min(len(results), searchListSize)]
	msg := fmt.Sprintf("🔍 Found %d:\n\n%s", len(results), format.Numbered(shown, format.ShortWithDate))
	if extra := len(results) - len(shown); extra > 0 {
		msg += fmt.Sprintf("\n\n...and %d more", extra)
	}
	e.reply(t, msg, format.MainMenu())
}
