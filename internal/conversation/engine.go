// Package conversation drives the per-user dialogue: it turns inbound text
// into plan store operations and replies.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/messaging"
	"github.com/hray3182/planbot/internal/metrics"
	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/parser"
	"github.com/hray3182/planbot/internal/repository"
	"github.com/hray3182/planbot/internal/timezone"
)

const (
	// DefaultMaxPlans is the ceiling on a user's upcoming plans.
	DefaultMaxPlans = 200
	// DefaultCooldown is the minimum spacing between two accepted inputs of a user.
	DefaultCooldown = 500 * time.Millisecond

	editListSize   = 10
	deleteListSize = 20
	seriesListSize = 10
	searchListSize = 15
)

// Notifier is poked after plans change so near-term reminders go out
// without waiting for the next poll.
type Notifier interface {
	Notify()
}

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	Cooldown time.Duration
	MaxPlans int
	Parser   parser.Parser
	Notifier Notifier
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Engine is the conversation state machine. It is safe for concurrent use;
// messages of one user are handled one at a time.
type Engine struct {
	plans    *repository.PlanRepository
	zones    *timezone.Resolver
	sender   messaging.Sender
	parser   parser.Parser
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
	maxPlans int

	sessions *SessionStore
	limiter  *RateLimiter
	handlers map[models.State]func(*turn)
	log      *slog.Logger
}

// turn is one inbound message being handled.
type turn struct {
	ctx   context.Context
	s     *models.Session
	in    format.Intent
	now   time.Time
	local time.Time
}

func (t *turn) today() time.Time {
	return models.DateOf(t.local)
}

func New(plans *repository.PlanRepository, zones *timezone.Resolver, sender messaging.Sender, opts Options) (*Engine, error) {
	if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.MaxPlans <= 0 {
		opts.MaxPlans = DefaultMaxPlans
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	limiter, err := NewRateLimiter(opts.Cooldown)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		plans:    plans,
		zones:    zones,
		sender:   sender,
		parser:   opts.Parser,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		now:      opts.Now,
		maxPlans: opts.MaxPlans,
		sessions: NewSessionStore(),
		limiter:  limiter,
		log:      slog.Default().With("component", "conversation"),
	}
	e.handlers = map[models.State]func(*turn){
		models.StateIdle:                      e.handleIdle,
		models.StateWaitingForTimezone:        e.handleTimezone,
		models.StateWaitingForDate:            e.handleDate,
		models.StateWaitingForTime:            e.handleTime,
		models.StateWaitingForDescription:     e.handleDescription,
		models.StateWaitingForNotifyLead:      e.handleNotifyLead,
		models.StateWaitingForRecurrence:      e.handleRecurrence,
		models.StateWaitingForEditSelection:   e.handleEditSelection,
		models.StateWaitingForEditFieldChoice: e.handleEditFieldChoice,
		models.StateWaitingForEditValue:       e.handleEditValue,
		models.StateWaitingForDeleteMode:      e.handleDeleteMode,
		models.StateWaitingForSearchQuery:     e.handleSearchQuery,
	}
	return e, nil
}

// Sessions exposes the session store, mainly for inspection.
func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// OnTextMessage is the inbound entry point for a text message.
func (e *Engine) OnTextMessage(ctx context.Context, userID int64, text string) {
	now := e.now()
	if !e.limiter.Allow(userID, now) {
		e.metrics.MessageDropped()
		e.log.Debug("input dropped by rate limiter", "user_id", userID)
		return
	}
	e.metrics.MessageReceived()

	e.sessions.With(userID, func(s *models.Session) {
		e.dispatch(ctx, s, text, now)
	})
}

// OnUnsupportedMedia answers message kinds the bot cannot read, e.g. voice.
func (e *Engine) OnUnsupportedMedia(ctx context.Context, userID int64) {
	now := e.now()
	if !e.limiter.Allow(userID, now) {
		e.metrics.MessageDropped()
		e.log.Debug("media dropped by rate limiter", "user_id", userID)
		return
	}
	e.sessions.With(userID, func(s *models.Session) {
		t := &turn{ctx: ctx, s: s, now: now, local: e.zones.LocalNow(userID, now)}
		e.reply(t, "🎤 Voice and media messages are not supported.\n\n"+
			"Please type your plan instead, e.g. \"tomorrow at 15:00 meeting\".",
			format.RepliesFor(s.State, s.EditField, t.today()))
	})
}

func (e *Engine) dispatch(ctx context.Context, s *models.Session, text string, now time.Time) {
	t := &turn{
		ctx:   ctx,
		s:     s,
		in:    format.ParseIntent(text),
		now:   now,
		local: e.zones.LocalNow(s.UserID, now),
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic while handling message, session reset",
				"user_id", s.UserID, "state", s.State.String(), "panic", r, "stack", string(debug.Stack()))
			s.Reset()
			e.reply(t, "😔 Sorry, something went wrong. Let's start over.", format.MainMenu())
		}
	}()

	switch {
	case t.in.Kind == format.IntentMenu || t.in.Kind == format.IntentCancel:
		wasIdle := s.State == models.StateIdle
		s.Reset()
		msg := "🏠 Main menu"
		if !wasIdle {
			msg = "Cancelled. 🏠 Main menu"
		}
		e.reply(t, msg, format.MainMenu())
		return
	case t.in.Command && s.State != models.StateIdle:
		s.Reset()
	}

	handler, ok := e.handlers[s.State]
	if !ok {
		e.log.Warn("no handler for state, resetting", "user_id", s.UserID, "state", s.State.String())
		s.Reset()
		handler = e.handleIdle
	}
	handler(t)
}

// reply sends text to the turn's user. Delivery failures are logged only.
func (e *Engine) reply(t *turn, text string, replies [][]string) {
	if err := e.sender.SendMessage(t.ctx, t.s.UserID, text, replies); err != nil {
		if errors.Is(err, messaging.ErrUnreachable) {
			e.log.Warn("user unreachable", "user_id", t.s.UserID, "error", err)
			return
		}
		e.log.Error("failed to send reply", "user_id", t.s.UserID, "error", err)
	}
}

// atCeiling reports whether the user already has the maximum number of
// upcoming plans, telling them so and resetting the session if so.
func (e *Engine) atCeiling(t *turn) bool {
	if e.plans.CountUpcoming(t.s.UserID, t.local) < e.maxPlans {
		return false
	}
	t.s.Reset()
	e.reply(t, fmt.Sprintf("⚠️ You already have %d upcoming plans, which is the limit.\n"+
		"Delete some plans before adding new ones.", e.maxPlans), format.MainMenu())
	return true
}

func (e *Engine) notify() {
	if e.notifier != nil {
		e.notifier.Notify()
	}
}

func (e *Engine) handleIdle(t *turn) {
	switch t.in.Kind {
	case format.IntentStart:
		e.start(t)
	case format.IntentAdd:
		e.startCreation(t)
	case format.IntentViewPlans:
		e.showDates(t)
	case format.IntentDayOffset:
		e.showDay(t, t.today().AddDate(0, 0, t.in.Days))
	case format.IntentDate:
		e.showDay(t, t.in.Date)
	case format.IntentEdit:
		e.startEdit(t)
	case format.IntentDelete:
		e.startDelete(t)
	case format.IntentSearch:
		e.startSearch(t)
	case format.IntentSettings:
		e.showSettings(t)
	case format.IntentTimezoneMenu:
		e.askTimezone(t)
	case format.IntentHelp:
		e.showHelp(t)
	case format.IntentUnknownCommand:
		e.reply(t, "🤔 Unknown command. Use the menu below or /help.", format.MainMenu())
	default:
		e.quickAdd(t)
	}
}
