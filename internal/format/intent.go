package format

import (
	"strings"
	"time"

	"github.com/hray3182/planbot/internal/models"
	"github.com/hray3182/planbot/internal/timezone"
)

// IntentKind classifies an inbound message.
type IntentKind int

const (
	IntentText IntentKind = iota
	IntentUnknownCommand
	IntentMenu
	IntentCancel
	IntentStart
	IntentAdd
	IntentViewPlans
	IntentEdit
	IntentDelete
	IntentSearch
	IntentSettings
	IntentHelp
	IntentTimezoneMenu
	IntentManualEntry
	IntentDayOffset
	IntentDate
	IntentClock
	IntentLead
	IntentRecurrence
	IntentEditField
	IntentDeleteMode
	IntentTimezone
)

// Intent is the structured reading of one inbound message. Text always holds
// the trimmed original so handlers expecting free text can ignore Kind.
type Intent struct {
	Kind    IntentKind
	Text    string
	Command bool

	Days       int
	Date       time.Time
	Clock      Clock
	Minutes    int
	Recurrence models.Recurrence
	Field      models.EditField
	DeleteMode models.DeleteMode
	Zone       string
}

var commands = map[string]IntentKind{
	"start":    IntentStart,
	"menu":     IntentMenu,
	"cancel":   IntentCancel,
	"add":      IntentAdd,
	"plans":    IntentViewPlans,
	"edit":     IntentEdit,
	"delete":   IntentDelete,
	"search":   IntentSearch,
	"settings": IntentSettings,
	"timezone": IntentTimezoneMenu,
	"help":     IntentHelp,
}

var labels = map[string]Intent{
	LabelAdd:      {Kind: IntentAdd},
	LabelPlans:    {Kind: IntentViewPlans},
	LabelEdit:     {Kind: IntentEdit},
	LabelDelete:   {Kind: IntentDelete},
	LabelSearch:   {Kind: IntentSearch},
	LabelSettings: {Kind: IntentSettings},
	LabelHelp:     {Kind: IntentHelp},
	LabelMenu:     {Kind: IntentMenu},
	LabelCancel:   {Kind: IntentCancel},
	LabelTimezone: {Kind: IntentTimezoneMenu},
	LabelManual:   {Kind: IntentManualEntry},

	LabelNoRepeat: {Kind: IntentRecurrence, Recurrence: models.RecurrenceNone},
	LabelDaily:    {Kind: IntentRecurrence, Recurrence: models.RecurrenceDaily},
	LabelWeekly:   {Kind: IntentRecurrence, Recurrence: models.RecurrenceWeekly},
	LabelMonthly:  {Kind: IntentRecurrence, Recurrence: models.RecurrenceMonthly},

	LabelFieldDate:        {Kind: IntentEditField, Field: models.EditFieldDate},
	LabelFieldTime:        {Kind: IntentEditField, Field: models.EditFieldTime},
	LabelFieldDescription: {Kind: IntentEditField, Field: models.EditFieldDescription},
	LabelFieldLead:        {Kind: IntentEditField, Field: models.EditFieldNotifyLead},
	LabelFieldRecurrence:  {Kind: IntentEditField, Field: models.EditFieldRecurrence},

	LabelDeleteByIndex: {Kind: IntentDeleteMode, DeleteMode: models.DeleteModeByIndex},
	LabelDeleteByDate:  {Kind: IntentDeleteMode, DeleteMode: models.DeleteModeByDate},
	LabelDeleteSeries:  {Kind: IntentDeleteMode, DeleteMode: models.DeleteModeSeries},
}

// ParseIntent maps inbound text to an Intent. Slash commands and quick-reply
// labels are recognised first, then dates, clock times and leads.
func ParseIntent(text string) Intent {
	text = strings.TrimSpace(text)
	in := Intent{Kind: IntentText, Text: text}
	if text == "" {
		return in
	}

	if strings.HasPrefix(text, "/") {
		in.Command = true
		name := strings.TrimPrefix(strings.Fields(text)[0], "/")
		if at := strings.IndexByte(name, '@'); at >= 0 {
			name = name[:at]
		}
		if kind, ok := commands[strings.ToLower(name)]; ok {
			in.Kind = kind
		} else {
			in.Kind = IntentUnknownCommand
		}
		return in
	}

	if l, ok := labels[text]; ok {
		l.Text = text
		return l
	}

	if name, ok := strings.CutPrefix(text, zoneLabelPrefix); ok {
		for _, q := range timezone.QuickZones {
			if q.Label == name {
				in.Kind = IntentTimezone
				in.Zone = q.Zone
				return in
			}
		}
	}

	for days, name := range dayOffsetNames {
		if strings.HasPrefix(text, "📅 "+name+" (") {
			in.Kind = IntentDayOffset
			in.Days = days
			return in
		}
	}

	if d, ok := ParseDate(firstDateToken(text)); ok {
		in.Kind = IntentDate
		in.Date = d
		return in
	}

	if c, ok := ParseClock(text); ok {
		in.Kind = IntentClock
		in.Clock = c
		return in
	}

	if strings.HasPrefix(text, "⏰") {
		if n, ok := ParseLead(text); ok {
			in.Kind = IntentLead
			in.Minutes = n
			return in
		}
	}

	return in
}

// firstDateToken drops a date label's trailing "(Today)" so
// "📅 17.10.2026 (Today)" parses like "17.10.2026".
func firstDateToken(text string) string {
	text = strings.TrimSpace(strings.TrimPrefix(text, "📅"))
	if i := strings.Index(text, " ("); i >= 0 && strings.HasSuffix(text, ")") {
		text = text[:i]
	}
	return text
}
