package models

// State is the step of the conversation, i.e. what kind of input is expected next.
type State int

const (
	StateIdle State = iota
	StateWaitingForTimezone
	StateWaitingForDate
	StateWaitingForTime
	StateWaitingForDescription
	StateWaitingForNotifyLead
	StateWaitingForRecurrence
	StateWaitingForEditSelection
	StateWaitingForEditFieldChoice
	StateWaitingForEditValue
	StateWaitingForDeleteMode
	StateWaitingForSearchQuery
)

var stateNames = map[State]string{
	StateIdle:                      "idle",
	StateWaitingForTimezone:        "waiting_for_timezone",
	StateWaitingForDate:            "waiting_for_date",
	StateWaitingForTime:            "waiting_for_time",
	StateWaitingForDescription:     "waiting_for_description",
	StateWaitingForNotifyLead:      "waiting_for_notify_lead",
	StateWaitingForRecurrence:      "waiting_for_recurrence",
	StateWaitingForEditSelection:   "waiting_for_edit_selection",
	StateWaitingForEditFieldChoice: "waiting_for_edit_field_choice",
	StateWaitingForEditValue:       "waiting_for_edit_value",
	StateWaitingForDeleteMode:      "waiting_for_delete_mode",
	StateWaitingForSearchQuery:     "waiting_for_search_query",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// EditField names the plan attribute being edited.
type EditField int

const (
	EditFieldNone EditField = iota
	EditFieldDate
	EditFieldTime
	EditFieldDescription
	EditFieldNotifyLead
	EditFieldRecurrence
)

// DeleteMode is the active sub-mode of the delete flow.
type DeleteMode int

const (
	DeleteModeNone DeleteMode = iota
	DeleteModeByIndex
	DeleteModeByDate
	DeleteModeSeries
)

// Session is the conversational state of one user. It is never persisted.
type Session struct {
	UserID     int64
	State      State
	Current    *Plan
	TempPlans  []*Plan
	EditField  EditField
	DeleteMode DeleteMode
}

// NewSession returns an idle session for the user.
func NewSession(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// Reset returns the session to Idle, discarding any uncommitted work.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Current = nil
	s.TempPlans = nil
	s.EditField = EditFieldNone
	s.DeleteMode = DeleteModeNone
}
