// Package session keeps the per-user conversation state between events.
package session

import (
	"time"

	"coinkeeper/internal/core"
)

// State is the step a user's conversation is waiting on.
type State string

const (
	Idle                State = "idle"
	AwaitingAmount      State = "awaiting_amount"
	AwaitingCategory    State = "awaiting_category"
	AwaitingDate        State = "awaiting_date"
	AwaitingDescription State = "awaiting_description"
	AwaitingName        State = "awaiting_name"
	AwaitingContact     State = "awaiting_contact"
	AwaitingRange       State = "awaiting_range"
)

// Flow names the multi-step conversation a session belongs to.
type Flow string

const (
	FlowNone         Flow = ""
	FlowEntry        Flow = "entry"
	FlowRegistration Flow = "registration"
	FlowRange        Flow = "range"
)

type (
	// Draft is the transaction being assembled by the entry flow.
	Draft struct {
		Kind        core.Kind
		Amount      *core.Money
		Category    *core.Category
		Date        core.Date
		Description string
	}

	Session struct {
		UserID int64
		Flow   Flow
		State  State
		Draft  Draft

		// Registration flow
		Name string

		// Range flow: the kind a pending date-range report is for
		RangeKind core.Kind

		UpdatedAt time.Time
	}
)

// New returns an idle session for userID.
func New(userID int64) Session {
	return Session{UserID: userID, State: Idle}
}

func (s Session) IsIdle() bool {
	return s.State == Idle || s.State == ""
}

// Reset discards everything but the owner.
func (s *Session) Reset() {
	*s = New(s.UserID)
}

// Begin replaces whatever the session held with a fresh flow at state.
func (s *Session) Begin(flow Flow, state State) {
	s.Reset()
	s.Flow = flow
	s.State = state
}
