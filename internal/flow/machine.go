// Package flow implements the conversation state machine that walks a user
// through multi-step input: transaction entry (amount, category, date,
// description), registration (name, contact) and the date-range prompt.
//
// The machine is pure with respect to persistence. It validates each step,
// mutates the session and reports an Outcome; committing a completed draft is
// the caller's job.
package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/session"
)

// Result classifies what a step did.
type Result int

const (
	// Ignored: the input does not belong to any pending step.
	Ignored Result = iota
	// Advanced: input accepted, the session moved to the next step.
	Advanced
	// Rejected: input failed validation; state is unchanged.
	Rejected
	// Failed: a lookup failed; state is unchanged and the step can be retried.
	Failed
	// Completed: the flow finished and the session is idle again.
	Completed
	// Aborted: the draft could not be completed; the session is idle again.
	Aborted
	// Cancelled: the user cancelled; the session is idle again.
	Cancelled
)

func (r Result) String() string {
	switch r {
	case Advanced:
		return "advanced"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Cancelled:
		return "cancelled"
	}
	return "ignored"
}

// Input errors reported as Outcome.Reason next to core's validation errors.
var (
	ErrExpectedText      = errors.New("expected text input")
	ErrExpectedSelection = errors.New("expected a selection")
	ErrUnknownSelection  = errors.New("unknown selection")
)

type InputKind int

const (
	InputText InputKind = iota
	InputSelection
)

type Input struct {
	Kind    InputKind
	Payload string
}

func Text(s string) Input      { return Input{Kind: InputText, Payload: s} }
func Selection(p string) Input { return Input{Kind: InputSelection, Payload: p} }

type (
	// Registration is the completed output of the registration flow.
	Registration struct {
		Name    string
		Contact string
	}

	// RangeRequest is the completed output of the date-range flow.
	RangeRequest struct {
		Kind   core.Kind
		Window core.Window
	}

	Outcome struct {
		Result Result
		Flow   session.Flow
		// State after the step.
		State  session.State
		Reason error

		// Set when Result is Completed, according to Flow.
		Transaction  core.Transaction
		Registration Registration
		Range        RangeRequest
	}
)

// CategorySource resolves category ids within one kind.
type CategorySource interface {
	Find(ctx context.Context, kind core.Kind, id int64) (core.Category, error)
}

type Machine struct {
	categories CategorySource
	now        func() time.Time
	loc        *time.Location
}

type Option func(*Machine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLocation sets the zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) { m.loc = loc }
}

func New(categories CategorySource, opts ...Option) *Machine {
	m := &Machine{
		categories: categories,
		now:        time.Now,
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Today is the current calendar day in the machine's location.
func (m *Machine) Today() core.Date {
	return core.DateOf(m.now(), m.loc)
}

// Start begins transaction entry of kind, discarding any flow in progress.
func (m *Machine) Start(s *session.Session, kind core.Kind) Outcome {
	if !kind.Valid() {
		return m.reject(s, core.ErrInvalidKind)
	}
	s.Begin(session.FlowEntry, session.AwaitingAmount)
	s.Draft.Kind = kind
	return m.advance(s)
}

// StartRegistration begins the registration flow.
func (m *Machine) StartRegistration(s *session.Session) Outcome {
	s.Begin(session.FlowRegistration, session.AwaitingName)
	return m.advance(s)
}

// StartRange arms the one-shot date-range prompt for kind.
func (m *Machine) StartRange(s *session.Session, kind core.Kind) Outcome {
	if !kind.Valid() {
		return m.reject(s, core.ErrInvalidKind)
	}
	s.Begin(session.FlowRange, session.AwaitingRange)
	s.RangeKind = kind
	return m.advance(s)
}

// Cancel discards the session from any state.
func (m *Machine) Cancel(s *session.Session) Outcome {
	flow := s.Flow
	s.Reset()
	return Outcome{Result: Cancelled, Flow: flow, State: s.State}
}

// Step feeds one input to the pending step of s.
func (m *Machine) Step(ctx context.Context, s *session.Session, in Input) Outcome {
	switch s.State {
	case session.AwaitingAmount:
		return m.stepAmount(s, in)
	case session.AwaitingCategory:
		return m.stepCategory(ctx, s, in)
	case session.AwaitingDate:
		return m.stepDate(s, in)
	case session.AwaitingDescription:
		return m.stepDescription(s, in)
	case session.AwaitingName:
		return m.stepName(s, in)
	case session.AwaitingContact:
		return m.stepContact(s, in)
	case session.AwaitingRange:
		return m.stepRange(s, in)
	}
	return Outcome{Result: Ignored, State: session.Idle}
}

func (m *Machine) stepAmount(s *session.Session, in Input) Outcome {
	if in.Kind != InputText {
		return m.reject(s, ErrExpectedText)
	}
	amount, err := core.ParseAmount(in.Payload)
	if err != nil {
		return m.reject(s, err)
	}
	s.Draft.Amount = &amount
	s.State = session.AwaitingCategory
	return m.advance(s)
}

func (m *Machine) stepCategory(ctx context.Context, s *session.Session, in Input) Outcome {
	if in.Kind != InputSelection {
		return m.reject(s, ErrExpectedSelection)
	}
	kind, id, ok := parseCategoryPayload(in.Payload)
	if !ok {
		return m.reject(s, ErrUnknownSelection)
	}
	if kind != s.Draft.Kind {
		return m.reject(s, core.ErrCategoryMismatch)
	}
	cat, err := m.categories.Find(ctx, kind, id)
	if errors.Is(err, core.ErrNotFound) {
		return m.reject(s, err)
	}
	if err != nil {
		return Outcome{Result: Failed, Flow: s.Flow, State: s.State, Reason: err}
	}
	s.Draft.Category = &cat
	s.State = session.AwaitingDate
	return m.advance(s)
}

func (m *Machine) stepDate(s *session.Session, in Input) Outcome {
	today := m.Today()

	var (
		date core.Date
		err  error
	)
	switch in.Kind {
	case InputSelection:
		day, ok := parseDayPayload(in.Payload)
		if !ok {
			return m.reject(s, ErrUnknownSelection)
		}
		date, err = today.DayInMonth(day)
	default:
		date, err = core.InCurrentMonth(in.Payload, today)
	}
	if err != nil {
		return m.reject(s, err)
	}
	s.Draft.Date = date
	s.State = session.AwaitingDescription
	return m.advance(s)
}

func (m *Machine) stepDescription(s *session.Session, in Input) Outcome {
	if in.Kind != InputText {
		return m.reject(s, ErrExpectedText)
	}
	desc := strings.TrimSpace(in.Payload)
	if err := core.ValidateDescription(desc); err != nil {
		return m.reject(s, err)
	}

	d := s.Draft
	flow := s.Flow
	s.Reset()
	if d.Amount == nil || d.Category == nil || d.Date.IsZero() || !d.Kind.Valid() {
		return Outcome{Result: Aborted, Flow: flow, State: s.State, Reason: core.ErrIncompleteDraft}
	}

	return Outcome{
		Result: Completed,
		Flow:   flow,
		State:  s.State,
		Transaction: core.Transaction{
			Kind:         d.Kind,
			CategoryID:   d.Category.ID,
			CategoryName: d.Category.Name,
			Amount:       *d.Amount,
			Date:         d.Date,
			Description:  desc,
		},
	}
}

func (m *Machine) stepName(s *session.Session, in Input) Outcome {
	if in.Kind != InputText {
		return m.reject(s, ErrExpectedText)
	}
	name := strings.TrimSpace(in.Payload)
	if err := core.ValidateName(name); err != nil {
		return m.reject(s, err)
	}
	s.Name = name
	s.State = session.AwaitingContact
	return m.advance(s)
}

func (m *Machine) stepContact(s *session.Session, in Input) Outcome {
	if in.Kind != InputText {
		return m.reject(s, ErrExpectedText)
	}
	contact := strings.TrimSpace(in.Payload)
	if err := core.ValidateContact(contact); err != nil {
		return m.reject(s, err)
	}
	name := s.Name
	flow := s.Flow
	s.Reset()
	if name == "" {
		return Outcome{Result: Aborted, Flow: flow, State: s.State, Reason: core.ErrIncompleteDraft}
	}
	return Outcome{
		Result:       Completed,
		Flow:         flow,
		State:        s.State,
		Registration: Registration{Name: name, Contact: contact},
	}
}

func (m *Machine) stepRange(s *session.Session, in Input) Outcome {
	if in.Kind != InputText {
		return m.reject(s, ErrExpectedText)
	}
	w, err := core.ParseRange(in.Payload)
	if err != nil {
		return m.reject(s, err)
	}
	kind := s.RangeKind
	flow := s.Flow
	s.Reset()
	return Outcome{
		Result: Completed,
		Flow:   flow,
		State:  s.State,
		Range:  RangeRequest{Kind: kind, Window: w},
	}
}

func (m *Machine) advance(s *session.Session) Outcome {
	return Outcome{Result: Advanced, Flow: s.Flow, State: s.State}
}

func (m *Machine) reject(s *session.Session, reason error) Outcome {
	return Outcome{Result: Rejected, Flow: s.Flow, State: s.State, Reason: reason}
}
