package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/session"
)

type fakeCategories struct {
	cats map[core.Kind][]core.Category
	err  error
}

func (f *fakeCategories) Find(_ context.Context, kind core.Kind, id int64) (core.Category, error) {
	if f.err != nil {
		return core.Category{}, f.err
	}
	for _, c := range f.cats[kind] {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

var (
	salary    = core.Category{ID: 1, Kind: core.KindIncome, Name: "Salary"}
	gift      = core.Category{ID: 4, Kind: core.KindIncome, Name: "Gift"}
	groceries = core.Category{ID: 1, Kind: core.KindExpense, Name: "Groceries"}
	transport = core.Category{ID: 3, Kind: core.KindExpense, Name: "Transport"}
)

// 14 February 2025, 10:00 UTC
var fixedNow = time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)

func newMachine(t *testing.T) (*Machine, *fakeCategories) {
	t.Helper()
	cats := &fakeCategories{cats: map[core.Kind][]core.Category{
		core.KindIncome:  {salary, gift},
		core.KindExpense: {groceries, transport},
	}}
	m := New(cats,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC))
	return m, cats
}

func mustAdvance(t *testing.T, out Outcome, want session.State) {
	t.Helper()
	if out.Result != Advanced || out.State != want {
		t.Fatalf("outcome = %+v, want Advanced to %s", out, want)
	}
}

func TestEntryFlowCommitsExactValues(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	s := session.New(7)

	mustAdvance(t, m.Start(&s, core.KindExpense), session.AwaitingAmount)
	mustAdvance(t, m.Step(ctx, &s, Text("12,345")), session.AwaitingCategory)
	mustAdvance(t, m.Step(ctx, &s, Selection(CategoryPayload(transport))), session.AwaitingDate)
	mustAdvance(t, m.Step(ctx, &s, Selection(DayPayload(3))), session.AwaitingDescription)

	out := m.Step(ctx, &s, Text("  taxi home  "))
	if out.Result != Completed || out.Flow != session.FlowEntry {
		t.Fatalf("outcome = %+v, want Completed entry", out)
	}
	tx := out.Transaction
	if tx.Kind != core.KindExpense || tx.CategoryID != 3 || tx.CategoryName != "Transport" {
		t.Errorf("unexpected category in %+v", tx)
	}
	if tx.Amount.Cents != 1235 {
		t.Errorf("amount = %d, want 1235", tx.Amount.Cents)
	}
	if !tx.Date.Equal(core.NewDate(2025, 2, 3).Time) {
		t.Errorf("date = %s, want 03.02.2025", tx.Date)
	}
	if tx.Description != "taxi home" {
		t.Errorf("description = %q", tx.Description)
	}
	if !s.IsIdle() || s.Draft.Amount != nil {
		t.Fatalf("session not cleared after commit: %+v", s)
	}
}

func TestInvalidAmountsKeepStep(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()

	for _, input := range []string{"abc", "-5", "0", "", "1e3", "0.001"} {
		t.Run(input, func(t *testing.T) {
			s := session.New(1)
			m.Start(&s, core.KindIncome)

			out := m.Step(ctx, &s, Text(input))
			if out.Result != Rejected || !errors.Is(out.Reason, core.ErrInvalidAmount) {
				t.Fatalf("outcome = %+v, want Rejected ErrInvalidAmount", out)
			}
			if s.State != session.AwaitingAmount || s.Draft.Amount != nil {
				t.Fatalf("session changed: %+v", s)
			}
		})
	}
}

func TestCategoryStep(t *testing.T) {
	m, cats := newMachine(t)
	ctx := context.Background()

	atCategory := func() session.Session {
		s := session.New(1)
		m.Start(&s, core.KindExpense)
		m.Step(ctx, &s, Text("10"))
		return s
	}

	tests := []struct {
		name   string
		input  Input
		result Result
		reason error
	}{
		{"free text", Text("Groceries"), Rejected, ErrExpectedSelection},
		{"garbage payload", Selection("cat:expense:x"), Rejected, ErrUnknownSelection},
		{"day payload", Selection(DayPayload(3)), Rejected, ErrUnknownSelection},
		{"unknown id", Selection("cat:expense:99"), Rejected, core.ErrNotFound},
		{"income button in expense flow", Selection(CategoryPayload(gift)), Rejected, core.ErrCategoryMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := atCategory()
			out := m.Step(ctx, &s, tt.input)
			if out.Result != tt.result || !errors.Is(out.Reason, tt.reason) {
				t.Fatalf("outcome = %+v, want %s %v", out, tt.result, tt.reason)
			}
			if s.State != session.AwaitingCategory || s.Draft.Category != nil {
				t.Fatalf("session changed: %+v", s)
			}
		})
	}

	t.Run("lookup failure", func(t *testing.T) {
		s := atCategory()
		cats.err = errors.New("db down")
		defer func() { cats.err = nil }()

		out := m.Step(ctx, &s, Selection(CategoryPayload(groceries)))
		if out.Result != Failed || s.State != session.AwaitingCategory {
			t.Fatalf("outcome = %+v, session %+v", out, s)
		}
	})
}

func TestDateStep(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()

	atDate := func() session.Session {
		s := session.New(1)
		m.Start(&s, core.KindIncome)
		m.Step(ctx, &s, Text("1000"))
		m.Step(ctx, &s, Selection(CategoryPayload(salary)))
		return s
	}

	tests := []struct {
		name   string
		input  Input
		want   core.Date
		reason error
	}{
		{"day button", Selection(DayPayload(28)), core.NewDate(2025, 2, 28), nil},
		{"typed current month", Text("01.02.2025"), core.NewDate(2025, 2, 1), nil},
		{"day past month end", Selection(DayPayload(29)), core.Date{}, core.ErrInvalidDay},
		{"day zero", Selection(DayPayload(0)), core.Date{}, core.ErrInvalidDay},
		{"impossible month", Text("15.13.2099"), core.Date{}, core.ErrInvalidDate},
		{"last month", Text("31.01.2025"), core.Date{}, core.ErrOutsideCurrentMonth},
		{"same month last year", Text("14.02.2024"), core.Date{}, core.ErrOutsideCurrentMonth},
		{"wrong layout", Text("2025-02-14"), core.Date{}, core.ErrInvalidDate},
		{"category button", Selection(CategoryPayload(salary)), core.Date{}, ErrUnknownSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := atDate()
			out := m.Step(ctx, &s, tt.input)
			if tt.reason != nil {
				if out.Result != Rejected || !errors.Is(out.Reason, tt.reason) {
					t.Fatalf("outcome = %+v, want Rejected %v", out, tt.reason)
				}
				if s.State != session.AwaitingDate || !s.Draft.Date.IsZero() {
					t.Fatalf("session changed: %+v", s)
				}
				return
			}
			mustAdvance(t, out, session.AwaitingDescription)
			if !s.Draft.Date.Equal(tt.want.Time) {
				t.Fatalf("date = %s, want %s", s.Draft.Date, tt.want)
			}
		})
	}
}

func TestDescriptionStep(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()

	t.Run("empty description re-prompts", func(t *testing.T) {
		s := session.New(1)
		m.Start(&s, core.KindExpense)
		m.Step(ctx, &s, Text("5"))
		m.Step(ctx, &s, Selection(CategoryPayload(groceries)))
		m.Step(ctx, &s, Selection(DayPayload(1)))

		out := m.Step(ctx, &s, Text("   "))
		if out.Result != Rejected || !errors.Is(out.Reason, core.ErrEmptyDescription) {
			t.Fatalf("outcome = %+v", out)
		}
		if s.State != session.AwaitingDescription {
			t.Fatalf("state = %s", s.State)
		}
	})

	t.Run("missing amount aborts", func(t *testing.T) {
		s := session.New(1)
		s.Begin(session.FlowEntry, session.AwaitingDescription)
		s.Draft.Kind = core.KindExpense
		s.Draft.Category = &groceries
		s.Draft.Date = core.NewDate(2025, 2, 1)

		out := m.Step(ctx, &s, Text("bread"))
		if out.Result != Aborted || !errors.Is(out.Reason, core.ErrIncompleteDraft) {
			t.Fatalf("outcome = %+v, want Aborted", out)
		}
		if !s.IsIdle() {
			t.Fatalf("session not cleared: %+v", s)
		}
	})
}

func TestCancelLeavesNoResidue(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	s := session.New(1)

	m.Start(&s, core.KindExpense)
	m.Step(ctx, &s, Text("99"))
	if s.State != session.AwaitingCategory {
		t.Fatalf("state = %s", s.State)
	}

	out := m.Cancel(&s)
	if out.Result != Cancelled || out.Flow != session.FlowEntry || !s.IsIdle() {
		t.Fatalf("cancel outcome = %+v, session %+v", out, s)
	}

	mustAdvance(t, m.Start(&s, core.KindIncome), session.AwaitingAmount)
	if s.Draft.Amount != nil || s.Draft.Category != nil || s.Draft.Kind != core.KindIncome {
		t.Fatalf("fresh flow has residue: %+v", s.Draft)
	}
}

func TestStartReplacesFlowInProgress(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	s := session.New(1)

	m.StartRegistration(&s)
	m.Step(ctx, &s, Text("Anna"))
	m.Start(&s, core.KindExpense)

	if s.Flow != session.FlowEntry || s.Name != "" || s.State != session.AwaitingAmount {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestIdleIgnoresInput(t *testing.T) {
	m, _ := newMachine(t)
	s := session.New(1)

	out := m.Step(context.Background(), &s, Text("hello"))
	if out.Result != Ignored || !s.IsIdle() {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestRegistrationFlow(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	s := session.New(1)

	mustAdvance(t, m.StartRegistration(&s), session.AwaitingName)
	if out := m.Step(ctx, &s, Text("  ")); out.Result != Rejected || !errors.Is(out.Reason, core.ErrInvalidName) {
		t.Fatalf("blank name outcome = %+v", out)
	}
	mustAdvance(t, m.Step(ctx, &s, Text(" Anna ")), session.AwaitingContact)
	if out := m.Step(ctx, &s, Text("8999123")); out.Result != Rejected || !errors.Is(out.Reason, core.ErrInvalidContact) {
		t.Fatalf("bad contact outcome = %+v", out)
	}

	out := m.Step(ctx, &s, Text("+79991234567"))
	if out.Result != Completed || out.Flow != session.FlowRegistration {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Registration != (Registration{Name: "Anna", Contact: "+79991234567"}) {
		t.Fatalf("registration = %+v", out.Registration)
	}
	if !s.IsIdle() {
		t.Fatalf("session not cleared: %+v", s)
	}
}

func TestRangeFlowIsOneShot(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	s := session.New(1)

	mustAdvance(t, m.StartRange(&s, core.KindExpense), session.AwaitingRange)

	for _, bad := range []string{"01.01.2025", "31.01.2025 01.01.2025", "01.01.2025 32.01.2025", "yesterday today"} {
		out := m.Step(ctx, &s, Text(bad))
		if out.Result != Rejected || s.State != session.AwaitingRange {
			t.Fatalf("%q: outcome = %+v", bad, out)
		}
	}

	out := m.Step(ctx, &s, Text("01.01.2025 31.01.2025"))
	if out.Result != Completed || out.Flow != session.FlowRange {
		t.Fatalf("outcome = %+v", out)
	}
	want := RangeRequest{Kind: core.KindExpense, Window: core.Window{
		Period: core.PeriodRange, From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 1, 31),
	}}
	if out.Range.Kind != want.Kind || !out.Range.Window.From.Equal(want.Window.From.Time) || !out.Range.Window.To.Equal(want.Window.To.Time) {
		t.Fatalf("range = %+v, want %+v", out.Range, want)
	}

	if again := m.Step(ctx, &s, Text("01.01.2025 31.01.2025")); again.Result != Ignored {
		t.Fatalf("range context must be consumed, got %+v", again)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	cats := &fakeCategories{}
	late := time.Date(2025, 2, 28, 22, 30, 0, 0, time.UTC)
	tz := time.FixedZone("UTC+3", 3*60*60)

	m := New(cats, WithClock(func() time.Time { return late }), WithLocation(tz))
	if got := m.Today(); !got.Equal(core.NewDate(2025, 3, 1).Time) {
		t.Fatalf("Today() = %s, want 01.03.2025", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	kind, id, ok := parseCategoryPayload(CategoryPayload(transport))
	if !ok || kind != core.KindExpense || id != 3 {
		t.Fatalf("parseCategoryPayload = %s %d %v", kind, id, ok)
	}
	if _, _, ok := parseCategoryPayload("cat:loan:1"); ok {
		t.Fatal("unknown kind accepted")
	}
	if day, ok := parseDayPayload(DayPayload(17)); !ok || day != 17 {
		t.Fatalf("parseDayPayload = %d %v", day, ok)
	}
}
