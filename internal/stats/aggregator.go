// Package stats aggregates a user's ledger into reports over a date window.
package stats

import (
	"context"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/log"
	"coinkeeper/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Report is the aggregate of one kind over one window.
type Report struct {
	Kind       core.Kind
	Window     core.Window
	Total      core.Money
	ByCategory []core.CategoryAmount // sorted by name, only categories with activity
	Details    []core.Detail         // date ascending
}

// Empty reports whether the window had no activity.
func (r Report) Empty() bool {
	return len(r.Details) == 0 && len(r.ByCategory) == 0
}

// PerCategory returns the category breakdown as a map.
func (r Report) PerCategory() map[string]core.Money {
	out := make(map[string]core.Money, len(r.ByCategory))
	for _, ca := range r.ByCategory {
		out[ca.Name] = ca.Amount
	}
	return out
}

// Overview pairs income and expense reports over the same window.
type Overview struct {
	Income  Report
	Expense Report
}

// Net is income minus expense over the window.
func (o Overview) Net() core.Money {
	return o.Income.Total.Add(o.Expense.Total.Neg())
}

type Aggregator struct {
	source storage.ReportSource
	logger *log.Logger
	now    func() time.Time
	loc    *time.Location
}

type Option func(*Aggregator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) { a.logger = l.WithComponent(log.ComponentStats) }
}

func New(source storage.ReportSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentStats),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) today() core.Date {
	return core.DateOf(a.now(), a.loc)
}

func (a *Aggregator) Daily(ctx context.Context, userID int64, kind core.Kind) Report {
	return a.Window(ctx, userID, kind, core.DayWindow(a.today()))
}

// Weekly covers Monday through Sunday of the current week.
func (a *Aggregator) Weekly(ctx context.Context, userID int64, kind core.Kind) Report {
	return a.Window(ctx, userID, kind, core.WeekWindow(a.today()))
}

// Monthly covers the calendar month containing today.
func (a *Aggregator) Monthly(ctx context.Context, userID int64, kind core.Kind) Report {
	return a.Window(ctx, userID, kind, core.MonthWindow(a.today()))
}

// Range covers from..to inclusive. It fails only when to precedes from.
func (a *Aggregator) Range(ctx context.Context, userID int64, kind core.Kind, from, to core.Date) (Report, error) {
	w, err := core.NewRange(from, to)
	if err != nil {
		return Report{}, err
	}
	return a.Window(ctx, userID, kind, w), nil
}

// Period resolves a fixed period (day, week, month) against today.
func (a *Aggregator) Period(ctx context.Context, userID int64, kind core.Kind, p core.Period) (Report, error) {
	w, err := core.WindowFor(p, a.today())
	if err != nil {
		return Report{}, err
	}
	return a.Window(ctx, userID, kind, w), nil
}

// Window aggregates kind over w. Store failures are logged and yield an
// empty report so callers always have something to render.
func (a *Aggregator) Window(ctx context.Context, userID int64, kind core.Kind, w core.Window) Report {
	empty := Report{Kind: kind, Window: w, ByCategory: []core.CategoryAmount{}, Details: []core.Detail{}}

	act, err := a.source.Activity(ctx, userID, kind, w)
	if err != nil {
		a.logger.ErrorContext(ctx, "Report query failed",
			log.FieldUserID, userID,
			log.FieldKind, kind,
			log.FieldPeriod, w.Period,
			log.FieldError, err)
		return empty
	}

	r := empty
	for _, ca := range act.Sums {
		if ca.Amount.IsZero() {
			continue
		}
		r.ByCategory = append(r.ByCategory, ca)
		r.Total = r.Total.Add(ca.Amount)
	}
	for _, t := range act.Transactions {
		r.Details = append(r.Details, core.Detail{
			Date:        t.Date,
			Category:    t.CategoryName,
			Description: t.Description,
			Amount:      t.Amount,
		})
	}
	return r
}

// Overview aggregates both kinds over w concurrently.
func (a *Aggregator) Overview(ctx context.Context, userID int64, w core.Window) Overview {
	var o Overview
	var g errgroup.Group
	g.Go(func() error {
		o.Income = a.Window(ctx, userID, core.KindIncome, w)
		return nil
	})
	g.Go(func() error {
		o.Expense = a.Window(ctx, userID, core.KindExpense, w)
		return nil
	})
	_ = g.Wait()
	return o
}
