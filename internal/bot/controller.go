package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/flow"
	"coinkeeper/internal/log"
	"coinkeeper/internal/metrics"
	"coinkeeper/internal/session"
	"coinkeeper/internal/stats"
)

// Ledger is the subset of services.LedgerService the controller needs.
type Ledger interface {
	FindUser(ctx context.Context, externalID int64) (core.User, error)
	Register(ctx context.Context, externalID int64, name, contact string) (core.User, error)
	Commit(ctx context.Context, user core.User, tx core.Transaction) (core.Transaction, core.User, error)
}

// Categories lists the choices offered at the category step.
type Categories interface {
	List(ctx context.Context, kind core.Kind) ([]core.Category, error)
}

// Reports is the subset of stats.Aggregator the controller needs.
type Reports interface {
	Period(ctx context.Context, userID int64, kind core.Kind, p core.Period) (stats.Report, error)
	Window(ctx context.Context, userID int64, kind core.Kind, w core.Window) stats.Report
	Overview(ctx context.Context, userID int64, w core.Window) stats.Overview
}

// Controller handles one inbound event at a time per user. It never returns
// errors to the transport: failures become user-facing messages and logs.
type Controller struct {
	channel    Channel
	ledger     Ledger
	categories Categories
	reports    Reports
	machine    *flow.Machine
	sessions   *session.Store
	metrics    *metrics.Metrics
	logger     *log.Logger
}

type Deps struct {
	Channel    Channel
	Ledger     Ledger
	Categories Categories
	Reports    Reports
	Machine    *flow.Machine
	Sessions   *session.Store
	Metrics    *metrics.Metrics // optional
	Logger     *log.Logger      // optional
}

func NewController(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Controller{
		channel:    d.Channel,
		ledger:     d.Ledger,
		categories: d.Categories,
		reports:    d.Reports,
		machine:    d.Machine,
		sessions:   d.Sessions,
		metrics:    d.Metrics,
		logger:     logger.WithComponent(log.ComponentBot),
	}
}

// Handle processes ev under the user's lock.
func (c *Controller) Handle(ctx context.Context, ev Event) {
	start := time.Now()
	unlock := c.sessions.Lock(ev.UserID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "Panic while handling event",
				log.FieldUserID, ev.UserID,
				log.FieldEventKind, ev.Kind.String(),
				"panic", r)
			c.sessions.Clear(ev.UserID)
		}
	}()

	c.metrics.Event(ev.Kind.String())
	sess := c.sessions.Load(ev.UserID)

	switch ev.Kind {
	case EventCancel:
		c.cancel(ctx, &sess)
	case EventCommand:
		if cmd, ok := parseCommand(ev.Payload); ok {
			c.command(ctx, &sess, ev, cmd)
		} else {
			c.send(ctx, ev.UserID, Message{Text: textUseMenu})
		}
	case EventSelection:
		if kind, p, ok := parseStatsPayload(ev.Payload); ok {
			c.stats(ctx, &sess, ev, kind, p)
		} else {
			c.step(ctx, &sess, ev, flow.Selection(ev.Payload))
		}
	default:
		if cmd, ok := labelCommands[strings.TrimSpace(ev.Payload)]; ok {
			c.command(ctx, &sess, ev, cmd)
		} else {
			c.step(ctx, &sess, ev, flow.Text(ev.Payload))
		}
	}

	c.sessions.Save(sess)
	c.logger.DebugContext(ctx, "Event handled",
		log.FieldUserID, ev.UserID,
		log.FieldEventKind, ev.Kind.String(),
		log.FieldState, string(sess.State),
		log.FieldDuration, time.Since(start).Milliseconds())
}

func (c *Controller) command(ctx context.Context, sess *session.Session, ev Event, cmd command) {
	switch cmd {
	case cmdCancel:
		c.cancel(ctx, sess)
	case cmdStart, cmdMenu:
		sess.Reset()
		user, ok, err := c.findUser(ctx, ev.UserID)
		if err != nil {
			c.fail(ctx, ev.UserID, false)
			return
		}
		name := ev.DisplayName
		if ok {
			name = user.Name
		}
		text := greeting(name, ok)
		if cmd == cmdMenu {
			text = textMainMenu
		}
		c.send(ctx, ev.UserID, Message{Text: text, Menu: mainMenu(ok)})
	case cmdAbout:
		c.send(ctx, ev.UserID, Message{Text: textAbout})
	case cmdRegister:
		c.register(ctx, sess, ev)
	case cmdProfile:
		c.profile(ctx, ev)
	case cmdStats:
		if _, ok := c.requireUser(ctx, ev.UserID); ok {
			c.send(ctx, ev.UserID, Message{Text: textChooseStats, Options: statsOptions()})
		}
	case cmdAddIncome:
		c.startEntry(ctx, sess, ev, core.KindIncome)
	case cmdAddExpense:
		c.startEntry(ctx, sess, ev, core.KindExpense)
	}
}

func (c *Controller) cancel(ctx context.Context, sess *session.Session) {
	out := c.machine.Cancel(sess)
	c.metrics.Outcome(flowLabel(out.Flow), out.Result.String())
	_, ok, _ := c.findUser(ctx, sess.UserID)
	c.send(ctx, sess.UserID, Message{Text: textCancelled, Menu: mainMenu(ok)})
}

func (c *Controller) register(ctx context.Context, sess *session.Session, ev Event) {
	user, ok, err := c.findUser(ctx, ev.UserID)
	if err != nil {
		c.fail(ctx, ev.UserID, false)
		return
	}
	if ok {
		c.send(ctx, ev.UserID, Message{Text: alreadyRegistered(user.Name), Menu: mainMenu(true)})
		return
	}
	out := c.machine.StartRegistration(sess)
	c.render(ctx, *sess, out)
}

func (c *Controller) profile(ctx context.Context, ev Event) {
	user, ok := c.requireUser(ctx, ev.UserID)
	if !ok {
		return
	}
	month := c.reports.Overview(ctx, user.ID, core.MonthWindow(c.machine.Today()))
	c.send(ctx, ev.UserID, Message{Text: profile(user, month), Menu: mainMenu(true)})
}

func (c *Controller) startEntry(ctx context.Context, sess *session.Session, ev Event, kind core.Kind) {
	if _, ok := c.requireUser(ctx, ev.UserID); !ok {
		return
	}
	out := c.machine.Start(sess, kind)
	c.render(ctx, *sess, out)
}

// stats answers a statistics menu selection. Fixed periods are answered
// directly and leave any pending flow alone; a range request arms the range prompt.
func (c *Controller) stats(ctx context.Context, sess *session.Session, ev Event, kind core.Kind, p core.Period) {
	user, ok := c.requireUser(ctx, ev.UserID)
	if !ok {
		return
	}
	if p == core.PeriodRange {
		out := c.machine.StartRange(sess, kind)
		c.render(ctx, *sess, out)
		return
	}
	r, err := c.reports.Period(ctx, user.ID, kind, p)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to build report",
			log.FieldUserID, ev.UserID,
			log.FieldOperation, log.OpReport,
			log.FieldPeriod, string(p),
			log.FieldError, err)
		c.fail(ctx, ev.UserID, true)
		return
	}
	c.metrics.Report(kind.String(), string(p))
	c.send(ctx, ev.UserID, Message{Text: report(r)})
}

func (c *Controller) step(ctx context.Context, sess *session.Session, ev Event, in flow.Input) {
	if sess.IsIdle() {
		_, ok, err := c.findUser(ctx, ev.UserID)
		switch {
		case err != nil:
			c.fail(ctx, ev.UserID, false)
		case !ok:
			c.send(ctx, ev.UserID, Message{Text: textUnregistered, Menu: mainMenu(false)})
		default:
			c.send(ctx, ev.UserID, Message{Text: textUseMenu, Menu: mainMenu(true)})
		}
		return
	}
	out := c.machine.Step(ctx, sess, in)
	c.render(ctx, *sess, out)
}

// render reports out to the user; sess is the session after the step.
func (c *Controller) render(ctx context.Context, sess session.Session, out flow.Outcome) {
	userID := sess.UserID
	c.metrics.Outcome(flowLabel(out.Flow), out.Result.String())

	switch out.Result {
	case flow.Advanced:
		c.promptStep(ctx, sess)
	case flow.Rejected:
		c.logger.InfoContext(ctx, "Input rejected",
			log.FieldUserID, userID,
			log.FieldState, string(out.State),
			log.FieldError, out.Reason)
		c.send(ctx, userID, Message{Text: rejection(out.Reason)})
		c.promptStep(ctx, sess)
	case flow.Failed:
		c.logger.ErrorContext(ctx, "Step lookup failed",
			log.FieldUserID, userID,
			log.FieldState, string(out.State),
			log.FieldError, out.Reason)
		c.send(ctx, userID, Message{Text: textFailure})
		c.promptStep(ctx, sess)
	case flow.Aborted:
		c.logger.ErrorContext(ctx, "Flow aborted",
			log.FieldUserID, userID,
			log.FieldFlow, flowLabel(out.Flow),
			log.FieldError, out.Reason)
		c.fail(ctx, userID, true)
	case flow.Cancelled:
		c.send(ctx, userID, Message{Text: textCancelled})
	case flow.Completed:
		c.complete(ctx, userID, out)
	default:
		c.send(ctx, userID, Message{Text: textUseMenu})
	}
}

// promptStep asks the pending question of sess with the matching keyboard.
func (c *Controller) promptStep(ctx context.Context, sess session.Session) {
	userID := sess.UserID
	msg := Message{Text: prompt(sess)}

	switch sess.State {
	case session.AwaitingCategory:
		kind := sess.Draft.Kind
		cats, err := c.categories.List(ctx, kind)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to list categories",
				log.FieldUserID, userID,
				log.FieldKind, kind,
				log.FieldError, err)
			msg.Text = textFailure
			msg.Menu = cancelMenu()
			break
		}
		if len(cats) == 0 {
			msg.Text = textNoCategories
			msg.Menu = cancelMenu()
			break
		}
		msg.Options = categoryOptions(cats)
	case session.AwaitingDate:
		msg.Options = dayOptions(c.machine.Today())
	case session.AwaitingContact:
		msg.RequestContact = true
	case session.AwaitingAmount, session.AwaitingName, session.AwaitingRange:
		msg.Menu = cancelMenu()
	}
	c.send(ctx, userID, msg)
}

func (c *Controller) complete(ctx context.Context, userID int64, out flow.Outcome) {
	switch out.Flow {
	case session.FlowEntry:
		c.commit(ctx, userID, out.Transaction)
	case session.FlowRegistration:
		user, err := c.ledger.Register(ctx, userID, out.Registration.Name, out.Registration.Contact)
		if errors.Is(err, core.ErrAlreadyExists) {
			c.send(ctx, userID, Message{Text: alreadyRegistered(out.Registration.Name), Menu: mainMenu(true)})
			return
		}
		if err != nil {
			c.fail(ctx, userID, false)
			return
		}
		c.send(ctx, userID, Message{Text: registered(user), Menu: mainMenu(true)})
	case session.FlowRange:
		user, ok := c.requireUser(ctx, userID)
		if !ok {
			return
		}
		r := c.reports.Window(ctx, user.ID, out.Range.Kind, out.Range.Window)
		c.metrics.Report(out.Range.Kind.String(), string(core.PeriodRange))
		c.send(ctx, userID, Message{Text: report(r), Menu: mainMenu(true)})
	}
}

func (c *Controller) commit(ctx context.Context, userID int64, tx core.Transaction) {
	user, ok := c.requireUser(ctx, userID)
	if !ok {
		return
	}
	saved, updated, err := c.ledger.Commit(ctx, user, tx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to commit transaction",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpCommit,
			log.FieldKind, tx.Kind,
			log.FieldError, err)
		c.fail(ctx, userID, true)
		return
	}
	c.metrics.Committed(saved.Kind.String())
	c.send(ctx, userID, Message{Text: confirmation(saved, updated), Menu: mainMenu(true)})
}

// findUser distinguishes unregistered users (ok false, nil error) from
// store failures, which it logs.
func (c *Controller) findUser(ctx context.Context, externalID int64) (core.User, bool, error) {
	user, err := c.ledger.FindUser(ctx, externalID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, false, nil
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to load user",
			log.FieldUserID, externalID,
			log.FieldError, err)
		return core.User{}, false, err
	}
	return user, true, nil
}

// requireUser answers unregistered users and store failures itself.
func (c *Controller) requireUser(ctx context.Context, externalID int64) (core.User, bool) {
	user, ok, err := c.findUser(ctx, externalID)
	if err != nil {
		c.fail(ctx, externalID, false)
		return core.User{}, false
	}
	if !ok {
		c.send(ctx, externalID, Message{Text: textUnregistered, Menu: mainMenu(false)})
		return core.User{}, false
	}
	return user, true
}

func (c *Controller) fail(ctx context.Context, userID int64, registered bool) {
	c.send(ctx, userID, Message{Text: textFailure, Menu: mainMenu(registered)})
}

func (c *Controller) send(ctx context.Context, userID int64, msg Message) {
	if err := c.channel.Send(ctx, userID, msg); err != nil {
		c.metrics.SendFailed()
		c.logger.WarnContext(ctx, "Failed to send message",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpSend,
			log.FieldError, err)
	}
}

func flowLabel(f session.Flow) string {
	if f == session.FlowNone {
		return "none"
	}
	return string(f)
}
