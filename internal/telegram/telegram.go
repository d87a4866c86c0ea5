// Package telegram connects the bot controller to the Telegram Bot API using
// long polling.
package telegram

import (
	"context"
	"fmt"
	"time"

	"coinkeeper/internal/bot"
	"coinkeeper/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

// Handler consumes translated events.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event)
}

type Transport struct {
	api         *tgbotapi.BotAPI
	sem         *semaphore.Weighted
	pollTimeout time.Duration
	logger      *log.Logger
}

var _ bot.Channel = (*Transport)(nil)

// New authenticates with token. At most concurrency events are handled at once.
func New(token string, concurrency int, pollTimeout time.Duration, logger *log.Logger) (*Transport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logger = logger.WithComponent(log.ComponentTelegram)
	_ = tgbotapi.SetLogger(apiLogger{logger})

	logger.Info("Authorized on Telegram", "username", api.Self.UserName)
	return &Transport{
		api:         api,
		sem:         semaphore.NewWeighted(int64(max(concurrency, 1))),
		pollTimeout: pollTimeout,
		logger:      logger,
	}, nil
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// handlers to finish. Events of one user are handled one at a time, in order.
func (t *Transport) Run(ctx context.Context, handler Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(t.pollTimeout.Seconds())
	updates := t.api.GetUpdatesChan(u)

	// In-flight and queued events finish even after shutdown starts.
	d := newDispatcher(context.WithoutCancel(ctx), handler, t.sem)
	defer d.wait()

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.logger.Info("Stopped receiving updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.answerCallback(update)

			ev, ok := translate(update)
			if !ok {
				continue
			}
			if err := d.dispatch(ctx, ev); err != nil {
				t.api.StopReceivingUpdates()
				return nil
			}
		}
	}
}

// Send delivers msg to the private chat of userID.
func (t *Transport) Send(ctx context.Context, userID int64, msg bot.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(render(userID, msg)); err != nil {
		return fmt.Errorf("send to %d: %w", userID, err)
	}
	return nil
}

// answerCallback stops the client's loading spinner on inline buttons.
func (t *Transport) answerCallback(update tgbotapi.Update) {
	if update.CallbackQuery == nil {
		return
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
		t.logger.Warn("Failed to answer callback", log.FieldError, err)
	}
}

// apiLogger routes the library's own logging through slog at debug level.
type apiLogger struct {
	logger *log.Logger
}

func (l apiLogger) Println(v ...interface{}) {
	l.logger.Debug(fmt.Sprint(v...))
}

func (l apiLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
