package telegram

import (
	"strings"

	"coinkeeper/internal/bot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const shareContactLabel = "Share phone number"

// translate turns an update into a bot event. Only private chats are served.
func translate(update tgbotapi.Update) (bot.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Data == "" {
			return bot.Event{}, false
		}
		if cq.Message != nil && cq.Message.Chat != nil && !cq.Message.Chat.IsPrivate() {
			return bot.Event{}, false
		}
		return bot.Event{
			UserID:      cq.From.ID,
			DisplayName: displayName(cq.From),
			Kind:        bot.EventSelection,
			Payload:     cq.Data,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return bot.Event{}, false
	}
	ev := bot.Event{UserID: msg.From.ID, DisplayName: displayName(msg.From)}

	switch {
	case msg.Contact != nil:
		ev.Kind = bot.EventText
		ev.Payload = normalizePhone(msg.Contact.PhoneNumber)
	case msg.IsCommand():
		if msg.Command() == "cancel" {
			ev.Kind = bot.EventCancel
		} else {
			ev.Kind = bot.EventCommand
			ev.Payload = "/" + msg.Command()
		}
	case strings.TrimSpace(msg.Text) == bot.LabelCancel:
		ev.Kind = bot.EventCancel
	case strings.TrimSpace(msg.Text) != "":
		ev.Kind = bot.EventText
		ev.Payload = msg.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}

func displayName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.UserName
}

// normalizePhone strips formatting from a shared contact. Telegram omits the
// leading '+' for some clients.
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return strings.TrimSpace(s)
	}
	return "+" + b.String()
}

// render builds the outgoing message. Telegram accepts one markup per message,
// so inline options win over the reply keyboard.
func render(chatID int64, msg bot.Message) tgbotapi.MessageConfig {
	out := tgbotapi.NewMessage(chatID, msg.Text)

	switch {
	case len(msg.Options) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Options))
		for _, opts := range msg.Options {
			row := make([]tgbotapi.InlineKeyboardButton, 0, len(opts))
			for _, o := range opts {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Payload))
			}
			rows = append(rows, row)
		}
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	case msg.RequestContact:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(shareContactLabel)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(bot.LabelCancel)),
		)
		kb.OneTimeKeyboard = true
		out.ReplyMarkup = kb
	case len(msg.Menu) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(msg.Menu))
		for _, labels := range msg.Menu {
			row := make([]tgbotapi.KeyboardButton, 0, len(labels))
			for _, l := range labels {
				row = append(row, tgbotapi.NewKeyboardButton(l))
			}
			rows = append(rows, row)
		}
		out.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	case msg.RemoveMenu:
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return out
}
