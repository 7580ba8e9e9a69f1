package reporter

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-easyapply-automation/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramReporter pushes submitted applications, and optionally every
// outcome, to a chat.
type TelegramReporter struct {
	bot       sender
	chatID    int64
	notifyAll bool
}

func NewTelegramReporter(token string, chatID int64, notifyAll bool) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &TelegramReporter{bot: bot, chatID: chatID, notifyAll: notifyAll}, nil
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
	")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
	"}", "\\}", ".", "\\.", "!", "\\!",
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func (t *TelegramReporter) Report(_ context.Context, o models.Outcome) error {
	if o.State != models.StateSubmitted && !t.notifyAll {
		return nil
	}
	return t.send(formatOutcome(o), o.URL)
}

func (t *TelegramReporter) Summary(_ context.Context, s Summary) error {
	counts := s.Counts()
	text := fmt.Sprintf("🏁 *Run finished*\n✅ %d submitted\n⏭️ %d skipped\n💥 %d abandoned\n",
		counts[models.StateSubmitted], counts[models.StateSkipped], counts[models.StateAbandoned])
	if s.Err != nil {
		text += fmt.Sprintf("⚠️ %s\n", escapeMarkdown(s.Err.Error()))
	}
	return t.send(text, "")
}

func formatOutcome(o models.Outcome) string {
	icon := "⏭️"
	switch o.State {
	case models.StateSubmitted:
		icon = "✅"
	case models.StateAbandoned:
		icon = "💥"
	}
	msg := fmt.Sprintf("%s *%s*\n", icon, escapeMarkdown(o.Title))
	msg += fmt.Sprintf("🏢 %s\n", escapeMarkdown(o.Company))
	msg += fmt.Sprintf("📍 %s\n", escapeMarkdown(o.Location))
	if o.RelevanceScore != nil {
		msg += fmt.Sprintf("🤖 Relevance: %s\n", escapeMarkdown(fmt.Sprintf("%.1f/100", *o.RelevanceScore)))
	}
	msg += fmt.Sprintf("🔖 %s", escapeMarkdown(string(o.State)))
	if o.ErrorKind != models.ErrNone {
		msg += " " + escapeMarkdown("("+string(o.ErrorKind)+")")
	}
	return msg + "\n"
}

func (t *TelegramReporter) send(text, url string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"
	if url != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", url)),
		)
	}
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
