// Package notify delivers execution digests to a Telegram chat. Delivery
// is best-effort: the runner treats notification failures as log-only.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/whatsapp-summary-bot/internal/models"
)

// excerptLength caps how much of each group's overall summary is quoted
// in the digest
const excerptLength = 200

// TelegramNotifier posts a digest message after each schedule execution
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier posting to the given chat
func NewTelegramNotifier(token string, chatID int64, debug bool, logger zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	api.Debug = debug

	logger.Info().
		Str("username", api.Self.UserName).
		Int64("chat_id", chatID).
		Msg("Telegram notifier authorized")

	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger.With().Str("component", "notifier").Logger(),
	}, nil
}

// NotifyExecution sends one digest message covering the whole execution
func (n *TelegramNotifier) NotifyExecution(ctx context.Context, schedule *models.Schedule, record models.ExecutionRecord, summaries []*models.GroupSummary) error {
	text := n.buildDigest(schedule, record, summaries)

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error().
			Err(err).
			Int64("schedule_id", schedule.ID).
			Msg("Failed to send execution digest")
		return fmt.Errorf("failed to send digest: %w", err)
	}

	n.logger.Info().
		Int64("schedule_id", schedule.ID).
		Int("summaries", len(summaries)).
		Msg("Execution digest delivered")
	return nil
}

// buildDigest renders the digest: a header line, one status line per
// group, and a short excerpt of each generated summary
func (n *TelegramNotifier) buildDigest(schedule *models.Schedule, record models.ExecutionRecord, summaries []*models.GroupSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Daily summaries* — %s (%s)\n",
		record.ExecutedAt.Format("2006-01-02"), record.Status)

	for _, result := range record.GroupResults {
		switch result.Status {
		case models.GroupResultSuccess:
			fmt.Fprintf(&b, "✅ %s\n", result.GroupName)
		case models.GroupResultSkipped:
			fmt.Fprintf(&b, "⏭ %s — no messages\n", result.GroupName)
		case models.GroupResultFailed:
			fmt.Fprintf(&b, "❌ %s — %s\n", result.GroupName, result.Error)
		}
	}

	for _, doc := range summaries {
		excerpt := doc.OverallSummary
		if len([]rune(excerpt)) > excerptLength {
			excerpt = string([]rune(excerpt)[:excerptLength]) + "..."
		}
		fmt.Fprintf(&b, "\n*%s* (%d messages, %d participants)\n%s\n",
			doc.GroupName, doc.TotalMessages, doc.ActiveParticipants, excerpt)
	}

	return b.String()
}
