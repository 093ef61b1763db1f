// Package notify pushes cycle summaries to Telegram.
package notify

import (
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pokeca-watcher/models"
)

// tokenEnv names the environment variable holding the bot token. The
// token never appears in configuration files.
const tokenEnv = "POKECA_KEY_TG"

const maxMessageLen = 4000

// Notifier sends watch-cycle summaries to a single Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier initializes the Telegram bot from the POKECA_KEY_TG
// environment variable.
func NewNotifier(chatID int64) (*Notifier, error) {
	token := os.Getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s environment variable is not set", tokenEnv)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	log.Printf("Authorized on account %s\n", bot.Self.UserName)

	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyCycle sends the cycle summary. Cycles with nothing found and
// nothing changed are skipped silently so the chat only sees news.
func (n *Notifier) NotifyCycle(cycle models.CycleResult, changes []models.ChangeReport) error {
	text := FormatSummary(cycle, changes)
	if text == "" {
		log.Println("Nothing to notify, skipping Telegram message")
		return nil
	}

	for _, part := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send Telegram message: %w", err)
		}
	}
	return nil
}

// FormatSummary renders the cycle for humans. It returns "" when the
// cycle carries no records and no source changed, which suppresses the
// notification entirely.
func FormatSummary(cycle models.CycleResult, changes []models.ChangeReport) string {
	lotteries, reservations, campaigns := cycle.CountByKind()

	changed := make([]models.ChangeReport, 0, len(changes))
	for _, ch := range changes {
		if ch.HasChanges {
			changed = append(changed, ch)
		}
	}

	if lotteries+reservations+campaigns == 0 && len(changed) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("🎴 ポケカ抽選・予約ウォッチ\n")
	sb.WriteString(fmt.Sprintf("%s\n\n", cycle.Timestamp.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("抽選: %d件 / 予約: %d件\n", lotteries, reservations))
	if campaigns > 0 {
		sb.WriteString(fmt.Sprintf("キャンペーン: %d件\n", campaigns))
	}

	if len(changed) > 0 {
		sb.WriteString("\n🔔 変更のあったソース:\n")
		for _, ch := range changed {
			sb.WriteString(fmt.Sprintf("・%s (%d → %d)\n", ch.SourceID, ch.CountBefore, ch.CountAfter))
			for _, name := range ch.Added {
				sb.WriteString(fmt.Sprintf("  ＋ %s\n", name))
			}
			for _, name := range ch.Removed {
				sb.WriteString(fmt.Sprintf("  － %s\n", name))
			}
		}
	}

	for _, src := range cycle.Sources {
		if len(src.Records) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n📍 %s\n", src.SourceID))
		for _, rec := range src.Records {
			sb.WriteString(fmt.Sprintf("%s %s\n", statusEmoji(rec.Status), rec.Product))
			if rec.Price != "" {
				sb.WriteString(fmt.Sprintf("   価格: %s\n", rec.Price))
			}
			if rec.Period != "" {
				sb.WriteString(fmt.Sprintf("   期間: %s\n", rec.Period))
			}
			if rec.DetailURL != "" {
				sb.WriteString(fmt.Sprintf("   %s\n", rec.DetailURL))
			}
		}
	}

	return sb.String()
}

func statusEmoji(status models.ListingStatus) string {
	switch status {
	case models.StatusActive:
		return "🟢"
	case models.StatusClosed:
		return "🔴"
	case models.StatusUpcoming:
		return "🟡"
	default:
		return "⚪"
	}
}

// splitMessage splits a message into chunks of specified size
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	lines := strings.Split(text, "\n")
	var current strings.Builder

	for _, line := range lines {
		if current.Len()+len(line)+1 > maxLen {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			for len(line) > maxLen {
				cut := splitPoint(line, maxLen)
				parts = append(parts, line[:cut])
				line = line[cut:]
			}
			if len(line) > 0 {
				current.WriteString(line)
				current.WriteString("\n")
			}
		} else {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// splitPoint returns the largest byte offset <= maxLen that falls on a
// rune boundary, so oversized lines are never cut mid-character.
func splitPoint(line string, maxLen int) int {
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	if cut == 0 {
		return maxLen
	}
	return cut
}
