package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between any two Telegram messages to the same chat to avoid
// 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

// Notifier sends one-line run summaries and fatal-error alerts to Telegram.
// A nil Notifier is valid and drops everything, so callers never branch on
// whether notifications are configured.
type Notifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	mu       sync.Mutex
	lastSend time.Time
}

// New returns a Notifier, or nil when no token is configured.
func New(token string, chatID int64) *Notifier {
	if token == "" || chatID == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Warn("telegram notifier disabled", "error", err)
		return nil
	}
	return &Notifier{bot: bot, chatID: chatID}
}

// RunSummary reports a finished scrape or validation run.
func (n *Notifier) RunSummary(tool, adapter, exitReason string, processed, failed int, elapsed time.Duration) {
	n.send(fmt.Sprintf("✅ %s %s: %d processed, %d failed, %s, reason=%s",
		tool, adapter, processed, failed, elapsed.Round(time.Second), exitReason))
}

// Fatal reports an unrecoverable run failure.
func (n *Notifier) Fatal(tool, adapter string, err error) {
	n.send(fmt.Sprintf("🚨 %s %s failed: %v", tool, adapter, err))
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if wait := telegramSendInterval - time.Since(n.lastSend); wait > 0 {
		time.Sleep(wait)
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		slog.Warn("telegram send failed", "error", err)
	}
	n.lastSend = time.Now()
}
