package bots_monitor

// Telegram command handler: /start, /help, /status, /sources
// Only messages from the configured chat are answered

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"xrpl-listing-bot/internal/clients_api/telegram"
	"xrpl-listing-bot/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const welcomeText = "Welcome to the XRPL Wallet Tracker Bot!\n\n" +
	"New tokens listed on the tracked XRPL launch sites are posted to this chat.\n" +
	"Send /help to see the commands."

// StatusProvider is what the command handler reads from the listing monitor
type StatusProvider interface {
	Status() []SourceStatus
	Uptime() time.Duration
	Cycles() int
}

// UpdatesBot is the part of *tgbotapi.BotAPI the handler uses
type UpdatesBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RunCommandHandler long-polls updates until ctx is done
func RunCommandHandler(ctx context.Context, bot UpdatesBot, chatID int64, status StatusProvider) {
	if bot == nil {
		log.LogWarn("Bot is nil, command handler not started")
		return
	}

	log.LogInfo("Starting command handler", zap.Int64("chatID", chatID))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			log.LogInfo("Command handler stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			handleUpdate(bot, update, chatID, status)
		}
	}
}

func handleUpdate(bot UpdatesBot, update tgbotapi.Update, chatID int64, status StatusProvider) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat.ID != chatID {
		return
	}

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	log.LogDebug("Received command",
		zap.String("command", msg.Command()),
		zap.Int64("chatID", msg.Chat.ID),
		zap.String("username", username))

	text, ok := commandReply(msg.Command(), status)
	if !ok {
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.DisableWebPagePreview = true
	reply.ReplyToMessageID = msg.MessageID
	if _, err := bot.Send(reply); err != nil {
		log.LogError("Failed to send command reply", zap.String("command", msg.Command()), zap.Error(err))
	}
}

// commandReply returns the HTML reply for a command, false for commands the bot ignores
func commandReply(command string, status StatusProvider) (string, bool) {
	switch strings.ToLower(command) {
	case "start":
		return welcomeText, true
	case "help":
		return helpText(), true
	case "status":
		return statusText(status), true
	case "sources":
		return sourcesText(status), true
	default:
		return "", false
	}
}

func helpText() string {
	return "" +
		"Commands:\n" +
		"• <code>/start</code> - welcome message\n" +
		"• <code>/status</code> - polling status per source\n" +
		"• <code>/sources</code> - tracked listing sites\n" +
		"• <code>/help</code> - this message"
}

func statusText(status StatusProvider) string {
	if status == nil {
		return "Status is not available yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Status</b>\nUptime: %s, poll cycles: %d\n\n",
		status.Uptime().Truncate(time.Second), status.Cycles())

	for _, s := range status.Status() {
		fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(s.Title))
		switch {
		case s.LastPoll.IsZero():
			b.WriteString("  not polled yet\n")
		case s.LastError != "":
			fmt.Fprintf(&b, "  ✗ %s: %s\n", s.LastPoll.UTC().Format("15:04:05"), html.EscapeString(telegram.Truncate(s.LastError, 120)))
		default:
			fmt.Fprintf(&b, "  ✓ %s: %d listed, %d new\n", s.LastPoll.UTC().Format("15:04:05"), s.LastFetched, s.LastNew)
		}
		fmt.Fprintf(&b, "  seen: %d, alerts sent: %d\n", s.Seen, s.TotalAlerts)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sourcesText(status StatusProvider) string {
	if status == nil {
		return "No sources configured."
	}
	list := status.Status()
	if len(list) == 0 {
		return "No sources configured."
	}

	var b strings.Builder
	b.WriteString("Tracked sources:\n")
	for _, s := range list {
		fmt.Fprintf(&b, "• %s (<code>%s</code>)\n", html.EscapeString(s.Title), html.EscapeString(s.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}
