package telegram

// Telegram delivery of new token alerts
// Sends are rate limited client side; a 429 answer is retried after the retry_after Telegram returns

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"xrpl-listing-bot/internal/clients_api/listings"
	"xrpl-listing-bot/internal/infra/log"
	"xrpl-listing-bot/internal/infra/retry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	sender  Sender
	chatID  int64
	limiter *rate.Limiter
	retry   retry.Options
}

type Options struct {
	MessagesPerSecond float64
	Retries           int
	RetryMaxDelay     time.Duration
}

func NewNotifier(sender Sender, chatID string, opts Options) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("telegram sender is nil")
	}
	id, err := ParseChatID(chatID)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.MessagesPerSecond > 0 {
		limit = rate.Limit(opts.MessagesPerSecond)
	}
	maxDelay := opts.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Minute
	}

	return &Notifier{
		sender:  sender,
		chatID:  id,
		limiter: rate.NewLimiter(limit, 1),
		retry: retry.Options{
			MaxRetries: opts.Retries,
			BaseDelay:  time.Second,
			MaxDelay:   maxDelay,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				log.LogWarn("Telegram send failed, retrying",
					zap.Int64("chatID", id),
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			},
		},
	}, nil
}

// NewBot authorizes a bot token against the Bot API
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	return bot, nil
}

// ParseChatID accepts numeric chat IDs, including negative group IDs like -1003190218710
func ParseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid telegram chat id %q", s)
	}
	return id, nil
}

func (n *Notifier) ChatID() int64 { return n.chatID }

// NotifyNewToken posts the alert for one newly listed token
func (n *Notifier) NotifyNewToken(ctx context.Context, sourceTitle string, tok listings.Token) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatNewTokenMessage(sourceTitle, tok))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if kb, ok := tokenKeyboard(sourceTitle, tok); ok {
		msg.ReplyMarkup = kb
	}

	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send token alert %s: %w", tok.ID, err)
	}
	log.LogInfo("Token alert sent",
		zap.String("source", tok.Source),
		zap.String("tokenID", tok.ID),
		zap.Int64("chatID", n.chatID))
	return nil
}

// SendText posts a plain HTML message to the configured chat
func (n *Notifier) SendText(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return n.send(ctx, msg)
}

func (n *Notifier) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return retry.Do(ctx, n.retry, func() error {
		_, err := n.sender.Send(c)
		return classify(err)
	})
}

// classify maps Bot API failures onto retry.HTTPError so retry.Do can tell transient ones apart
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	status := apiErr.Code
	if apiErr.RetryAfter > 0 {
		status = 429
	}
	return &retry.HTTPError{
		StatusCode: status,
		Body:       []byte(apiErr.Message),
		RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
	}
}
